package leads

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestLeadUnmarshalToleratesSpreadsheetRows(t *testing.T) {
	payload := `[
		{"id":"a1","created_at":"2025-03-01T09:00:00+00:00","name":"Ana","last_name":null,"phone":654789098,"address":"Calle 1"},
		{"id":"b2","crated_at":"2025-01-01T00:00:00+00:00","name":"Luis"}
	]`

	var records []Lead
	if err := json.Unmarshal([]byte(payload), &records); err != nil {
		t.Fatalf("unexpected decode error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].Phone != "654789098" || records[0].LastName != "" {
		t.Fatalf("unexpected first record %#v", records[0])
	}
	if records[1].CreatedAt != "2025-01-01T00:00:00+00:00" {
		t.Fatalf("expected legacy created_at alias, got %#v", records[1])
	}
}

func TestPatchMarshalsWireFieldNames(t *testing.T) {
	encoded, err := json.Marshal(Patch{FieldLastName: "Gómez"})
	if err != nil {
		t.Fatalf("unexpected encode error: %v", err)
	}
	if string(encoded) != `{"last_name":"Gómez"}` {
		t.Fatalf("unexpected patch body %s", encoded)
	}
}

func TestParseSortKey(t *testing.T) {
	for _, key := range SortKeys {
		parsed, err := ParseSortKey(" " + key.String() + " ")
		if err != nil || parsed != key {
			t.Fatalf("expected %v, got %v (%v)", key, parsed, err)
		}
	}
	if _, err := ParseSortKey("price_asc"); !errors.Is(err, ErrUnknownSortKey) {
		t.Fatalf("expected ErrUnknownSortKey, got %v", err)
	}
	if SortNameDesc.Next() != SortCreatedDesc {
		t.Fatalf("expected sort keys to cycle")
	}
}

func TestParseField(t *testing.T) {
	field, err := ParseField("last_name")
	if err != nil || field != FieldLastName {
		t.Fatalf("unexpected parse result %q %v", field, err)
	}
	if _, err := ParseField("created_at"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}
