package leads

import (
	"errors"
	"testing"
)

func TestStoreParameterSettersResetPage(t *testing.T) {
	store := NewStore(Pipeline{}, 10, SortCreatedDesc)
	store.SetRecords(numberedLeads(45))

	testCases := []struct {
		name   string
		mutate func()
	}{
		{name: "query", mutate: func() { store.SetQuery("name") }},
		{name: "sort", mutate: func() { store.SetSort(SortNameDesc) }},
		{name: "page-size", mutate: func() {
			if err := store.SetPageSize(5); err != nil {
				t.Fatalf("unexpected page size error: %v", err)
			}
		}},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			store.SetPage(3)
			if store.Params().Page != 3 {
				t.Fatalf("expected page 3 before mutation, got %d", store.Params().Page)
			}
			testCase.mutate()
			if store.Params().Page != 1 {
				t.Fatalf("expected page reset to 1, got %d", store.Params().Page)
			}
		})
	}
}

func TestStoreSetPageClampsAgainstFilteredCount(t *testing.T) {
	store := NewStore(Pipeline{}, 20, SortNameAsc)
	store.SetRecords(numberedLeads(45))

	if page := store.SetPage(9); page != 3 {
		t.Fatalf("expected clamp to 3, got %d", page)
	}

	store.SetQuery("name 0")
	if page := store.SetPage(2); page != 1 {
		t.Fatalf("expected clamp to the single filtered page, got %d", page)
	}
	if page := store.SetPage(0); page != 1 {
		t.Fatalf("expected clamp to 1, got %d", page)
	}
}

func TestStorePageNavigationDoesNotReset(t *testing.T) {
	store := NewStore(Pipeline{}, 20, SortNameAsc)
	store.SetRecords(numberedLeads(45))

	if page := store.NextPage(); page != 2 {
		t.Fatalf("expected page 2, got %d", page)
	}
	if page := store.NextPage(); page != 3 {
		t.Fatalf("expected page 3, got %d", page)
	}
	if page := store.NextPage(); page != 3 {
		t.Fatalf("expected to stay on the last page, got %d", page)
	}
	if page := store.PrevPage(); page != 2 {
		t.Fatalf("expected page 2, got %d", page)
	}
	store.SetPage(1)
	if page := store.PrevPage(); page != 1 {
		t.Fatalf("expected to stay on the first page, got %d", page)
	}
}

func TestStoreRejectsNonPositivePageSize(t *testing.T) {
	store := NewStore(Pipeline{}, 20, SortCreatedDesc)

	err := store.SetPageSize(0)
	if !errors.Is(err, ErrInvalidPageSize) {
		t.Fatalf("expected ErrInvalidPageSize, got %v", err)
	}
	if store.Params().PageSize != 20 {
		t.Fatalf("expected page size to stay 20, got %d", store.Params().PageSize)
	}
}

func TestStoreSnapshotIsCopied(t *testing.T) {
	records := sampleLeads()
	store := NewStore(Pipeline{}, 20, SortCreatedDesc)
	store.SetRecords(records)

	records[0].Name = "mutated"
	if lead, ok := store.Lookup("a1"); !ok || lead.Name != "Juan" {
		t.Fatalf("expected store to keep its own copy, got %#v", lead)
	}

	returned := store.Records()
	returned[1].Name = "mutated"
	if lead, _ := store.Lookup("b2"); lead.Name != "ana" {
		t.Fatalf("expected Records to return a copy, got %#v", lead)
	}
}

func TestStoreUpsert(t *testing.T) {
	store := NewStore(Pipeline{}, 20, SortCreatedDesc)
	store.SetRecords(sampleLeads())

	store.Upsert(Lead{ID: "b2", Name: "Ana María"})
	store.Upsert(Lead{ID: "e5", Name: "Nuevo"})
	store.Upsert(Lead{Name: "ignored"})

	if lead, _ := store.Lookup("b2"); lead.Name != "Ana María" {
		t.Fatalf("expected replacement, got %#v", lead)
	}
	if _, ok := store.Lookup("e5"); !ok {
		t.Fatalf("expected appended lead")
	}
	if store.Len() != 5 {
		t.Fatalf("expected 5 leads, got %d", store.Len())
	}
	if _, ok := store.Lookup(""); ok {
		t.Fatalf("expected empty id lookup to fail")
	}
}
