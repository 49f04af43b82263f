package leads

import (
	"errors"
	"reflect"
	"testing"
)

func TestBuildPatchNeverBlanksAField(t *testing.T) {
	session := newEditSession(Lead{ID: "a1", Name: "Ana", Phone: "555-1234"})
	if err := session.UpdateField(FieldPhone, "   "); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}

	patch, ok := session.BuildPatch()
	if !ok {
		t.Fatalf("expected an open session")
	}
	if _, present := patch[FieldPhone]; present {
		t.Fatalf("expected phone to be omitted, got %#v", patch)
	}
	if len(patch) != 0 {
		t.Fatalf("expected empty patch, got %#v", patch)
	}
}

func TestBuildPatchExcludesTrimEqualFields(t *testing.T) {
	session := newEditSession(Lead{ID: "a1", Name: "Ana", LastName: " López "})
	mustUpdate(t, session, FieldName, " Ana ")
	mustUpdate(t, session, FieldLastName, "López")

	patch, _ := session.BuildPatch()
	if len(patch) != 0 {
		t.Fatalf("expected no changes, got %#v", patch)
	}
}

func TestBuildPatchIncludesTrimmedChanges(t *testing.T) {
	session := newEditSession(Lead{ID: "a1", Name: "Ana", Address: ""})
	mustUpdate(t, session, FieldName, "  Ana María ")
	mustUpdate(t, session, FieldAddress, "Calle Luna 3")

	patch, _ := session.BuildPatch()
	want := Patch{FieldName: "Ana María", FieldAddress: "Calle Luna 3"}
	if !reflect.DeepEqual(patch, want) {
		t.Fatalf("expected %#v, got %#v", want, patch)
	}
	if fields := patch.Fields(); !reflect.DeepEqual(fields, []Field{FieldName, FieldAddress}) {
		t.Fatalf("unexpected field order %v", fields)
	}
}

func TestBuildPatchIsIdempotent(t *testing.T) {
	session := newEditSession(Lead{ID: "a1", Name: "Ana", Phone: "600000000"})
	mustUpdate(t, session, FieldPhone, "611111111")

	first, _ := session.BuildPatch()
	second, _ := session.BuildPatch()
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected equal patches, got %#v and %#v", first, second)
	}
}

func TestNilSessionBehaviour(t *testing.T) {
	var session *EditSession

	if patch, ok := session.BuildPatch(); ok || patch != nil {
		t.Fatalf("expected no patch without a session, got %#v", patch)
	}
	session.Reset()
	if err := session.UpdateField(FieldName, "x"); !errors.Is(err, ErrNoEditSession) {
		t.Fatalf("expected ErrNoEditSession, got %v", err)
	}
	if session.view().Open {
		t.Fatalf("expected closed view")
	}
}

func TestResetRestoresOriginalWithTransientMessage(t *testing.T) {
	session := newEditSession(Lead{ID: "a1", Name: "Ana", Phone: "600000000"})
	mustUpdate(t, session, FieldName, "Otra")

	session.Reset()

	if session.Value(FieldName) != "Ana" {
		t.Fatalf("expected name restored, got %q", session.Value(FieldName))
	}
	message := session.Message()
	if message.Text != msgReverted || message.Tone != ToneOK || !message.Transient {
		t.Fatalf("unexpected reset message %#v", message)
	}
	if session.Original().Name != "Ana" {
		t.Fatalf("original must not change")
	}
}

func TestUpdateFieldRejectsUnknownField(t *testing.T) {
	session := newEditSession(Lead{ID: "a1"})
	if err := session.UpdateField(Field("id"), "other"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
}

func mustUpdate(t *testing.T, session *EditSession, field Field, value string) {
	t.Helper()
	if err := session.UpdateField(field, value); err != nil {
		t.Fatalf("unexpected update error: %v", err)
	}
}
