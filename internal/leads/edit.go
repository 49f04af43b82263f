package leads

import (
	"fmt"
	"strings"
)

// Tone classifies a user-facing message.
type Tone string

const (
	ToneNone  Tone = ""
	ToneInfo  Tone = "info"
	ToneOK    Tone = "ok"
	ToneError Tone = "err"
)

// Message is the text shown in the edit form's message area. Transient
// messages are expected to be cleared by the renderer after TransientMessageTTL.
type Message struct {
	Text      string `json:"text"`
	Tone      Tone   `json:"tone"`
	Transient bool   `json:"transient"`
}

const (
	msgReverted      = "Reverted."
	msgNothingToSave = "Nothing to save."
	msgSaving        = "Saving…"
	msgSaved         = "Saved"
	msgSaveFailed    = "Error saving"
)

// EditSession captures the original values of one lead and the values being
// edited. All methods are safe on a nil session, which models "no session open".
type EditSession struct {
	original Lead
	working  Lead
	message  Message
	busy     bool
}

func newEditSession(lead Lead) *EditSession {
	return &EditSession{
		original: lead,
		working:  lead,
	}
}

// ID returns the id of the lead being edited.
func (s *EditSession) ID() string {
	if s == nil {
		return ""
	}
	return s.original.ID
}

// Original returns the snapshot taken when the session opened.
func (s *EditSession) Original() Lead {
	if s == nil {
		return Lead{}
	}
	return s.original
}

// Value returns the working value of field.
func (s *EditSession) Value(field Field) string {
	if s == nil {
		return ""
	}
	return s.working.Value(field)
}

// Message returns the current form message.
func (s *EditSession) Message() Message {
	if s == nil {
		return Message{}
	}
	return s.message
}

// Busy reports whether a submit is in flight.
func (s *EditSession) Busy() bool {
	return s != nil && s.busy
}

// UpdateField sets one working value. Values are kept verbatim; trimming
// happens when the patch is built.
func (s *EditSession) UpdateField(field Field, value string) error {
	if s == nil {
		return ErrNoEditSession
	}
	if _, err := ParseField(string(field)); err != nil {
		return err
	}
	s.working.set(field, value)
	return nil
}

// BuildPatch returns the trimmed values that differ from the original.
// Fields whose trimmed working value is empty are never included, so a patch
// cannot blank a field. It reports false when no session is open.
func (s *EditSession) BuildPatch() (Patch, bool) {
	if s == nil {
		return nil, false
	}
	patch := Patch{}
	for _, field := range EditableFields {
		current := strings.TrimSpace(s.working.Value(field))
		if current == "" {
			continue
		}
		if current != strings.TrimSpace(s.original.Value(field)) {
			patch[field] = current
		}
	}
	return patch, true
}

// Reset restores the working values to the original snapshot.
func (s *EditSession) Reset() {
	if s == nil {
		return
	}
	s.working = s.original
	s.message = Message{Text: msgReverted, Tone: ToneOK, Transient: true}
}

func (s *EditSession) setMessage(text string, tone Tone) {
	s.message = Message{Text: text, Tone: tone}
}

// EditView is what renderers show for the edit form.
type EditView struct {
	Open     bool    `json:"open"`
	Closing  bool    `json:"closing"`
	Busy     bool    `json:"busy"`
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	LastName string  `json:"last_name"`
	Phone    string  `json:"phone"`
	Address  string  `json:"address"`
	Message  Message `json:"message"`
	Patch    Patch   `json:"patch"`
}

// Value returns the form value of field.
func (v EditView) Value(field Field) string {
	switch field {
	case FieldName:
		return v.Name
	case FieldLastName:
		return v.LastName
	case FieldPhone:
		return v.Phone
	case FieldAddress:
		return v.Address
	default:
		return ""
	}
}

func (s *EditSession) view() EditView {
	if s == nil {
		return EditView{}
	}
	patch, _ := s.BuildPatch()
	return EditView{
		Open:     true,
		Busy:     s.busy,
		ID:       s.original.ID,
		Name:     s.working.Name,
		LastName: s.working.LastName,
		Phone:    s.working.Phone,
		Address:  s.working.Address,
		Message:  s.message,
		Patch:    patch,
	}
}

func (s *EditSession) String() string {
	if s == nil {
		return "edit(none)"
	}
	return fmt.Sprintf("edit(%s)", s.original.ID)
}
