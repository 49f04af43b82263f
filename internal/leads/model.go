package leads

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Placeholder is rendered for any absent or empty field.
const Placeholder = "—"

var (
	// ErrUnknownField indicates that a field name is not one of the editable lead fields.
	ErrUnknownField = errors.New("leads: unknown field")
	// ErrUnknownSortKey indicates that a sort key name is not recognised.
	ErrUnknownSortKey = errors.New("leads: unknown sort key")
)

// Lead is a read snapshot of a contact record owned by the remote leads service.
type Lead struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Name      string `json:"name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

// UnmarshalJSON tolerates null and non-string values and the legacy
// "crated_at" spelling emitted by spreadsheet-backed services.
func (l *Lead) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var raw map[string]any
	if err := decoder.Decode(&raw); err != nil {
		return err
	}

	decoded := Lead{
		ID:        textValue(raw["id"]),
		CreatedAt: textValue(raw["created_at"]),
		Name:      textValue(raw["name"]),
		LastName:  textValue(raw["last_name"]),
		Phone:     textValue(raw["phone"]),
		Address:   textValue(raw["address"]),
	}
	if decoded.CreatedAt == "" {
		decoded.CreatedAt = textValue(raw["crated_at"])
	}
	*l = decoded
	return nil
}

func textValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case json.Number:
		return typed.String()
	case bool:
		if typed {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(typed)
	}
}

// Field enumerates the lead fields that may be edited through a patch.
type Field string

const (
	FieldName     Field = "name"
	FieldLastName Field = "last_name"
	FieldPhone    Field = "phone"
	FieldAddress  Field = "address"
)

// EditableFields lists the editable fields in form order.
var EditableFields = []Field{FieldName, FieldLastName, FieldPhone, FieldAddress}

// ParseField validates a wire field name.
func ParseField(raw string) (Field, error) {
	candidate := Field(strings.TrimSpace(raw))
	for _, field := range EditableFields {
		if field == candidate {
			return field, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, raw)
}

// Label returns a human readable name for the field.
func (f Field) Label() string {
	switch f {
	case FieldName:
		return "Name"
	case FieldLastName:
		return "Last name"
	case FieldPhone:
		return "Phone"
	case FieldAddress:
		return "Address"
	default:
		return string(f)
	}
}

// Value returns the lead's value for an editable field.
func (l Lead) Value(field Field) string {
	switch field {
	case FieldName:
		return l.Name
	case FieldLastName:
		return l.LastName
	case FieldPhone:
		return l.Phone
	case FieldAddress:
		return l.Address
	default:
		return ""
	}
}

func (l *Lead) set(field Field, value string) {
	switch field {
	case FieldName:
		l.Name = value
	case FieldLastName:
		l.LastName = value
	case FieldPhone:
		l.Phone = value
	case FieldAddress:
		l.Address = value
	}
}

// Patch maps editable fields to their new values.
type Patch map[Field]string

// Clone returns an independent copy of the patch.
func (p Patch) Clone() Patch {
	if p == nil {
		return nil
	}
	cloned := make(Patch, len(p))
	for field, value := range p {
		cloned[field] = value
	}
	return cloned
}

// Fields returns the patched fields in form order.
func (p Patch) Fields() []Field {
	fields := make([]Field, 0, len(p))
	for _, field := range EditableFields {
		if _, ok := p[field]; ok {
			fields = append(fields, field)
		}
	}
	return fields
}

// SortKey is the closed set of orderings offered by the lead list.
type SortKey int

const (
	SortCreatedDesc SortKey = iota
	SortCreatedAsc
	SortNameAsc
	SortNameDesc
)

// SortKeys lists every sort key in menu order.
var SortKeys = []SortKey{SortCreatedDesc, SortCreatedAsc, SortNameAsc, SortNameDesc}

// ParseSortKey converts a wire name such as "created_desc" into a SortKey.
func ParseSortKey(raw string) (SortKey, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for _, key := range SortKeys {
		if key.String() == normalized {
			return key, nil
		}
	}
	return SortCreatedDesc, fmt.Errorf("%w: %q", ErrUnknownSortKey, raw)
}

func (k SortKey) String() string {
	switch k {
	case SortCreatedDesc:
		return "created_desc"
	case SortCreatedAsc:
		return "created_asc"
	case SortNameAsc:
		return "name_asc"
	case SortNameDesc:
		return "name_desc"
	default:
		return fmt.Sprintf("sort(%d)", int(k))
	}
}

// Label returns the menu caption for the sort key.
func (k SortKey) Label() string {
	switch k {
	case SortCreatedDesc:
		return "Newest first"
	case SortCreatedAsc:
		return "Oldest first"
	case SortNameAsc:
		return "Name A-Z"
	case SortNameDesc:
		return "Name Z-A"
	default:
		return k.String()
	}
}

// Next cycles to the following sort key in menu order.
func (k SortKey) Next() SortKey {
	for index, key := range SortKeys {
		if key == k {
			return SortKeys[(index+1)%len(SortKeys)]
		}
	}
	return SortCreatedDesc
}

// MarshalText encodes the sort key using its wire name.
func (k SortKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a wire name.
func (k *SortKey) UnmarshalText(text []byte) error {
	parsed, err := ParseSortKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
