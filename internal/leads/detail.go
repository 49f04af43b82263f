package leads

import (
	"strings"
	"time"
)

const (
	displayTimeLayout = "02/01/2006 15:04"
	shortIDLength     = 10
)

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Detail is the projection of the selected lead shown in the detail pane.
type Detail struct {
	Selected  bool   `json:"selected"`
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
	Created   string `json:"created"`
	Name      string `json:"name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	CanCopyID bool   `json:"can_copy_id"`
	CanEdit   bool   `json:"can_edit"`
}

// Row is a list entry for one lead.
type Row struct {
	Lead    Lead   `json:"lead"`
	Label   string `json:"label"`
	ShortID string `json:"short_id"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Created string `json:"created"`
}

// Projector renders leads for display. The zero value formats in UTC.
type Projector struct {
	location *time.Location
}

// NewProjector returns a projector formatting timestamps in location.
func NewProjector(location *time.Location) Projector {
	return Projector{location: location}
}

// EmptyDetail is the "no selection" projection.
func EmptyDetail() Detail {
	return Detail{
		ID:        Placeholder,
		CreatedAt: Placeholder,
		Created:   Placeholder,
		Name:      Placeholder,
		LastName:  Placeholder,
		Phone:     Placeholder,
		Address:   Placeholder,
	}
}

// Project resolves id against the full record set. Unknown or empty ids
// yield EmptyDetail.
func (p Projector) Project(records []Lead, id string) Detail {
	if id == "" {
		return EmptyDetail()
	}
	for _, lead := range records {
		if lead.ID == id {
			return p.Detail(lead)
		}
	}
	return EmptyDetail()
}

// Detail projects a single lead.
func (p Projector) Detail(lead Lead) Detail {
	enabled := lead.ID != ""
	return Detail{
		Selected:  true,
		ID:        orPlaceholder(lead.ID),
		CreatedAt: orPlaceholder(lead.CreatedAt),
		Created:   p.FormatCreated(lead.CreatedAt),
		Name:      orPlaceholder(lead.Name),
		LastName:  orPlaceholder(lead.LastName),
		Phone:     orPlaceholder(lead.Phone),
		Address:   orPlaceholder(lead.Address),
		CanCopyID: enabled,
		CanEdit:   enabled,
	}
}

// Row projects a lead into a list entry.
func (p Projector) Row(lead Lead) Row {
	label := strings.TrimSpace(lead.Name + " " + lead.LastName)
	shortID := lead.ID
	if runes := []rune(shortID); len(runes) > shortIDLength {
		shortID = string(runes[:shortIDLength]) + "…"
	}
	return Row{
		Lead:    lead,
		Label:   orPlaceholder(label),
		ShortID: shortID,
		Phone:   orPlaceholder(lead.Phone),
		Address: orPlaceholder(lead.Address),
		Created: p.FormatCreated(lead.CreatedAt),
	}
}

// Rows projects every lead of a page.
func (p Projector) Rows(items []Lead) []Row {
	rows := make([]Row, 0, len(items))
	for _, lead := range items {
		rows = append(rows, p.Row(lead))
	}
	return rows
}

// FormatCreated renders an ISO-8601 timestamp as "dd/mm/yyyy hh:mm". Values
// that do not parse are returned unchanged.
func (p Projector) FormatCreated(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Placeholder
	}
	location := p.location
	if location == nil {
		location = time.UTC
	}
	for _, layout := range isoLayouts {
		parsed, err := time.Parse(layout, trimmed)
		if err == nil {
			return parsed.In(location).Format(displayTimeLayout)
		}
	}
	return raw
}

func orPlaceholder(value string) string {
	if value == "" {
		return Placeholder
	}
	return value
}
