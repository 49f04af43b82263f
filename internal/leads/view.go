package leads

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// DefaultPageSize is used when a caller supplies a non-positive page size.
	DefaultPageSize = 20
)

// DefaultLocale drives collation when none is configured.
var DefaultLocale = language.Spanish

// Params are the view parameters governing which leads are visible.
type Params struct {
	Query    string  `json:"query"`
	Sort     SortKey `json:"sort"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// View is the visible page of leads plus pagination metadata.
type View struct {
	Items      []Lead `json:"items"`
	TotalCount int    `json:"total_count"`
	TotalPages int    `json:"total_pages"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

// Pipeline turns a record set and view parameters into a View.
// The zero value collates with DefaultLocale.
type Pipeline struct {
	locale language.Tag
}

// NewPipeline returns a pipeline collating for the given locale.
func NewPipeline(locale language.Tag) Pipeline {
	return Pipeline{locale: locale}
}

// Locale reports the collation locale.
func (p Pipeline) Locale() language.Tag {
	if p.locale == language.Und {
		return DefaultLocale
	}
	return p.locale
}

// Apply filters, sorts and paginates records. It never mutates records and
// identical inputs always yield identical output.
func (p Pipeline) Apply(records []Lead, params Params) View {
	pageSize := params.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	matched := filterLeads(records, params.Query)
	sortLeads(matched, params.Sort, collate.New(p.Locale()))

	page, totalPages := clampPage(params.Page, len(matched), pageSize)
	start := (page - 1) * pageSize
	end := len(matched)
	if end-start > pageSize {
		end = start + pageSize
	}

	items := make([]Lead, 0, end-start)
	items = append(items, matched[start:end]...)

	return View{
		Items:      items,
		TotalCount: len(matched),
		TotalPages: totalPages,
		Page:       page,
		PageSize:   pageSize,
	}
}

// Apply runs the default pipeline.
func Apply(records []Lead, params Params) View {
	return Pipeline{}.Apply(records, params)
}

// TotalPages returns max(1, ceil(count/pageSize)).
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if count <= 0 {
		return 1
	}
	pages := count / pageSize
	if count%pageSize != 0 {
		pages++
	}
	return pages
}

func clampPage(page, count, pageSize int) (int, int) {
	totalPages := TotalPages(count, pageSize)
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return page, totalPages
}

func filterLeads(records []Lead, query string) []Lead {
	needle := foldText(query)
	matched := make([]Lead, 0, len(records))
	for _, lead := range records {
		if needle == "" || leadMatches(lead, needle) {
			matched = append(matched, lead)
		}
	}
	return matched
}

func leadMatches(lead Lead, needle string) bool {
	for _, value := range []string{lead.ID, lead.Name, lead.LastName, lead.Phone, lead.Address, lead.CreatedAt} {
		if strings.Contains(foldText(value), needle) {
			return true
		}
	}
	return false
}

type sortEntry struct {
	lead Lead
	key  string
}

func sortLeads(items []Lead, key SortKey, collator *collate.Collator) {
	field, descending := key.ordering()
	entries := make([]sortEntry, len(items))
	for index, lead := range items {
		entries[index] = sortEntry{lead: lead, key: normalizeText(field(lead))}
	}

	slices.SortStableFunc(entries, func(left, right sortEntry) int {
		if descending {
			return collator.CompareString(right.key, left.key)
		}
		return collator.CompareString(left.key, right.key)
	})

	for index, entry := range entries {
		items[index] = entry.lead
	}
}

// ordering returns the field each sort key compares and its direction.
func (k SortKey) ordering() (func(Lead) string, bool) {
	switch k {
	case SortCreatedDesc:
		return createdAt, true
	case SortCreatedAsc:
		return createdAt, false
	case SortNameAsc:
		return name, false
	case SortNameDesc:
		return name, true
	default:
		return func(Lead) string { return "" }, false
	}
}

func createdAt(lead Lead) string { return lead.CreatedAt }

func name(lead Lead) string { return lead.Name }

// normalizeText lowercases and trims a value; absent values become "".
func normalizeText(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// foldText additionally strips combining marks so "José" matches "jose".
func foldText(value string) string {
	normalized := normalizeText(value)
	if normalized == "" {
		return ""
	}
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, normalized)
	if err != nil {
		return normalized
	}
	return folded
}
