package leads

import (
	"errors"
	"fmt"
)

// ErrInvalidPageSize indicates a non-positive page size.
var ErrInvalidPageSize = errors.New("leads: page size must be positive")

// Store holds the authoritative lead snapshot and the view parameters.
// Setters only update state; rendering is left to the caller.
type Store struct {
	records  []Lead
	params   Params
	pipeline Pipeline
}

// NewStore returns an empty store on page 1.
func NewStore(pipeline Pipeline, pageSize int, sort SortKey) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{
		pipeline: pipeline,
		params: Params{
			Sort:     sort,
			Page:     1,
			PageSize: pageSize,
		},
	}
}

// SetRecords replaces the full snapshot.
func (s *Store) SetRecords(records []Lead) {
	s.records = append([]Lead(nil), records...)
}

// Records returns a copy of the full snapshot.
func (s *Store) Records() []Lead {
	return append([]Lead(nil), s.records...)
}

// Len reports how many leads the snapshot holds.
func (s *Store) Len() int {
	return len(s.records)
}

// Lookup finds a lead by id in the full, unfiltered snapshot.
func (s *Store) Lookup(id string) (Lead, bool) {
	if id == "" {
		return Lead{}, false
	}
	for _, lead := range s.records {
		if lead.ID == id {
			return lead, true
		}
	}
	return Lead{}, false
}

// Upsert replaces the lead sharing the given id, appending when absent.
func (s *Store) Upsert(lead Lead) {
	if lead.ID == "" {
		return
	}
	for index := range s.records {
		if s.records[index].ID == lead.ID {
			s.records[index] = lead
			return
		}
	}
	s.records = append(s.records, lead)
}

// Params returns the current view parameters.
func (s *Store) Params() Params {
	return s.params
}

// SetQuery updates the filter text and returns to page 1.
func (s *Store) SetQuery(query string) {
	s.params.Query = query
	s.params.Page = 1
}

// SetSort updates the ordering and returns to page 1.
func (s *Store) SetSort(key SortKey) {
	s.params.Sort = key
	s.params.Page = 1
}

// SetPageSize updates the page size and returns to page 1.
func (s *Store) SetPageSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, size)
	}
	s.params.PageSize = size
	s.params.Page = 1
	return nil
}

// SetPage moves to page n, clamped to the pages of the filtered set.
func (s *Store) SetPage(page int) int {
	count := len(filterLeads(s.records, s.params.Query))
	clamped, _ := clampPage(page, count, s.params.PageSize)
	s.params.Page = clamped
	return clamped
}

// NextPage advances one page without passing the last one.
func (s *Store) NextPage() int {
	return s.SetPage(s.View().Page + 1)
}

// PrevPage steps back one page without passing the first one.
func (s *Store) PrevPage() int {
	return s.SetPage(s.View().Page - 1)
}

// View runs the pipeline over the current snapshot and parameters.
func (s *Store) View() View {
	return s.pipeline.Apply(s.records, s.params)
}
