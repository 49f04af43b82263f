package leadsapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a failed leads service call.
type Kind string

const (
	KindGeneric    Kind = "generic"
	KindConflict   Kind = "conflict"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
)

const (
	opFetchLeads = "fetch_leads"
	opPatchLead  = "patch_lead"
)

// Error is returned for any failed call, including network failures (Status 0).
type Error struct {
	Op     string
	Status int
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("leadsapi: %s: %s: %v", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("leadsapi: %s: %s", e.Op, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// UserMessage phrases the failure for display. Patch failures are prefixed
// by their classification.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindConflict:
		return "Duplicate: " + e.Detail
	case KindValidation:
		return "Validation: " + e.Detail
	case KindNotFound:
		return "Not found: " + e.Detail
	}
	if e.Op == opPatchLead {
		return "Error: " + e.Detail
	}
	return e.Detail
}

// IsKind reports whether err is a leads service error of the given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func classifyStatus(status int) Kind {
	switch status {
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	default:
		return KindGeneric
	}
}

// errorDetail extracts the "detail" member of an error body. FastAPI emits a
// string for HTTPException and a list of issues for request validation.
func errorDetail(body map[string]any, status int) string {
	fallback := fmt.Sprintf("HTTP %d", status)
	if body == nil {
		return fallback
	}
	switch detail := body["detail"].(type) {
	case string:
		if strings.TrimSpace(detail) != "" {
			return detail
		}
	case []any:
		messages := make([]string, 0, len(detail))
		for _, item := range detail {
			switch issue := item.(type) {
			case string:
				messages = append(messages, issue)
			case map[string]any:
				if msg, ok := issue["msg"].(string); ok && msg != "" {
					messages = append(messages, msg)
				}
			}
		}
		if len(messages) > 0 {
			return strings.Join(messages, "; ")
		}
	}
	return fallback
}
