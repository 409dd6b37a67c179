package services

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError reports every violated request field at once so the caller
// gets a complete correction list, never just the first failure.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed: %s", strings.Join(names, ", "))
}

// InvalidQueryError reports bad pagination or sort parameters on list calls.
type InvalidQueryError struct {
	Fields map[string]string
}

func (e *InvalidQueryError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("invalid query: %s", strings.Join(names, ", "))
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// EnrichmentError marks a best-effort AI enrichment failure. It is logged and
// recorded on the enrichment job; the asset keeps its COMPLETED status.
type EnrichmentError struct {
	Err error
}

func (e *EnrichmentError) Error() string { return fmt.Sprintf("enrichment failed: %v", e.Err) }

func (e *EnrichmentError) Unwrap() error { return e.Err }
