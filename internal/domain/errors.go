package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel causes carried by LoadError.
var (
	ErrMissingColumn    = errors.New("missing required column")
	ErrMissingAttribute = errors.New("missing required attribute")
	ErrInvalidValue     = errors.New("invalid value")
	ErrMalformed        = errors.New("malformed input")
	ErrDuplicateRegion  = errors.New("duplicate region code")
)

// LoadError reports input that cannot be turned into records or regions.
// It is fatal for the dataset being loaded.
type LoadError struct {
	Source string // file name or other label for the input
	Line   int    // 1-based line (occurrences) or feature index (regions); 0 when not applicable
	Field  string // column or attribute at fault
	Err    error
}

func (e *LoadError) Error() string {
	var b strings.Builder
	b.WriteString("load ")
	if e.Source != "" {
		b.WriteString(e.Source)
	} else {
		b.WriteString("input")
	}
	if e.Line > 0 {
		fmt.Fprintf(&b, ":%d", e.Line)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " field %q", e.Field)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *LoadError) Unwrap() error { return e.Err }

func loadErr(source string, line int, field string, err error) *LoadError {
	return &LoadError{Source: source, Line: line, Field: field, Err: err}
}
