package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySelection rejects selection messages that name no species.
var ErrEmptySelection = errors.New("selection has no species")

// ParseSelection deserializes a selection message of the form
// {"species": "Ramphastos sulfuratus"}.
func ParseSelection(raw RawSelection) (Selection, error) {
	var sel Selection
	if err := json.Unmarshal(raw.Value, &sel); err != nil {
		return Selection{}, fmt.Errorf("parse selection: %w", err)
	}
	sel.Species = strings.TrimSpace(sel.Species)
	if sel.Species == "" {
		return Selection{}, ErrEmptySelection
	}
	return sel, nil
}
