package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	sel, err := ParseSelection(RawSelection{Value: []byte(`{"species":"  Ramphastos sulfuratus "}`)})
	require.NoError(t, err)
	assert.Equal(t, "Ramphastos sulfuratus", sel.Species)
}

func TestParseSelection_Errors(t *testing.T) {
	tests := []struct {
		name  string
		value string
		empty bool
	}{
		{name: "invalid json", value: `{species`},
		{name: "blank species", value: `{"species":"   "}`, empty: true},
		{name: "missing species", value: `{}`, empty: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSelection(RawSelection{Value: []byte(tt.value)})
			require.Error(t, err)
			if tt.empty {
				assert.ErrorIs(t, err, ErrEmptySelection)
			}
		})
	}
}
