package labdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/ryabkov82/labmerge/internal/errors"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  LineKind
		wantLabel string
		wantValue string
	}{
		{"pair", "Sample ID\tA-17", LinePair, "Sample ID", "A-17"},
		{"crlf", "Mobility\t12.5\r", LinePair, "Mobility", "12.5"},
		{"empty value", "Notes\t", LinePair, "Notes", ""},
		{"trailing tabs", "Carrier\t3e17\t\t", LinePair, "Carrier", "3e17"},
		{"empty label", "\tvalue", LinePair, "", "value"},
		{"blank", "   ", LineBlank, "", ""},
		{"empty", "", LineBlank, "", ""},
		{"lone tab", "\t", LinePair, "", ""},
		{"whitespace around tab", "  \t ", LinePair, "  ", " "},
		{"no tab", "Hall measurement report", LineUnparseable, "", ""},
		{"three columns", "a\tb\tc", LineUnparseable, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := ParseLine(7, tt.raw)
			assert.Equal(t, tt.wantKind, line.Kind)
			assert.Equal(t, tt.wantLabel, line.Label)
			assert.Equal(t, tt.wantValue, line.Value)
			assert.Equal(t, 7, line.Number)
		})
	}
}

func TestParseText(t *testing.T) {
	rec := ParseText("a_Hall.txt", "X\t1\nheader junk\n\nY\t2\nZ\t3\n")

	assert.Equal(t, []string{"X", "Y", "Z"}, rec.Labels())
	assert.Equal(t, []string{"1", "2", "3"}, rec.Values())
	require.Len(t, rec.Unparseable, 1)
	assert.Equal(t, 2, rec.Unparseable[0].Number)
	assert.Equal(t, "header junk", rec.Unparseable[0].Raw)
}

func TestParseText_TabOnlyLineIsAColumn(t *testing.T) {
	rec := ParseText("a_Hall.txt", "X\t1\n\t\n   \nY\t2\n")

	assert.Equal(t, []string{"X", "", "Y"}, rec.Labels())
	assert.Equal(t, []string{"1", "", "2"}, rec.Values())
	assert.Empty(t, rec.Unparseable)
}

func TestParseRecord(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a_ICP.txt")
	require.NoError(t, os.WriteFile(p, []byte("Fe\t0.12\r\nCu\t0.03\r\n"), 0o644))

	rec, err := ParseRecord(p)
	require.NoError(t, err)
	assert.Equal(t, p, rec.Path)
	assert.Equal(t, []Pair{{"Fe", "0.12"}, {"Cu", "0.03"}}, rec.Pairs)

	_, err = ParseRecord(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeFileAccess))
}

func TestLineKindString(t *testing.T) {
	assert.Equal(t, "pair", LinePair.String())
	assert.Equal(t, "blank", LineBlank.String())
	assert.Equal(t, "unparseable", LineUnparseable.String())
}
