package confirm

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrompt(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"  Yes \r\n", true},
		{"yes", true},
		{"n\n", false},
		{"yeah\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompt(strings.NewReader(tt.input), &out)

			ok, err := p.Confirm("Confirm merge?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.Equal(t, "Confirm merge? Type [y]es or [n]o.\n", out.String())
		})
	}
}

func TestPrompt_SequentialAnswers(t *testing.T) {
	p := NewPrompt(strings.NewReader("y\nn\n"), &bytes.Buffer{})

	first, err := p.Confirm("one?")
	require.NoError(t, err)
	second, err := p.Confirm("two?")
	require.NoError(t, err)

	assert.True(t, first)
	assert.False(t, second)
}

func TestAutoAndNonInteractive(t *testing.T) {
	ok, err := Auto(true).Confirm("anything?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Auto(false).Confirm("anything?")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NonInteractive{}.Confirm("Overwrite master?")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotInteractive))
	assert.Contains(t, err.Error(), "Overwrite master?")
}

func TestForStdio(t *testing.T) {
	assert.Equal(t, Auto(true), ForStdio(true, os.Stdin, &bytes.Buffer{}))

	f, err := os.CreateTemp(t.TempDir(), "stdin")
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, NonInteractive{}, ForStdio(false, f, &bytes.Buffer{}))
}
