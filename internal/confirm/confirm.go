// Package confirm provides the yes/no confirmation used before destructive
// steps.
package confirm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Confirmer answers a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// ErrNotInteractive is returned when an answer is needed but nobody can give it.
var ErrNotInteractive = errors.New("confirmation required but input is not a terminal; re-run with --yes")

// Prompt asks on Out and reads one line from In.
type Prompt struct {
	In  *bufio.Reader
	Out io.Writer
}

// NewPrompt creates a prompt over the given streams.
func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{In: bufio.NewReader(in), Out: out}
}

func (p *Prompt) Confirm(question string) (bool, error) {
	if _, err := fmt.Fprintf(p.Out, "%s Type [y]es or [n]o.\n", question); err != nil {
		return false, err
	}
	answer, err := p.In.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read answer: %w", err)
	}
	return IsAffirmative(answer), nil
}

// IsAffirmative accepts y and yes in any case.
func IsAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

// Auto answers every question the same way.
type Auto bool

func (a Auto) Confirm(string) (bool, error) {
	return bool(a), nil
}

// NonInteractive refuses to guess an answer.
type NonInteractive struct{}

func (NonInteractive) Confirm(question string) (bool, error) {
	return false, fmt.Errorf("%s: %w", question, ErrNotInteractive)
}

// ForStdio picks the confirmer for a CLI run: Auto(true) when assumeYes is
// set, a Prompt on a terminal, NonInteractive otherwise.
func ForStdio(assumeYes bool, in *os.File, out io.Writer) Confirmer {
	if assumeYes {
		return Auto(true)
	}
	if term.IsTerminal(int(in.Fd())) {
		return NewPrompt(in, out)
	}
	return NonInteractive{}
}
