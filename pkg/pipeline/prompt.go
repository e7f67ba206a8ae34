package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Prompter answers yes/no questions. The optional-package pass asks
// one question per package.
type Prompter interface {
	Confirm(question string) (bool, error)
}

// ConsolePrompter reads answers from an input stream. It accepts
// case-insensitive y/yes/n/no and re-prompts on anything else.
type ConsolePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewConsolePrompter creates a prompter over the given streams.
func NewConsolePrompter(in io.Reader, out io.Writer) *ConsolePrompter {
	return &ConsolePrompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm implements Prompter.
func (p *ConsolePrompter) Confirm(question string) (bool, error) {
	for {
		fmt.Fprintf(p.out, "%s [y/n]: ", question)

		line, err := p.in.ReadString('\n')
		if err != nil && line == "" {
			return false, fmt.Errorf("failed to read answer: %w", err)
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Please answer yes or no.")

		if err != nil {
			return false, fmt.Errorf("failed to read answer: %w", err)
		}
	}
}

// StaticPrompter answers every question the same way. Used for
// --yes runs and in tests.
type StaticPrompter struct {
	Answer bool
}

// Confirm implements Prompter.
func (p *StaticPrompter) Confirm(string) (bool, error) {
	return p.Answer, nil
}
