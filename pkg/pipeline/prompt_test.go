package pipeline

import (
	"bytes"
	"strings"
	"testing"
)

func TestConsolePrompterAnswers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"yes short", "y\n", true},
		{"yes long", "YES\n", true},
		{"no short", "n\n", false},
		{"no long", "No\n", false},
		{"whitespace tolerated", "  yes  \n", true},
		{"reprompts until valid", "maybe\n\nok\ny\n", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewConsolePrompter(strings.NewReader(tt.input), &out)

			got, err := p.Confirm("Install optional package \"tmux\"?")
			if err != nil {
				t.Fatalf("Confirm() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm() = %v, want %v", got, tt.want)
			}
			if !strings.Contains(out.String(), "[y/n]") {
				t.Error("prompt not written to output")
			}
		})
	}
}

func TestConsolePrompterReprompts(t *testing.T) {
	var out bytes.Buffer
	p := NewConsolePrompter(strings.NewReader("bogus\nn\n"), &out)

	got, err := p.Confirm("Install?")
	if err != nil || got {
		t.Fatalf("Confirm() = (%v, %v), want (false, nil)", got, err)
	}
	if !strings.Contains(out.String(), "Please answer yes or no.") {
		t.Error("missing reprompt hint")
	}
}

func TestConsolePrompterEOF(t *testing.T) {
	p := NewConsolePrompter(strings.NewReader(""), &bytes.Buffer{})
	if _, err := p.Confirm("Install?"); err == nil {
		t.Error("Confirm() on closed input must error")
	}
}

func TestStaticPrompter(t *testing.T) {
	yes := &StaticPrompter{Answer: true}
	if got, err := yes.Confirm("anything"); err != nil || !got {
		t.Errorf("Confirm() = (%v, %v), want (true, nil)", got, err)
	}
	no := &StaticPrompter{}
	if got, err := no.Confirm("anything"); err != nil || got {
		t.Errorf("Confirm() = (%v, %v), want (false, nil)", got, err)
	}
}
