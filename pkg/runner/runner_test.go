package runner

import (
	"context"
	"testing"
	"time"
)

func TestCommandString(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{
			name: "path only",
			cmd:  Command{Path: "apk"},
			want: "apk",
		},
		{
			name: "path with args",
			cmd:  Command{Path: "apt-get", Args: []string{"install", "-y", "git"}},
			want: "apt-get install -y git",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultDiagnostic(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   string
	}{
		{
			name:   "prefers stderr",
			result: Result{Stdout: "progress output", Stderr: "E: unable to locate package\n"},
			want:   "E: unable to locate package",
		},
		{
			name:   "falls back to stdout",
			result: Result{Stdout: "nothing provides tlp\n"},
			want:   "nothing provides tlp",
		},
		{
			name:   "silent tool",
			result: Result{},
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.result.Diagnostic(); got != tt.want {
				t.Errorf("Diagnostic() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResultOk(t *testing.T) {
	if !(Result{ExitCode: 0}).Ok() {
		t.Error("exit 0 should be Ok")
	}
	if (Result{ExitCode: 100}).Ok() {
		t.Error("exit 100 should not be Ok")
	}
}

func TestExecRunnerRejectsEmptyPath(t *testing.T) {
	r := NewExecRunner()
	if _, err := r.Run(context.Background(), Command{Timeout: time.Second}); err == nil {
		t.Fatal("expected error for empty command path")
	}
}
