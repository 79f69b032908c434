package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestRootCommand tests the command tree wiring.
func TestRootCommand(t *testing.T) {
	t.Parallel()

	t.Run("help lists subcommands", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"--help"})

		if err := cmd.Execute(); err != nil {
			t.Fatalf("Execute failed: %v", err)
		}
		for _, want := range []string{"crawl", "version"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("help missing %q:\n%s", want, out.String())
			}
		}
	})

	t.Run("unknown command fails", func(t *testing.T) {
		t.Parallel()

		var out bytes.Buffer
		cmd := NewRootCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs([]string{"scan"})

		if err := cmd.Execute(); err == nil {
			t.Error("Execute succeeded for unknown command")
		}
	})
}

// TestVersionCommand tests version output.
func TestVersionCommand(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(out.String(), "canopy version") {
		t.Errorf("output = %q, want version string", out.String())
	}
}
