package cli

import (
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := newRootCmd()

	want := []string{"compute", "rank", "graph", "analyze", "serve", "cache", "completion"}
	got := make(map[string]bool)
	for _, cmd := range root.Commands() {
		got[cmd.Name()] = true
	}

	for _, name := range want {
		if !got[name] {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestRootCommandUse(t *testing.T) {
	root := newRootCmd()
	if root.Use != "ecomplexity" {
		t.Errorf("Use = %q, want %q", root.Use, "ecomplexity")
	}
	if !root.SilenceUsage {
		t.Error("SilenceUsage should be set")
	}
}
