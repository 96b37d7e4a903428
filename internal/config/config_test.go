package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.REPL.Prompt != "ember> " {
		t.Fatalf("unexpected default prompt %q", cfg.REPL.Prompt)
	}
	if cfg.Run.Trace {
		t.Fatalf("trace must default to off")
	}
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
[repl]
prompt = ">> "
history = "/tmp/hist"

[run]
trace = true

[log]
level = "debug"
`
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.REPL.Prompt != ">> " {
		t.Fatalf("prompt not overridden: %q", cfg.REPL.Prompt)
	}
	if cfg.REPL.History != "/tmp/hist" {
		t.Fatalf("history not overridden: %q", cfg.REPL.History)
	}
	// fields absent from the file keep their defaults
	if cfg.REPL.Continuation != "  ... " {
		t.Fatalf("continuation default lost: %q", cfg.REPL.Continuation)
	}
	if !cfg.Run.Trace {
		t.Fatalf("trace not overridden")
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level not overridden: %q", cfg.Log.Level)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[repl\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatalf("expected parse error")
	}
}
