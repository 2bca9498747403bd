package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadSave_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	cfg := DefaultConfig()
	cfg.Agent.Cmd = "claude"
	cfg.Agent.Args = []string{"--print", "--model", "sonnet"}
	cfg.Context.GapMinutes = 30
	cfg.Gates.ExpiryMinutes = 120

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Agent.Cmd != "claude" {
		t.Errorf("expected cmd 'claude', got %q", got.Agent.Cmd)
	}
	if len(got.Agent.Args) != 3 {
		t.Errorf("expected 3 args, got %v", got.Agent.Args)
	}
	if got.Context.Gap() != 30*time.Minute {
		t.Errorf("expected 30m gap, got %v", got.Context.Gap())
	}
	if got.Gates.Expiry() != 2*time.Hour {
		t.Errorf("expected 2h expiry, got %v", got.Gates.Expiry())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_RequiresAgentCmd(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	os.WriteFile(path, []byte("version: 1\nagent:\n  args: [\"--print\"]\n"), 0644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for missing agent cmd")
	}
}

func TestContextDefaults(t *testing.T) {
	var c Context
	if c.Gap() != time.Hour {
		t.Errorf("expected 1h default gap, got %v", c.Gap())
	}
	if c.HistoryLimit() != 50 {
		t.Errorf("expected 50 history limit, got %d", c.HistoryLimit())
	}
	if c.PrimaryWindow() != 6 {
		t.Errorf("expected primary window 6, got %d", c.PrimaryWindow())
	}
	if c.SecondaryWindow() != 5 {
		t.Errorf("expected secondary window 5, got %d", c.SecondaryWindow())
	}
	if c.SwitchWindow() != 4 {
		t.Errorf("expected switch window 4, got %d", c.SwitchWindow())
	}
	if !c.TopicsOn() {
		t.Error("expected topics enabled by default")
	}
}

func TestContext_DisableSecondary(t *testing.T) {
	c := Context{DisableSecondary: true, OlderMessages: 9}
	if c.SecondaryWindow() != 0 {
		t.Errorf("expected 0 secondary window, got %d", c.SecondaryWindow())
	}
}

func TestAgentDefaultTimeout(t *testing.T) {
	a := Agent{Cmd: "claude"}
	if a.DefaultTimeout() != 300*time.Second {
		t.Errorf("expected 300s default, got %v", a.DefaultTimeout())
	}
	a.TimeoutSec = 30
	if a.DefaultTimeout() != 30*time.Second {
		t.Errorf("expected 30s, got %v", a.DefaultTimeout())
	}
}
