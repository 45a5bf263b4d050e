package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New(Options{Level: "debug", File: path})
	log.Debug("quiz created")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"quiz created"`) {
		t.Fatalf("expected JSON entry, got %q", data)
	}
}

func TestNewFiltersBelowLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	log := New(Options{Level: "warn", File: path})
	log.Info("ignored")
	_ = log.Sync()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "ignored") {
		t.Fatalf("info entry should be filtered at warn level")
	}
}
