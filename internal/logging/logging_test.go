package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level   string
		debug   bool
		wantErr bool
	}{
		{"debug", true, false},
		{"info", false, false},
		{"warn", false, false},
		{"loud", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l, err := New(&buf, tt.level)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			l.Debug("tick", "n", 1)
			if got := strings.Contains(buf.String(), "tick"); got != tt.debug {
				t.Errorf("debug visible = %v, want %v", got, tt.debug)
			}
		})
	}
}

func TestNewFileWritesKeyValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fluxdrive.log")
	l, closer, err := NewFile(path, "info")
	if err != nil {
		t.Fatal(err)
	}
	l.Info("run complete", "steps", 4000)
	if err := closer.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "steps=4000") {
		t.Errorf("log file missing key/value: %q", data)
	}
}
