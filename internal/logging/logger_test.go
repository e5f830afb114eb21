package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("no file", func(t *testing.T) {
		l, err := NewLogger(LogLevelInfo, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer l.Close()
		if l.level != LogLevelInfo {
			t.Errorf("level = %d, want %d", l.level, LogLevelInfo)
		}
		if l.file != nil {
			t.Error("file should be nil when no path given")
		}
	})

	t.Run("with file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "test.log")
		l, err := NewLogger(LogLevelDebug, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if l.file == nil || l.fileLog == nil {
			t.Fatal("file sink should be configured")
		}

		l.Debug("handshake step %d", 3)
		l.Close()

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read log: %v", err)
		}
		if !strings.Contains(string(data), "DEBUG: handshake step 3") {
			t.Errorf("log contents: %q", data)
		}
	})
}

func TestLevelGate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.log")
	l, err := NewLogger(LogLevelError, path)
	if err != nil {
		t.Fatal(err)
	}
	l.Info("should not appear")
	l.Error("should appear")
	l.Close()

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "should not appear") {
		t.Error("info leaked through error-level gate")
	}
	if !strings.Contains(string(data), "ERROR: should appear") {
		t.Error("error missing from log")
	}
}

func TestSetLevel(t *testing.T) {
	l, _ := NewLogger(LogLevelSilent, "")
	defer l.Close()
	l.SetLevel(LogLevelVerbose)
	if l.GetLevel() != LogLevelVerbose {
		t.Errorf("level = %d", l.GetLevel())
	}
}

func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default must never be nil")
	}
	custom, _ := NewLogger(LogLevelDebug, "")
	SetDefault(custom)
	if Default() != custom {
		t.Error("SetDefault not honored")
	}
}
