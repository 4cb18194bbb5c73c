package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestForReturnsSameLogger(t *testing.T) {
	a := For("test-same")
	b := For("test-same")
	if a != b {
		t.Error("Expected For to return the cached logger")
	}
}

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer func() {
		_ = SetLevel("info")
	}()

	l := For("test-level")

	if err := SetLevel("warn"); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("Expected info to be filtered at warn level, got %q", buf.String())
	}

	l.Warn("shown", "count", 3)
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("Expected warn output, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), "test-level") {
		t.Errorf("Expected prefix in output, got %q", buf.String())
	}
}

func TestSetLevelRejectsUnknown(t *testing.T) {
	if err := SetLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}
