package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"extman/internal/platform/logging"
)

func TestNewHonorsLevel(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	logger := logging.New("extman", "warn", buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "LD_PRELOAD")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "LD_PRELOAD") {
		t.Fatalf("expected warn line, got %q", out)
	}
}

func TestNewFallsBackToWarn(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	logger := logging.New("extman", "bogus", buf)
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug should be filtered, got %q", buf.String())
	}
}
