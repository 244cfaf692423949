package apix

import (
	"bytes"
	"log"
	"strings"
	"testing"
)

func TestSimpleLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := &SimpleLogger{logger: log.New(&buf, "", 0)}

	logger.Debug("d", "k", 1)
	logger.Info("i")
	logger.Warn("w", "reason", "x")
	logger.Error("e")

	out := buf.String()
	for _, want := range []string{"DEBUG d k=1", "INFO i", "WARN w reason=x", "ERROR e"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got %q", want, out)
		}
	}
}

func TestSimpleLoggerOddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	logger := &SimpleLogger{logger: log.New(&buf, "", 0)}

	logger.Info("msg", "dangling")

	if !strings.Contains(buf.String(), "dangling") {
		t.Errorf("Expected dangling value to be printed, got %q", buf.String())
	}
}

func TestNewSimpleLogger(t *testing.T) {
	if NewSimpleLogger() == nil {
		t.Fatal("NewSimpleLogger() returned nil")
	}
}
