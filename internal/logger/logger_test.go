package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetOutputRedirectsAllLevels(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetDebug(true)
	defer SetDebug(false)

	Debug("debug %d", 1)
	Info("info message")
	Warn("warn message")
	Error("error message")

	out := buf.String()
	for _, want := range []string{"[DEBUG] debug 1", "[INFO] info message", "[WARN] warn message", "[ERROR] error message"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDebugSuppressedWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetDebug(false)

	Debug("hidden")
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug output emitted while disabled: %s", buf.String())
	}
}
