package logging

import (
	"bytes"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	for _, lvl := range Levels {
		if _, err := New(&bytes.Buffer{}, lvl, false); err != nil {
			t.Errorf("level %s: %v", lvl, err)
		}
	}
	if _, err := New(&bytes.Buffer{}, "loud", false); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInfoFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(&buf, "info", false)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("hidden")
	log.Info("shown", zap.String("task", "bills"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line leaked at info level: %q", out)
	}
	if !strings.HasPrefix(out, "shown") || !strings.Contains(out, `"task": "bills"`) {
		t.Errorf("unexpected output %q", out)
	}
}

func TestErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	log, _ := New(&buf, "error", false)
	log.Info("quiet")
	log.Error("loud")
	if got := buf.String(); got != "loud\n" {
		t.Errorf("unexpected output %q", got)
	}
}

func TestTimestampOnlyWhenRequested(t *testing.T) {
	var plain, stamped bytes.Buffer
	a, _ := New(&plain, "info", false)
	b, _ := New(&stamped, "info", true)
	a.Info("hello")
	b.Info("hello")

	if plain.String() != "hello\n" {
		t.Errorf("unexpected plain output %q", plain.String())
	}
	if !regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\S+ hello\n$`).MatchString(stamped.String()) {
		t.Errorf("unexpected stamped output %q", stamped.String())
	}
}
