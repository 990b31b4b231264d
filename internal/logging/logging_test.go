package logging

import (
	"testing"

	"github.com/equitylens/equitylens/internal/config"
)

func TestNewDefaults(t *testing.T) {
	logger, err := New(config.LoggingConfig{}, "")
	if err != nil {
		t.Fatalf("New with empty config: %v", err)
	}
	if logger == nil {
		t.Fatal("expected a logger")
	}
}

func TestNewFormats(t *testing.T) {
	for _, format := range []string{"console", "json"} {
		if _, err := New(config.LoggingConfig{Level: "debug", Format: format}, ""); err != nil {
			t.Errorf("New(%s): %v", format, err)
		}
	}
}

func TestNewLevelOverride(t *testing.T) {
	logger, err := New(config.LoggingConfig{Level: "error", Format: "console"}, "debug")
	if err != nil {
		t.Fatalf("New with override: %v", err)
	}
	if !logger.Core().Enabled(0) { // 0 = InfoLevel; debug override must enable it
		t.Error("expected level override to debug to enable info logging")
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	if _, err := New(config.LoggingConfig{Level: "loud"}, ""); err == nil {
		t.Error("expected error for invalid level")
	}
	if _, err := New(config.LoggingConfig{Level: "info", Format: "xml"}, ""); err == nil {
		t.Error("expected error for invalid format")
	}
}
