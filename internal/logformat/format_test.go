package logformat

import (
	"testing"

	"errwatch/internal/model"
)

func TestParse_JSONRoundTrip(t *testing.T) {
	line := `{"timestamp":"2025-08-01T10:30:15Z", "level":"error", "message":"API timeout"}`
	event := Parse(line, model.LogFileSpec{Type: "auto"})

	if event.Level != model.LevelError {
		t.Errorf("expected level ERROR, got %s", event.Level)
	}
	if event.Message != "API timeout" {
		t.Errorf("expected message 'API timeout', got %q", event.Message)
	}
	if event.Parser != string(FormatJSON) {
		t.Errorf("expected parser 'json', got %q", event.Parser)
	}
}

func TestParse_GenericDatabaseError(t *testing.T) {
	line := "[2025-08-01 10:30:15] ERROR: Database connection failed"
	event := Parse(line, model.LogFileSpec{Type: "auto"})

	if event.Parser != string(FormatGeneric) {
		t.Errorf("expected parser 'generic', got %q", event.Parser)
	}
	if event.Level != model.LevelError {
		t.Errorf("expected level ERROR, got %s", event.Level)
	}
	if event.Message != "Database connection failed" {
		t.Errorf("expected message 'Database connection failed', got %q", event.Message)
	}
	if event.Urgency != 10 {
		t.Errorf("expected urgency clamped to 10, got %d", event.Urgency)
	}
}

func TestParse_CriticalAuthFailure(t *testing.T) {
	line := "CRITICAL: Authentication system failed"
	event := Parse(line, model.LogFileSpec{Type: "auto"})

	if !event.Semantics.HasAuth {
		t.Error("expected hasAuth semantic to be set")
	}
	if event.Urgency < 8 {
		t.Errorf("expected urgency >= 8, got %d", event.Urgency)
	}
}

func TestParse_Fallback(t *testing.T) {
	event := Parse("just some unstructured text", model.LogFileSpec{Type: "auto"})
	if event.Parser != string(FormatFallback) {
		t.Errorf("expected parser 'fallback', got %q", event.Parser)
	}
	if event.Level != model.LevelInfo {
		t.Errorf("expected level INFO for content with no keywords, got %s", event.Level)
	}
}

func TestNormalizeLevel_Idempotent(t *testing.T) {
	for _, raw := range []string{"error", "ERR", "warning", "notice", "trace"} {
		once := normalizeLevel(raw)
		twice := normalizeLevel(string(once))
		if once != twice {
			t.Errorf("normalizeLevel(%q) = %q, but normalizing again gave %q", raw, once, twice)
		}
	}
}

func TestScoreUrgency_ClampedToTen(t *testing.T) {
	sem := model.Semantics{HasDatabase: true, HasAuth: true, HasSecurity: true, HasMemory: true, HasStatusCode: true}
	score := scoreUrgency(model.LevelError, sem, "critical fatal timeout failed")
	if score != 10 {
		t.Errorf("expected urgency clamped to 10, got %d", score)
	}
}

func TestDetectFormat_JSONPriority(t *testing.T) {
	if detectFormat(`{"level":"info"}`) != FormatJSON {
		t.Error("expected leading '{' to route to JSON format")
	}
}
