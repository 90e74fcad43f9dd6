package store

import (
	"testing"
	"time"

	"github.com/pterm/pterm"

	"errwatch/internal/model"
)

func newTestStore() *Store {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	return New(1000, 0, 60*time.Minute, logger)
}

func TestAddError_IdempotentUnderFingerprint(t *testing.T) {
	s := newTestStore()
	in := IncomingError{ServerID: "a", LogFile: "/var/log/app.log", ErrorMessage: "Database connection failed", Timestamp: time.Now().UTC()}

	first := s.AddError(in)
	second := s.AddError(in)

	if first.ID != second.ID {
		t.Errorf("expected same record id across duplicate fingerprints, got %s and %s", first.ID, second.ID)
	}
	if second.Count != 2 {
		t.Errorf("expected count 2 after second identical error, got %d", second.Count)
	}
	if s.Len() != 1 {
		t.Errorf("expected exactly one stored error, got %d", s.Len())
	}
}

func TestAddError_BoundedByMaxErrors(t *testing.T) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	s := New(3, 0, 60*time.Minute, logger)

	for i := 0; i < 5; i++ {
		s.AddError(IncomingError{
			ServerID:     "a",
			LogFile:      "/var/log/app.log",
			ErrorMessage: "unique error " + string(rune('A'+i)),
			Timestamp:    time.Now().UTC(),
		})
	}

	if s.Len() != 3 {
		t.Errorf("expected store trimmed to maxErrors=3, got %d", s.Len())
	}
}

func TestCategorize_Deterministic(t *testing.T) {
	m1 := "Database connection failed"
	m2 := "Database connection failed"
	if categorize(m1) != categorize(m2) {
		t.Error("expected categorize to be deterministic for identical messages")
	}
	if categorize(m1) != "Database Connectivity" {
		t.Errorf("expected 'Database Connectivity', got %q", categorize(m1))
	}
}

func TestClassifySeverity_CriticalAuthFailure(t *testing.T) {
	if got := classifySeverity("CRITICAL: Authentication system failed"); got != model.SeverityCritical {
		t.Errorf("expected severity critical, got %s", got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	m := "Request abc123 failed at 2025-08-01T10:30:15Z with code 500"
	once := normalize(m)
	twice := normalize(once)
	if once != twice {
		t.Errorf("expected normalize to be idempotent, got %q then %q", once, twice)
	}
}

func TestCrossServerPattern_ProducesInsight(t *testing.T) {
	s := newTestStore()
	message := "Database connection failed"

	for i := 0; i < 6; i++ {
		s.AddError(IncomingError{ServerID: "agent-a", LogFile: "/var/log/app.log", ErrorMessage: message, Timestamp: time.Now().UTC()})
	}
	for i := 0; i < 6; i++ {
		s.AddError(IncomingError{ServerID: "agent-b", LogFile: "/var/log/app.log", ErrorMessage: message, Timestamp: time.Now().UTC()})
	}

	found := false
	for _, insight := range s.Insights() {
		if insight.Type == model.InsightPattern {
			found = true
		}
	}
	if !found {
		t.Error("expected a pattern insight after two agents each reported 6 matching errors")
	}
	if s.Len() != 2 {
		t.Errorf("expected two distinct StoredErrors (one per agent), got %d", s.Len())
	}
}

func TestSearch_CriticalDatabaseCue(t *testing.T) {
	s := newTestStore()
	s.AddError(IncomingError{ServerID: "a", LogFile: "app.log", ErrorMessage: "CRITICAL: Database connection failed", Timestamp: time.Now().UTC()})
	s.AddError(IncomingError{ServerID: "a", LogFile: "app.log", ErrorMessage: "Authentication failed for user", Timestamp: time.Now().UTC()})

	results := s.Search("critical database")
	if len(results) != 1 {
		t.Fatalf("expected exactly one result, got %d", len(results))
	}
	if results[0].Category != "Database Connectivity" {
		t.Errorf("expected the Database Connectivity error, got %q", results[0].Category)
	}
}

func TestSearch_EmptyQueryReturnsRecent(t *testing.T) {
	s := newTestStore()
	s.AddError(IncomingError{ServerID: "a", LogFile: "app.log", ErrorMessage: "some error", Timestamp: time.Now().UTC()})

	results := s.Search("")
	if len(results) != 1 {
		t.Fatalf("expected one recent result, got %d", len(results))
	}
}
