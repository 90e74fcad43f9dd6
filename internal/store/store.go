// Package store implements the Memory Store (C4): deduplication by
// message normalization, severity/category inference, rolling trend
// classification, a bounded cross-server pattern table, and insight
// generation. The whole store is one value behind a single mutex, per
// spec.md §5's serialization requirement.
package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pterm/pterm"

	"errwatch/internal/model"
)

// IncomingError is the input to AddError: the fields an ingested error
// frame carries before it becomes (or merges into) a StoredError.
type IncomingError struct {
	ServerID     string
	ServerName   string
	LogFile      string
	LineNumber   int64
	Timestamp    time.Time
	ErrorMessage string
	Parser       string
	Urgency      int
	Semantics    model.Semantics
}

// Store holds the bounded, volatile corpus of deduplicated errors, the
// cross-server pattern table, and the derived insight list.
type Store struct {
	mu sync.RWMutex

	maxErrors   int
	trendWindow time.Duration
	logger      *pterm.Logger

	// errors is most-recent-first; trimmed to maxErrors on insert.
	errors        []*model.StoredError
	byFingerprint map[string]*model.StoredError

	patterns *lru.Cache[string, *model.PatternEntry]
	insights []model.Insight
}

// New constructs an empty Store. patternTableSize bounds the LRU pattern
// table (spec.md §9's open question on unbounded pattern growth; sized by
// callers to maxErrors*4).
func New(maxErrors, patternTableSize int, trendWindow time.Duration, logger *pterm.Logger) *Store {
	if patternTableSize <= 0 {
		patternTableSize = maxErrors * 4
	}
	cache, _ := lru.New[string, *model.PatternEntry](patternTableSize)
	return &Store{
		maxErrors:     maxErrors,
		trendWindow:   trendWindow,
		logger:        logger,
		byFingerprint: make(map[string]*model.StoredError),
		patterns:      cache,
	}
}

// AddError is the Store's core contract. Idempotent under fingerprint: a
// repeated fingerprint increments count, refreshes lastSeen, and
// recomputes trend on the existing record; a new fingerprint constructs a
// fresh record, prepends it, and trims to maxErrors. Either branch updates
// the pattern table and re-derives insights before returning.
func (s *Store) AddError(in IncomingError) model.StoredError {
	s.mu.Lock()
	defer s.mu.Unlock()

	fp := fingerprint(in.ServerID, in.LogFile, in.ErrorMessage)
	now := in.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	if existing, ok := s.byFingerprint[fp]; ok {
		existing.Count++
		existing.LastSeen = now
		existing.Trend = s.computeTrend(existing)
		s.touchPattern(existing.ErrorMessage, existing.ServerID, now)
		s.deriveInsightsLocked()
		return *existing
	}

	record := &model.StoredError{
		ID:           uuid.NewString(),
		ServerID:     in.ServerID,
		ServerName:   in.ServerName,
		LogFile:      in.LogFile,
		LineNumber:   in.LineNumber,
		Timestamp:    now,
		ErrorMessage: in.ErrorMessage,
		Parser:       in.Parser,
		Urgency:      in.Urgency,
		Semantics:    in.Semantics,
		Severity:     classifySeverity(in.ErrorMessage),
		Category:     categorize(in.ErrorMessage),
		Count:        1,
		FirstSeen:    now,
		LastSeen:     now,
		Trend:        model.TrendNew,
	}

	s.byFingerprint[fp] = record
	s.errors = append([]*model.StoredError{record}, s.errors...)
	s.trimLocked()
	s.touchPattern(record.ErrorMessage, record.ServerID, now)
	s.deriveInsightsLocked()

	return *record
}

// trimLocked enforces the maxErrors bound, discarding the oldest entries
// by insertion order (the tail of the most-recent-first slice). Caller
// must hold s.mu.
func (s *Store) trimLocked() {
	if s.maxErrors <= 0 || len(s.errors) <= s.maxErrors {
		return
	}
	for _, dropped := range s.errors[s.maxErrors:] {
		delete(s.byFingerprint, fingerprint(dropped.ServerID, dropped.LogFile, dropped.ErrorMessage))
	}
	s.errors = s.errors[:s.maxErrors]
}

func (s *Store) touchPattern(message, serverID string, at time.Time) {
	key := normalize(message)
	entry, ok := s.patterns.Get(key)
	if !ok {
		entry = &model.PatternEntry{
			Normalized: key,
			ServerSet:  make(map[string]struct{}),
		}
	}
	entry.Count++
	entry.ServerSet[serverID] = struct{}{}
	entry.LastSeen = at
	s.patterns.Add(key, entry)
}

// computeTrend classifies the recurrence rate of e's normalized message
// against the *other* stored errors sharing that key within the
// configured trend window. Caller must hold s.mu.
func (s *Store) computeTrend(e *model.StoredError) model.Trend {
	key := normalize(e.ErrorMessage)
	cutoff := e.LastSeen.Add(-s.trendWindow)

	recent := 0
	for _, other := range s.errors {
		if other == e {
			continue
		}
		if normalize(other.ErrorMessage) != key {
			continue
		}
		if other.LastSeen.After(cutoff) {
			recent++
		}
	}

	switch {
	case recent == 0:
		return model.TrendNew
	case recent > 5:
		return model.TrendIncreasing
	case recent < 2:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

// Errors returns a snapshot copy of the most-recent-first error list,
// capped at limit (0 means no cap).
func (s *Store) Errors(limit int) []model.StoredError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(s.errors, limit)
}

func (s *Store) snapshotLocked(errs []*model.StoredError, limit int) []model.StoredError {
	if limit > 0 && limit < len(errs) {
		errs = errs[:limit]
	}
	out := make([]model.StoredError, len(errs))
	for i, e := range errs {
		out[i] = *e
	}
	return out
}

// Insights returns a snapshot of the current (top-5) insight list.
func (s *Store) Insights() []model.Insight {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Insight, len(s.insights))
	copy(out, s.insights)
	return out
}

// Len returns the current number of stored (deduplicated) errors.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.errors)
}

// deriveInsightsLocked rebuilds the insight list from scratch, replacing
// it wholesale, as spec.md §4.4 requires on every ingest. Caller must
// hold s.mu.
func (s *Store) deriveInsightsLocked() {
	var produced []model.Insight

	for _, key := range s.patterns.Keys() {
		entry, ok := s.patterns.Peek(key)
		if !ok {
			continue
		}
		if entry.Count > 5 && len(entry.ServerSet) > 1 {
			confidence := 60 + 2*entry.Count
			if confidence > 95 {
				confidence = 95
			}
			produced = append(produced, model.Insight{
				Type:        model.InsightPattern,
				Title:       "Cross-server error pattern detected",
				Description: "The same error pattern has recurred across multiple servers.",
				Confidence:  confidence,
				Pattern:     entry.Normalized,
			})
		}
	}

	cutoff := time.Now().UTC().Add(-s.trendWindow)
	var recent []*model.StoredError
	for _, e := range s.errors {
		if e.LastSeen.After(cutoff) {
			recent = append(recent, e)
		}
	}
	if len(recent) > 10 {
		counts := map[string]int{}
		for _, e := range recent {
			counts[e.Category]++
		}
		topCategory, topCount := "", 0
		for cat, c := range counts {
			if c > topCount {
				topCategory, topCount = cat, c
			}
		}
		if topCount > 3 {
			pct := 100 * topCount / len(recent)
			produced = append(produced, model.Insight{
				Type:        model.InsightAnomaly,
				Title:       "Error category spike detected",
				Description: categorySpikeDescription(topCategory, topCount, pct),
				Confidence:  85,
			})
		}
	}

	dbCount := 0
	for _, e := range s.errors {
		if e.Category == "Database Connectivity" {
			dbCount++
		}
	}
	if dbCount > 3 {
		produced = append(produced, model.Insight{
			Type:        model.InsightRecommendation,
			Title:       "Review database connectivity configuration",
			Description: "Recurring database connectivity errors suggest a configuration or capacity issue.",
			Confidence:  78,
		})
	}

	sort.SliceStable(produced, func(i, j int) bool {
		return produced[i].Confidence > produced[j].Confidence
	})
	if len(produced) > 5 {
		produced = produced[:5]
	}
	s.insights = produced
}
