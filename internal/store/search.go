package store

import (
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"errwatch/internal/model"
)

const (
	searchCap        = 100
	defaultRecentCap = 50
	fuzzyCap         = 20
)

var serverCuePattern = regexp.MustCompile(`(?i)server[- ]?(\w+)`)

type filterFunc func(model.StoredError) bool

// Search implements C7: translate a free-text query into a conjunctive
// filter chain over cue tokens, falling back to substring search when no
// cue matched, and finally to fuzzy matching when even that finds
// nothing (an additive tier this expansion introduces for the
// previously-undefined "nothing matched" case).
func (s *Store) Search(query string) []model.StoredError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	errs := s.errors

	query = strings.TrimSpace(query)
	if query == "" {
		return s.snapshotFromPointers(errs, defaultRecentCap)
	}

	filters := buildFilterChain(query)
	if len(filters) > 0 {
		matched := applyFilters(errs, filters)
		return s.snapshotFromPointers(matched, searchCap)
	}

	lowerQ := strings.ToLower(query)
	var substringMatches []*model.StoredError
	for _, e := range errs {
		if strings.Contains(strings.ToLower(e.ErrorMessage), lowerQ) ||
			strings.Contains(strings.ToLower(e.ServerName), lowerQ) ||
			strings.Contains(strings.ToLower(e.Category), lowerQ) {
			substringMatches = append(substringMatches, e)
		}
	}
	if len(substringMatches) > 0 {
		return s.snapshotFromPointers(substringMatches, searchCap)
	}

	var fuzzyMatches []*model.StoredError
	for _, e := range errs {
		if fuzzy.MatchFold(query, e.ErrorMessage) {
			fuzzyMatches = append(fuzzyMatches, e)
			if len(fuzzyMatches) >= fuzzyCap {
				break
			}
		}
	}
	return s.snapshotFromPointers(fuzzyMatches, fuzzyCap)
}

// buildFilterChain matches cue tokens case-insensitively against q and
// returns one filterFunc per matched cue, per spec.md §4.7.
func buildFilterChain(q string) []filterFunc {
	lower := strings.ToLower(q)
	var chain []filterFunc

	if strings.Contains(lower, "critical") || strings.Contains(lower, "urgent") {
		chain = append(chain, func(e model.StoredError) bool { return e.Severity == model.SeverityCritical })
	}
	if strings.Contains(lower, "database") || strings.Contains(lower, "db") {
		chain = append(chain, func(e model.StoredError) bool { return e.Category == "Database Connectivity" })
	}
	if strings.Contains(lower, "timeout") {
		chain = append(chain, func(e model.StoredError) bool {
			return strings.Contains(strings.ToLower(e.ErrorMessage), "timeout")
		})
	}
	if strings.Contains(lower, "new") || strings.Contains(lower, "recent") {
		chain = append(chain, func(e model.StoredError) bool {
			return e.Trend == model.TrendNew || e.Trend == model.TrendIncreasing
		})
	}
	if m := serverCuePattern.FindStringSubmatch(q); m != nil {
		word := strings.ToLower(m[1])
		chain = append(chain, func(e model.StoredError) bool {
			return strings.Contains(strings.ToLower(e.ServerID), word) ||
				strings.Contains(strings.ToLower(e.ServerName), word)
		})
	}

	return chain
}

func applyFilters(errs []*model.StoredError, filters []filterFunc) []*model.StoredError {
	var out []*model.StoredError
	for _, e := range errs {
		ok := true
		for _, f := range filters {
			if !f(*e) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) snapshotFromPointers(errs []*model.StoredError, limit int) []model.StoredError {
	if limit > 0 && limit < len(errs) {
		errs = errs[:limit]
	}
	out := make([]model.StoredError, len(errs))
	for i, e := range errs {
		out[i] = *e
	}
	return out
}
