package logformat

import (
	"strings"

	"errwatch/internal/model"
)

var levelBase = map[model.Level]int{
	model.LevelError: 8,
	model.LevelWarn:  4,
	model.LevelInfo:  1,
	model.LevelDebug: 0,
}

// scoreUrgency combines the level base score, semantic feature boosts, and
// keyword boosts in the original message, clamped to [0, 10].
func scoreUrgency(level model.Level, sem model.Semantics, message string) int {
	score := levelBase[level] // unknown levels default to 0 via zero value

	if sem.HasDatabase {
		score += 2
	}
	if sem.HasNetwork {
		score += 1
	}
	if sem.HasAuth {
		score += 3
	}
	if sem.HasSecurity {
		score += 5
	}
	if sem.HasMemory {
		score += 2
	}
	if sem.HasStatusCode {
		score += 1
	}

	lower := strings.ToLower(message)
	if strings.Contains(lower, "critical") || strings.Contains(lower, "fatal") {
		score += 3
	}
	if strings.Contains(lower, "timeout") {
		score += 2
	}
	if strings.Contains(lower, "failed") || strings.Contains(lower, "failure") {
		score += 2
	}

	if score > 10 {
		score = 10
	}
	if score < 0 {
		score = 0
	}
	return score
}
