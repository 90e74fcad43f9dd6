package logformat

import (
	"strings"

	"errwatch/internal/model"
)

var levelAliases = map[string]model.Level{
	"E":        model.LevelError,
	"ERR":      model.LevelError,
	"FATAL":    model.LevelError,
	"CRITICAL": model.LevelError,
	"CRIT":     model.LevelError,
	"W":        model.LevelWarn,
	"WARNING":  model.LevelWarn,
	"NOTICE":   model.LevelInfo,
	"LOG":      model.LevelInfo,
	"TRACE":    model.LevelDebug,
	"VERBOSE":  model.LevelDebug,
}

// normalizeLevel maps a raw level token to one of the four canonical
// levels. Unknown tokens pass through uppercased; callers treat unknown
// values as INFO-equivalent for counting purposes. Idempotent: normalizing
// an already-canonical level returns it unchanged.
func normalizeLevel(raw string) model.Level {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	switch model.Level(upper) {
	case model.LevelError, model.LevelWarn, model.LevelInfo, model.LevelDebug:
		return model.Level(upper)
	}
	if mapped, ok := levelAliases[upper]; ok {
		return mapped
	}
	return model.Level(upper)
}

var (
	errorKeywords = []string{"error", "exception", "failed", "failure", "timeout", "refused", "denied", "fatal", "critical", "panic", "abort"}
	warnKeywords  = []string{"warning", "warn", "deprecated", "retry", "fallback", "slow"}
)

// detectLevelFromContent infers a level from message content when no
// level token is present in the line (e.g. syslog bodies).
func detectLevelFromContent(message string) model.Level {
	lower := strings.ToLower(message)
	for _, kw := range errorKeywords {
		if strings.Contains(lower, kw) {
			return model.LevelError
		}
	}
	for _, kw := range warnKeywords {
		if strings.Contains(lower, kw) {
			return model.LevelWarn
		}
	}
	return model.LevelInfo
}
