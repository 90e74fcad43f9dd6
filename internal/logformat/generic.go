package logformat

import (
	"regexp"
	"strings"
	"time"

	"errwatch/internal/model"
)

const levelToken = `(ERROR|WARNING|WARN|CRITICAL|FATAL|CRIT|NOTICE|TRACE|VERBOSE|INFO|DEBUG|LOG|E|W)`

var (
	genericBracketTS = regexp.MustCompile(`^\[([^\]]+)\]\s*` + levelToken + `[:\s]+(.*)$`)
	genericISOLevel  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?Z?)\s+` + levelToken + `[:\s]*(.*)$`)
	genericLevelOnly = regexp.MustCompile(`^` + levelToken + `[:\s]+(.*)$`)
)

// parseGeneric tries the three generic layouts in order, falling back to
// pure keyword-based level inference over the whole trimmed line. Unlike
// the other extractors it always succeeds (ok is always true), since it
// is the format of last resort.
func parseGeneric(line string) (model.ParsedEvent, bool) {
	if m := genericBracketTS.FindStringSubmatch(line); m != nil {
		ts, ok := parseTimestamp(m[1])
		if !ok {
			ts = time.Now().UTC()
		}
		return model.ParsedEvent{
			Timestamp: ts,
			Level:     normalizeLevel(m[2]),
			Message:   strings.TrimSpace(m[3]),
			Parser:    string(FormatGeneric),
		}, true
	}

	if m := genericISOLevel.FindStringSubmatch(line); m != nil {
		ts, ok := parseTimestamp(m[1])
		if !ok {
			ts = time.Now().UTC()
		}
		return model.ParsedEvent{
			Timestamp: ts,
			Level:     normalizeLevel(m[2]),
			Message:   strings.TrimSpace(m[3]),
			Parser:    string(FormatGeneric),
		}, true
	}

	if m := genericLevelOnly.FindStringSubmatch(line); m != nil {
		return model.ParsedEvent{
			Timestamp: time.Now().UTC(),
			Level:     normalizeLevel(m[1]),
			Message:   strings.TrimSpace(m[2]),
			Parser:    string(FormatGeneric),
		}, true
	}

	trimmed := strings.TrimSpace(line)
	return model.ParsedEvent{
		Timestamp: time.Now().UTC(),
		Level:     detectLevelFromContent(trimmed),
		Message:   trimmed,
		Parser:    string(FormatFallback),
	}, true
}
