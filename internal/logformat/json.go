package logformat

import (
	"encoding/json"
	"strings"
	"time"

	"errwatch/internal/model"
)

// parseJSON decodes a JSON log line and extracts timestamp/level/message
// under their common aliases. On decode failure it delegates to the
// generic parser rather than reporting an error, matching the parser's
// total-function contract.
func parseJSON(line string) (model.ParsedEvent, bool) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return parseGeneric(line)
	}

	tsRaw := firstString(raw, "timestamp", "time", "@timestamp")
	ts, ok := parseTimestamp(tsRaw)
	if !ok {
		ts = time.Now().UTC()
	}

	levelRaw := firstString(raw, "level", "severity")
	level := normalizeLevel(levelRaw)
	if levelRaw == "" {
		level = detectLevelFromContent(firstString(raw, "message", "msg", "text"))
	}

	message := strings.TrimSpace(firstString(raw, "message", "msg", "text"))

	metadata := map[string]string{}
	for _, key := range []string{"service", "hostname", "host", "trace_id", "traceId", "request_id", "requestId"} {
		if v := firstString(raw, key); v != "" {
			metadata[key] = v
		}
	}

	return model.ParsedEvent{
		Timestamp: ts,
		Level:     level,
		Message:   message,
		Parser:    string(FormatJSON),
		Metadata:  metadata,
	}, true
}

// firstString returns the first non-empty string value found under any of
// the given keys in a decoded JSON object, or "" if none match or the
// value isn't a string. Mirrors the safe, duck-typed map extraction the
// rest of this codebase's JSON-ingesting code favors over struct tags,
// since the key set varies by upstream log shape.
func firstString(raw map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
