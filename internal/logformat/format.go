// Package logformat implements the Smart Log Parser: format
// auto-detection, field extraction, level normalization, semantic feature
// extraction, and urgency scoring for one raw log line.
//
// Dispatch is modeled as a tagged variant (Format) plus a table of pure
// extraction functions, not as an interface hierarchy: each function takes
// a line and returns a ParsedEvent, or false if that format doesn't
// recognize the line. Only Parse looks at the LogFileSpec, to pick the
// format.
package logformat

import (
	"regexp"
	"strings"

	"errwatch/internal/model"
)

// Format is the tagged variant identifying which extraction function
// produced (or should attempt to produce) a ParsedEvent.
type Format string

const (
	FormatJSON     Format = "json"
	FormatNginx    Format = "nginx"
	FormatApache   Format = "apache"
	FormatSyslog   Format = "syslog"
	FormatGeneric  Format = "generic"
	FormatFallback Format = "fallback"
)

// extractFunc is a pure function attempting to parse line under a given
// format. It returns ok=false when the line does not match that format,
// letting the caller fall through to the next candidate.
type extractFunc func(line string) (model.ParsedEvent, bool)

// dispatch maps each named format to its extraction function. Generic and
// fallback are handled specially: generic always succeeds (trying its own
// internal pattern list before a last-resort keyword-inference path), so
// it never needs a fallthrough of its own.
var dispatch = map[Format]extractFunc{
	FormatJSON:    parseJSON,
	FormatNginx:   parseNginx,
	FormatApache:  parseApache,
	FormatSyslog:  parseSyslog,
	FormatGeneric: parseGeneric,
}

var syslogPrefix = regexp.MustCompile(`^\w{3}\s+\d{1,2} \d{2}:\d{2}:\d{2} \S+ \S+`)

// detectFormat routes a line to a format by content, used when spec.Type
// is "auto" or empty.
func detectFormat(line string) Format {
	trimmed := strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(trimmed, "{"):
		return FormatJSON
	case strings.Contains(line, "nginx"):
		return FormatNginx
	case strings.Contains(line, "apache"):
		return FormatApache
	case syslogPrefix.MatchString(line):
		return FormatSyslog
	default:
		return FormatGeneric
	}
}

// Parse is the Log Parser's public contract: a total function from a raw
// line and its file spec to a ParsedEvent. It never errors; unparseable
// lines fall through to the generic parser and ultimately to the
// fallback path inside parseGeneric.
func Parse(line string, spec model.LogFileSpec) model.ParsedEvent {
	format := Format(spec.Type)
	if format == "" || format == "auto" {
		format = detectFormat(line)
	}

	if fn, ok := dispatch[format]; ok {
		if event, ok := fn(line); ok {
			return finish(event, line)
		}
	}

	// Either an unknown/named format failed, or auto-detection chose a
	// format whose extractor declined the line. Fall through to generic.
	event, _ := parseGeneric(line)
	return finish(event, line)
}

// finish fills in the fields every extractor can skip: OriginalLine and
// the semantic feature vector, which is derived from the final message
// body regardless of which format produced it.
func finish(event model.ParsedEvent, line string) model.ParsedEvent {
	event.OriginalLine = line
	event.Semantics = extractSemantics(event.Message)
	event.Urgency = scoreUrgency(event.Level, event.Semantics, event.Message)
	return event
}
