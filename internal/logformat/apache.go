package logformat

import (
	"regexp"
	"strings"
	"time"

	"errwatch/internal/model"
)

// [Wed Oct 11 14:32:52 2023] [error] [pid 1234] [client 1.2.3.4:5] message
var apachePattern = regexp.MustCompile(`^\[([^\]]+)\] \[(\w+)\](?: \[pid \d+\])?(?: \[client [^\]]+\])? ?(.*)$`)

func parseApache(line string) (model.ParsedEvent, bool) {
	m := apachePattern.FindStringSubmatch(line)
	if m == nil {
		return model.ParsedEvent{}, false
	}

	ts, ok := parseTimestamp(apacheToISO(m[1]))
	if !ok {
		ts = time.Now().UTC()
	}

	return model.ParsedEvent{
		Timestamp: ts,
		Level:     normalizeLevel(m[2]),
		Message:   strings.TrimSpace(m[3]),
		Parser:    string(FormatApache),
	}, true
}

// apacheToISO reformats apache's "Wed Oct 11 14:32:52 2023" ctime-style
// timestamp into one parseTimestamp's layout table recognizes.
func apacheToISO(raw string) string {
	t, err := timeParseCtime(raw)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02 15:04:05")
}
