package logformat

import (
	"fmt"
	"strings"
	"time"
)

var timestampLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"02/Jan/2006:15:04:05 -0700", // apache/CLF long form
}

// parseTimestamp tries ISO-8601, the space-separated "YYYY-MM-DD HH:MM:SS"
// family, and apache long form. nginx timestamps use "/" date separators
// and must be pre-translated to "-" by the caller before reaching here.
// Any unparseable value yields the zero-value bool and the caller
// substitutes "now".
func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// parseSyslogTimestamp handles the bare "Mon DD HH:MM:SS" form syslog
// carries, which has no year: the current year is assumed.
func parseSyslogTimestamp(raw string, now time.Time) (time.Time, bool) {
	withYear := fmt.Sprintf("%s %d", strings.TrimSpace(raw), now.Year())
	t, err := time.Parse("Jan 2 15:04:05 2006", withYear)
	if err != nil {
		// syslog sometimes pads day with two spaces for single digits
		t, err = time.Parse("Jan  2 15:04:05 2006", withYear)
		if err != nil {
			return time.Time{}, false
		}
	}
	return t.UTC(), true
}

// parseNginxTimestamp handles nginx's "YYYY/MM/DD HH:MM:SS" form by
// replacing the "/" date separators with "-" before delegating.
func parseNginxTimestamp(raw string) (time.Time, bool) {
	return parseTimestamp(strings.Replace(strings.Replace(raw, "/", "-", 1), "/", "-", 1))
}

// timeParseCtime parses apache's ctime-style "Wed Oct 11 14:32:52 2023".
func timeParseCtime(raw string) (time.Time, error) {
	return time.Parse("Mon Jan 2 15:04:05 2006", strings.TrimSpace(raw))
}
