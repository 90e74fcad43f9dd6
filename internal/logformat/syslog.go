package logformat

import (
	"regexp"
	"strings"
	"time"

	"errwatch/internal/model"
)

// Jan 15 10:30:15 myhost sshd[1234]: Failed password for invalid user
var syslogLinePattern = regexp.MustCompile(`^(\w{3}\s+\d{1,2} \d{2}:\d{2}:\d{2}) (\S+) (\S+?)(?:\[\d+\])?: (.*)$`)

// parseSyslog extracts the syslog envelope. Syslog carries no level
// token, so the level is inferred from the body via keyword matching.
func parseSyslog(line string) (model.ParsedEvent, bool) {
	m := syslogLinePattern.FindStringSubmatch(line)
	if m == nil {
		return model.ParsedEvent{}, false
	}

	now := time.Now().UTC()
	ts, ok := parseSyslogTimestamp(m[1], now)
	if !ok {
		ts = now
	}

	body := strings.TrimSpace(m[4])
	return model.ParsedEvent{
		Timestamp: ts,
		Level:     detectLevelFromContent(body),
		Message:   body,
		Parser:    string(FormatSyslog),
		Metadata: map[string]string{
			"hostname": m[2],
			"service":  m[3],
		},
	}, true
}
