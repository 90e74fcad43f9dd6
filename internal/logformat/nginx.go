package logformat

import (
	"regexp"
	"strings"
	"time"

	"errwatch/internal/model"
)

// 2024/01/15 10:30:15 [error] 1234#5678: *42 connect() failed ...
var nginxPattern = regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}) \[(\w+)\] \d+#\d+: (?:\*\d+ )?(.*)$`)

func parseNginx(line string) (model.ParsedEvent, bool) {
	m := nginxPattern.FindStringSubmatch(line)
	if m == nil {
		return model.ParsedEvent{}, false
	}

	ts, ok := parseNginxTimestamp(m[1])
	if !ok {
		ts = time.Now().UTC()
	}

	return model.ParsedEvent{
		Timestamp: ts,
		Level:     normalizeLevel(m[2]),
		Message:   strings.TrimSpace(m[3]),
		Parser:    string(FormatNginx),
	}, true
}
