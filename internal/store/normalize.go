package store

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	isoTimestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(\.\d{3})?Z?`)
	bareIntegerPattern  = regexp.MustCompile(`\b\d+\b`)
	uuidPattern         = regexp.MustCompile(`[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`)
)

// normalize turns a raw error message into the timestamp/number/UUID-free
// lowercase key used both as the fingerprint component and the pattern
// table key. It is idempotent: normalize(normalize(m)) == normalize(m).
func normalize(message string) string {
	n := strings.ToLower(strings.TrimSpace(message))
	n = uuidPattern.ReplaceAllString(n, "uuid")
	n = isoTimestampPattern.ReplaceAllString(n, "timestamp")
	n = bareIntegerPattern.ReplaceAllString(n, "number")
	return n
}

// fingerprint is the Memory Store's dedup key: (serverId, logFile,
// normalize(errorMessage)).
func fingerprint(serverID, logFile, errorMessage string) string {
	return fmt.Sprintf("%s\x00%s\x00%s", serverID, logFile, normalize(errorMessage))
}
