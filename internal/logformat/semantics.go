package logformat

import (
	"regexp"
	"strings"

	"errwatch/internal/model"
)

var (
	ipAddressPattern = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	urlPattern       = regexp.MustCompile(`https?://\S+`)
	statusCodePattern = regexp.MustCompile(`\b[4-5]\d{2}\b`)
	timestampPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`)

	databaseKeywords = []string{"database", "db", "mysql", "postgres", "mongo", "sql"}
	networkKeywords  = []string{"network", "dns", "connection", "socket", "unreachable"}
	authKeywords     = []string{"auth", "login", "password", "token", "credential", "permission"}
	memoryKeywords   = []string{"memory", "heap", "oom", "out of memory", "stack overflow"}
	securityKeywords = []string{"security", "attack", "breach", "suspicious", "firewall", "exploit"}
)

// extractSemantics derives the boolean feature vector from a message body.
func extractSemantics(message string) model.Semantics {
	lower := strings.ToLower(message)
	return model.Semantics{
		HasIPAddress:  ipAddressPattern.MatchString(message),
		HasURL:        urlPattern.MatchString(message),
		HasStatusCode: statusCodePattern.MatchString(message),
		HasTimestamp:  timestampPattern.MatchString(message),
		HasDatabase:   containsAny(lower, databaseKeywords),
		HasNetwork:    containsAny(lower, networkKeywords),
		HasAuth:       containsAny(lower, authKeywords),
		HasMemory:     containsAny(lower, memoryKeywords),
		HasSecurity:   containsAny(lower, securityKeywords),
	}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
