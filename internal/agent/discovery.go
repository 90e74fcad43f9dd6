package agent

import (
	"os"
	"path/filepath"
	"strings"

	"errwatch/internal/model"
)

// candidatePaths is the fixed probe set spec.md §4.3 names for
// auto-discovery when the configuration enumerates no files.
var candidatePaths = []string{
	"/var/log/syslog",
	"/var/log/messages",
	"/var/log/nginx/error.log",
	"/var/log/apache2/error.log",
	"/var/log/auth.log",
}

// discoverLogFiles probes the fixed candidate set and returns a
// LogFileSpec for each one that exists, with type inferred from the
// basename.
func discoverLogFiles() []model.LogFileSpec {
	var found []model.LogFileSpec
	for _, path := range candidatePaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		found = append(found, model.LogFileSpec{Path: path, Type: inferTypeFromPath(path)})
	}
	return found
}

// inferTypeFromPath maps a log file's basename to a parser format hint,
// falling back to "auto" when the name carries no signal.
func inferTypeFromPath(path string) string {
	base := strings.ToLower(filepath.Base(path))
	switch {
	case strings.Contains(base, "nginx"):
		return "nginx"
	case strings.Contains(base, "apache"):
		return "apache"
	case strings.Contains(base, "syslog"), strings.Contains(base, "messages"):
		return "syslog"
	case strings.HasSuffix(base, ".json"):
		return "json"
	default:
		return "auto"
	}
}
