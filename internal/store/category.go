package store

import "strings"

// categoryRule pairs a category name with its keyword set. Order matters:
// categorize returns the first rule whose keyword set matches, so this
// slice's order is the tie-breaking priority spec.md's glossary defines.
type categoryRule struct {
	name     string
	keywords []string
}

var categoryRules = []categoryRule{
	{"Database Connectivity", []string{"connection", "timeout", "database", "db", "mysql", "postgres", "mongo"}},
	{"Authentication", []string{"auth", "login", "password", "token", "permission", "unauthorized", "401", "403"}},
	{"Network Issues", []string{"network", "dns", "host", "unreachable", "connection refused", "timeout"}},
	{"File System", []string{"file", "directory", "permission denied", "disk", "space", "io error"}},
	{"Memory Issues", []string{"memory", "oom", "heap", "stack overflow", "out of memory"}},
	{"Data Processing", []string{"json", "parse", "format", "invalid", "malformed", "corrupt"}},
	{"Resource Management", []string{"queue", "pool", "limit", "capacity", "overflow", "resource"}},
	{"Configuration", []string{"config", "setting", "parameter", "missing", "invalid config"}},
	{"API Issues", []string{"api", "endpoint", "route", "404", "500", "service unavailable"}},
	{"Security", []string{"security", "attack", "breach", "suspicious", "blocked", "firewall"}},
}

const categoryGeneral = "General"

// categorize is deterministic in its input: the first rule in
// categoryRules whose keyword set matches wins. Unmatched messages fall
// back to General.
func categorize(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.name
			}
		}
	}
	return categoryGeneral
}
