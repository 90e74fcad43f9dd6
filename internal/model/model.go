// Package model holds the data types shared across the agent and server
// halves of the pipeline: parsed log events, agent identity and records,
// and the server-side stored error, pattern, and insight shapes.
package model

import "time"

// Level is a normalized log level.
type Level string

const (
	LevelError Level = "ERROR"
	LevelWarn  Level = "WARN"
	LevelInfo  Level = "INFO"
	LevelDebug Level = "DEBUG"
)

// LogFileSpec names a file an agent should tail and how to parse it.
// Immutable once configured.
type LogFileSpec struct {
	Path string `json:"path"`
	Type string `json:"type"` // nginx, apache, json, syslog, auto
}

// Semantics is the boolean feature vector extracted from a parsed message.
type Semantics struct {
	HasIPAddress  bool `json:"hasIpAddress"`
	HasURL        bool `json:"hasUrl"`
	HasStatusCode bool `json:"hasStatusCode"`
	HasTimestamp  bool `json:"hasTimestamp"`
	HasDatabase   bool `json:"hasDatabase"`
	HasNetwork    bool `json:"hasNetwork"`
	HasAuth       bool `json:"hasAuth"`
	HasMemory     bool `json:"hasMemory"`
	HasSecurity   bool `json:"hasSecurity"`
}

// ParsedEvent is the structured result of parsing one raw log line.
type ParsedEvent struct {
	Timestamp    time.Time         `json:"timestamp"`
	Level        Level             `json:"level"`
	Message      string            `json:"message"`
	OriginalLine string            `json:"originalLine"`
	Parser       string            `json:"parser"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Semantics    Semantics         `json:"semantics"`
	Urgency      int               `json:"urgency"`
}

// Platform describes the host an agent is running on.
type Platform struct {
	Hostname       string `json:"hostname"`
	OS             string `json:"platform"`
	Arch           string `json:"arch"`
	RuntimeVersion string `json:"runtimeVersion"`
	Memory         uint64 `json:"memory"`
}

// AgentIdentity is the static identity an agent announces on register.
type AgentIdentity struct {
	ServerID   string        `json:"serverId"`
	ServerName string        `json:"serverName"`
	Platform   Platform      `json:"platform"`
	LogFiles   []LogFileSpec `json:"logFiles"`
}

// AgentStatus is the liveness state the server tracks for an agent.
type AgentStatus string

const (
	AgentOnline  AgentStatus = "online"
	AgentOffline AgentStatus = "offline"
)

// AgentRecord is the server-side bookkeeping for one agent.
type AgentRecord struct {
	AgentIdentity
	Status        AgentStatus `json:"status"`
	ErrorCount    int64       `json:"errorCount"`
	WarningCount  int64       `json:"warningCount"`
	SuccessCount  int64       `json:"successCount"`
	RegisteredAt  time.Time   `json:"registeredAt"`
	LastSeen      time.Time   `json:"lastSeen"`
	TransportID   string      `json:"-"`
}

// Trend is the recent-occurrence classification of a stored error.
type Trend string

const (
	TrendNew        Trend = "new"
	TrendStable     Trend = "stable"
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
)

// Severity is the coarse triage bucket of a stored error.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// StoredError is one deduplicated error record held by the Memory Store.
// Identity is the fingerprint (ServerID, LogFile, normalized ErrorMessage).
type StoredError struct {
	ID           string    `json:"id"`
	ServerID     string    `json:"serverId"`
	ServerName   string    `json:"serverName"`
	LogFile      string    `json:"logFile"`
	LineNumber   int64     `json:"lineNumber"`
	Timestamp    time.Time `json:"timestamp"`
	ErrorMessage string    `json:"errorMessage"`
	Parser       string    `json:"parser"`
	Urgency      int       `json:"urgency"`
	Semantics    Semantics `json:"semantics"`
	Severity     Severity  `json:"severity"`
	Category     string    `json:"category"`
	Count        int       `json:"count"`
	FirstSeen    time.Time `json:"firstSeen"`
	LastSeen     time.Time `json:"lastSeen"`
	Trend        Trend     `json:"trend"`
}

// PatternEntry tracks cross-server recurrence of a normalized message.
type PatternEntry struct {
	Normalized string
	Count      int
	ServerSet  map[string]struct{}
	LastSeen   time.Time
}

// InsightType distinguishes the three kinds of derived insight.
type InsightType string

const (
	InsightPattern        InsightType = "pattern"
	InsightAnomaly        InsightType = "anomaly"
	InsightRecommendation InsightType = "recommendation"
)

// Insight is a derived fact about the error corpus, replaced wholesale on
// every ingest.
type Insight struct {
	Type        InsightType `json:"type"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Confidence  int         `json:"confidence"`
	Pattern     string      `json:"pattern,omitempty"`
}

// StatsSummary is the cross-agent totals served at /api/stats.
type StatsSummary struct {
	TotalErrors    int64 `json:"totalErrors"`
	TotalSuccess   int64 `json:"totalSuccess"`
	TotalWarnings  int64 `json:"totalWarnings"`
	TotalServers   int   `json:"totalServers"`
	OnlineServers  int   `json:"onlineServers"`
}
