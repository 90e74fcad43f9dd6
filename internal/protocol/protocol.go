// Package protocol defines the JSON frame shapes exchanged over the
// agent-to-server transport and the server-to-dashboard broadcast
// transport. Both are gorilla/websocket text connections carrying one
// JSON object per frame: { "type": ..., "data": ... }.
package protocol

import (
	"encoding/json"
	"time"
)

// FrameType names the kind of message carried in a Frame's Data.
type FrameType string

const (
	// Agent -> server
	FrameRegister FrameType = "register"
	FrameError    FrameType = "error"
	FrameStats    FrameType = "stats"

	// Server -> dashboard
	FrameServers   FrameType = "servers"
	FrameErrors    FrameType = "errors"
	FrameNewError  FrameType = "newError"
	FrameInsights  FrameType = "insights"
)

// Frame is the envelope for every message on either transport.
type Frame struct {
	Type FrameType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode wraps a typed payload into a Frame ready to marshal.
func Encode(t FrameType, payload any) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Data: raw}, nil
}

// RegisterData is the payload of a register frame.
type RegisterData struct {
	ServerID   string            `json:"serverId"`
	ServerName string            `json:"serverName"`
	LogFiles   []string          `json:"logFiles"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version"`
	Platform   RegisterPlatform  `json:"platform"`
}

// RegisterPlatform mirrors model.Platform on the wire.
type RegisterPlatform struct {
	Hostname       string `json:"hostname"`
	Platform       string `json:"platform"`
	Arch           string `json:"arch"`
	RuntimeVersion string `json:"runtimeVersion"`
	Memory         uint64 `json:"memory"`
}

// ErrorData is the payload of an error frame.
type ErrorData struct {
	ServerID     string         `json:"serverId"`
	ServerName   string         `json:"serverName"`
	LogFile      string         `json:"logFile"`
	LineNumber   int64          `json:"lineNumber"`
	Timestamp    time.Time      `json:"timestamp"`
	ErrorMessage string         `json:"errorMessage"`
	Parser       string         `json:"parser"`
	Urgency      int            `json:"urgency"`
	Semantics    map[string]bool `json:"semantics"`
}

// StatsCounters is the per-kind line counters reported in a stats frame.
type StatsCounters struct {
	Errors     int64 `json:"errors"`
	Warnings   int64 `json:"warnings"`
	Success    int64 `json:"success"`
	TotalLines int64 `json:"totalLines"`
}

// StatsData is the payload of a stats frame.
type StatsData struct {
	ServerID  string        `json:"serverId"`
	Stats     StatsCounters `json:"stats"`
	Timestamp time.Time     `json:"timestamp"`
	Uptime    float64       `json:"uptime"`
	Memory    uint64        `json:"memory"`
}
