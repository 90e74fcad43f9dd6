// Package agent implements the Agent Core (C3): configuration merge,
// log-file auto-discovery, connection lifecycle, the per-line pipeline,
// and statistics accumulation.
package agent

import (
	"context"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"

	"errwatch/internal/config"
	"errwatch/internal/enrichment"
	"errwatch/internal/logformat"
	"errwatch/internal/model"
	"errwatch/internal/protocol"
	"errwatch/internal/tailer"
)

const version = "0.1.0"

// Agent ties the File Tailer, Log Parser, and Connection together: each
// tailer's onLine callback runs the parser, counts every line toward the
// next stats frame, and also emits an error frame when the line passes the
// urgency gate.
type Agent struct {
	cfg    config.AgentConfig
	logger *pterm.Logger
	conn   *Connection
	geoIP  *enrichment.GeoIPEnricher

	identity model.AgentIdentity

	counters counters
}

type counters struct {
	errors     atomic.Int64
	warnings   atomic.Int64
	success    atomic.Int64
	totalLines atomic.Int64
	sinceStats atomic.Int64
}

// New builds an Agent from config. transportURL is the ws:// address of
// the server's agent-transport listener.
func New(cfg config.AgentConfig, transportURL string, geoIP *enrichment.GeoIPEnricher, logger *pterm.Logger) *Agent {
	identity := buildIdentity(cfg)

	a := &Agent{cfg: cfg, logger: logger, geoIP: geoIP, identity: identity}
	a.conn = NewConnection(transportURL, cfg, logger, a.buildRegisterFrame, a.handleFrame)
	return a
}

func buildIdentity(cfg config.AgentConfig) model.AgentIdentity {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown-host"
	}

	name := cfg.ServerName
	if name == "" {
		name = hostname
	}

	files := cfg.LogPaths
	var specs []model.LogFileSpec
	if len(files) == 0 && cfg.AutoDiscover {
		specs = discoverLogFiles()
	} else {
		for _, p := range files {
			specs = append(specs, model.LogFileSpec{Path: p, Type: "auto"})
		}
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return model.AgentIdentity{
		ServerID:   hostname,
		ServerName: name,
		Platform: model.Platform{
			Hostname:       hostname,
			OS:             runtime.GOOS,
			Arch:           runtime.GOARCH,
			RuntimeVersion: runtime.Version(),
			Memory:         mem.Sys,
		},
		LogFiles: specs,
	}
}

// Run starts all tailers, the connection, and the stats ticker, blocking
// until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) {
	if len(a.identity.LogFiles) == 0 {
		a.logger.Warn("no log files configured or discovered; agent will register but tail nothing")
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.conn.Run(ctx)
	}()

	for _, spec := range a.identity.LogFiles {
		spec := spec
		wg.Add(1)
		go func() {
			defer wg.Done()
			t := tailer.New(spec.Path, a.cfg.TailerPollInterval, a.logger)
			t.Run(ctx, func(line string) { a.handleLine(spec, line) })
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		a.statsLoop(ctx)
	}()

	wg.Wait()
}

// handleLine is the per-line pipeline: parse, count by level, and
// urgency-gate emission of error frames. Per spec.md §4.3, only
// level=ERROR with urgency >= threshold is sent upstream.
func (a *Agent) handleLine(spec model.LogFileSpec, line string) {
	event := logformat.Parse(line, spec)
	a.enrichWithGeoIP(&event)

	switch event.Level {
	case model.LevelError:
		a.counters.errors.Add(1)
	case model.LevelWarn:
		a.counters.warnings.Add(1)
	default:
		a.counters.success.Add(1)
	}

	total := a.counters.totalLines.Add(1)
	sinceStats := a.counters.sinceStats.Add(1)

	threshold := a.cfg.UrgencyThreshold
	if threshold <= 0 {
		threshold = 5
	}
	if event.Level == model.LevelError && event.Urgency >= threshold {
		a.emitError(spec, event, total)
	}

	n := a.cfg.StatsEveryNLines
	if n <= 0 {
		n = 10
	}
	if sinceStats >= int64(n) {
		a.counters.sinceStats.Store(0)
		a.sendStats()
	}
}

func (a *Agent) enrichWithGeoIP(event *model.ParsedEvent) {
	if a.geoIP == nil || !event.Semantics.HasIPAddress {
		return
	}
	a.geoIP.EnrichEvent(event)
}

// emitError sends an error frame. LineNumber is a coarse approximation
// per spec.md §4.3 ("floor(fileSize / 100)") — advisory only.
func (a *Agent) emitError(spec model.LogFileSpec, event model.ParsedEvent, lineApprox int64) {
	semantics := map[string]bool{
		"hasIpAddress":  event.Semantics.HasIPAddress,
		"hasUrl":        event.Semantics.HasURL,
		"hasStatusCode": event.Semantics.HasStatusCode,
		"hasTimestamp":  event.Semantics.HasTimestamp,
		"hasDatabase":   event.Semantics.HasDatabase,
		"hasNetwork":    event.Semantics.HasNetwork,
		"hasAuth":       event.Semantics.HasAuth,
		"hasMemory":     event.Semantics.HasMemory,
		"hasSecurity":   event.Semantics.HasSecurity,
	}

	data := protocol.ErrorData{
		ServerID:     a.identity.ServerID,
		ServerName:   a.identity.ServerName,
		LogFile:      spec.Path,
		LineNumber:   approximateLineNumber(spec.Path),
		Timestamp:    event.Timestamp,
		ErrorMessage: event.Message,
		Parser:       event.Parser,
		Urgency:      event.Urgency,
		Semantics:    semantics,
	}

	frame, err := protocol.Encode(protocol.FrameError, data)
	if err != nil {
		a.logger.Warn("failed to encode error frame", a.logger.Args("error", err))
		return
	}
	if err := a.conn.Send(frame); err != nil {
		a.logger.Debug("dropped error frame", a.logger.Args("error", err))
	}
}

// approximateLineNumber is the coarse floor(fileSize/100) advisory metric
// spec.md §4.3 calls for instead of a true line count.
func approximateLineNumber(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size() / 100
}

func (a *Agent) sendStats() {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	data := protocol.StatsData{
		ServerID: a.identity.ServerID,
		Stats: protocol.StatsCounters{
			Errors:     a.counters.errors.Load(),
			Warnings:   a.counters.warnings.Load(),
			Success:    a.counters.success.Load(),
			TotalLines: a.counters.totalLines.Load(),
		},
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(startTime).Seconds(),
		Memory:    mem.Sys,
	}

	frame, err := protocol.Encode(protocol.FrameStats, data)
	if err != nil {
		return
	}
	if err := a.conn.Send(frame); err != nil {
		a.logger.Debug("dropped stats frame", a.logger.Args("error", err))
	}
}

func (a *Agent) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sendStats()
		}
	}
}

func (a *Agent) buildRegisterFrame() protocol.RegisterData {
	paths := make([]string, len(a.identity.LogFiles))
	for i, f := range a.identity.LogFiles {
		paths[i] = f.Path
	}
	return protocol.RegisterData{
		ServerID:   a.identity.ServerID,
		ServerName: a.identity.ServerName,
		LogFiles:   paths,
		Timestamp:  time.Now().UTC(),
		Version:    version,
		Platform: protocol.RegisterPlatform{
			Hostname:       a.identity.Platform.Hostname,
			Platform:       a.identity.Platform.OS,
			Arch:           a.identity.Platform.Arch,
			RuntimeVersion: a.identity.Platform.RuntimeVersion,
			Memory:         a.identity.Platform.Memory,
		},
	}
}

// handleFrame processes frames received from the server. The wire
// protocol is agent -> server dominant; the agent doesn't currently act
// on any server -> agent frame type, but logs unexpected ones rather
// than silently dropping them, matching spec.md §7's "malformed agent
// message: log and ignore" posture applied symmetrically.
func (a *Agent) handleFrame(frame protocol.Frame) {
	a.logger.Debug("received unexpected frame from server", a.logger.Args("type", frame.Type))
}

var startTime = time.Now()
