// Package server implements the Ingestion Hub (C5) and the Dashboard
// Broadcast (C6): accepting agent and dashboard websocket connections,
// routing agent messages into the Memory Store, and fanning updates out
// to dashboard subscribers.
package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pterm/pterm"

	"errwatch/internal/model"
	"errwatch/internal/protocol"
	"errwatch/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub is the long-lived acceptor for agent links. Per spec.md's design
// note on cyclic references, the transport-to-owner relationship is a
// plain map (connToServerID), not a back-pointer embedded in the record.
type Hub struct {
	store *store.Store
	bcast *Broadcast
	log   *pterm.Logger

	mu             sync.RWMutex
	agents         map[string]*model.AgentRecord // keyed by ServerID
	connToServerID map[*websocket.Conn]string
}

// NewHub constructs an Ingestion Hub backed by store and wired to
// broadcast pushes on bcast.
func NewHub(st *store.Store, bcast *Broadcast, logger *pterm.Logger) *Hub {
	return &Hub{
		store:          st,
		bcast:          bcast,
		log:            logger,
		agents:         make(map[string]*model.AgentRecord),
		connToServerID: make(map[*websocket.Conn]string),
	}
}

// ServeHTTP upgrades an incoming request to a websocket and runs the
// per-agent read loop until the connection closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("agent websocket upgrade failed", h.log.Args("error", err))
		return
	}
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.handleDisconnect(conn)
			return
		}

		var frame protocol.Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.log.Debug("dropping malformed agent frame", h.log.Args("error", err))
			continue
		}

		h.dispatch(conn, frame)
	}
}

func (h *Hub) dispatch(conn *websocket.Conn, frame protocol.Frame) {
	switch frame.Type {
	case protocol.FrameRegister:
		h.handleRegister(conn, frame)
	case protocol.FrameError:
		h.handleError(frame)
	case protocol.FrameStats:
		h.handleStats(frame)
	default:
		h.log.Debug("ignoring unknown frame type from agent", h.log.Args("type", frame.Type))
	}
}

func (h *Hub) handleRegister(conn *websocket.Conn, frame protocol.Frame) {
	var data protocol.RegisterData
	if err := json.Unmarshal(frame.Data, &data); err != nil {
		h.log.Debug("malformed register frame", h.log.Args("error", err))
		return
	}

	logFiles := make([]model.LogFileSpec, len(data.LogFiles))
	for i, p := range data.LogFiles {
		logFiles[i] = model.LogFileSpec{Path: p, Type: "auto"}
	}

	h.mu.Lock()
	record, existed := h.agents[data.ServerID]
	if !existed {
		record = &model.AgentRecord{RegisteredAt: time.Now().UTC()}
	}
	record.AgentIdentity = model.AgentIdentity{
		ServerID:   data.ServerID,
		ServerName: data.ServerName,
		Platform: model.Platform{
			Hostname:       data.Platform.Hostname,
			OS:             data.Platform.Platform,
			Arch:           data.Platform.Arch,
			RuntimeVersion: data.Platform.RuntimeVersion,
			Memory:         data.Platform.Memory,
		},
		LogFiles: logFiles,
	}
	record.Status = model.AgentOnline
	record.LastSeen = time.Now().UTC()
	h.agents[data.ServerID] = record
	h.connToServerID[conn] = data.ServerID
	h.mu.Unlock()

	h.log.Info("agent registered", h.log.Args("serverId", data.ServerID, "serverName", data.ServerName))
	h.bcast.PushServers(h.snapshotAgents())
}

func (h *Hub) handleError(frame protocol.Frame) {
	var data protocol.ErrorData
	if err := json.Unmarshal(frame.Data, &data); err != nil {
		h.log.Debug("malformed error frame", h.log.Args("error", err))
		return
	}

	semantics := model.Semantics{
		HasIPAddress:  data.Semantics["hasIpAddress"],
		HasURL:        data.Semantics["hasUrl"],
		HasStatusCode: data.Semantics["hasStatusCode"],
		HasTimestamp:  data.Semantics["hasTimestamp"],
		HasDatabase:   data.Semantics["hasDatabase"],
		HasNetwork:    data.Semantics["hasNetwork"],
		HasAuth:       data.Semantics["hasAuth"],
		HasMemory:     data.Semantics["hasMemory"],
		HasSecurity:   data.Semantics["hasSecurity"],
	}

	stored := h.store.AddError(store.IncomingError{
		ServerID:     data.ServerID,
		ServerName:   data.ServerName,
		LogFile:      data.LogFile,
		LineNumber:   data.LineNumber,
		Timestamp:    data.Timestamp,
		ErrorMessage: data.ErrorMessage,
		Parser:       data.Parser,
		Urgency:      data.Urgency,
		Semantics:    semantics,
	})

	h.mu.Lock()
	if record, ok := h.agents[data.ServerID]; ok {
		record.ErrorCount++
		record.LastSeen = time.Now().UTC()
	}
	h.mu.Unlock()

	h.bcast.PushNewError(stored)
	h.bcast.PushErrors(h.store.Errors(50))
	h.bcast.PushInsights(h.store.Insights())
}

func (h *Hub) handleStats(frame protocol.Frame) {
	var data protocol.StatsData
	if err := json.Unmarshal(frame.Data, &data); err != nil {
		h.log.Debug("malformed stats frame", h.log.Args("error", err))
		return
	}

	h.mu.Lock()
	record, ok := h.agents[data.ServerID]
	if ok {
		record.ErrorCount = data.Stats.Errors
		record.WarningCount = data.Stats.Warnings
		record.SuccessCount = data.Stats.Success
		record.LastSeen = time.Now().UTC()
	}
	h.mu.Unlock()

	if ok {
		h.bcast.PushServers(h.snapshotAgents())
	}
}

// handleDisconnect transitions the owning agent to offline, per spec.md
// §4.5: "On transport close, set the owning AgentRecord to offline,
// update lastSeen, clear the transport handle, and broadcast the agent
// list."
func (h *Hub) handleDisconnect(conn *websocket.Conn) {
	h.mu.Lock()
	serverID, ok := h.connToServerID[conn]
	if ok {
		delete(h.connToServerID, conn)
		if record, exists := h.agents[serverID]; exists {
			record.Status = model.AgentOffline
			record.LastSeen = time.Now().UTC()
			record.TransportID = ""
		}
	}
	h.mu.Unlock()

	if ok {
		h.log.Info("agent disconnected", h.log.Args("serverId", serverID))
		h.bcast.PushServers(h.snapshotAgents())
	}
}

// AgentRecords returns a snapshot of every known agent, online or
// offline, for the REST /api/servers endpoint.
func (h *Hub) AgentRecords() []model.AgentRecord {
	return h.snapshotAgents()
}

// StatsSummary aggregates counters across all known agents for
// /api/stats.
func (h *Hub) StatsSummary() model.StatsSummary {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var summary model.StatsSummary
	summary.TotalServers = len(h.agents)
	for _, a := range h.agents {
		summary.TotalErrors += a.ErrorCount
		summary.TotalWarnings += a.WarningCount
		summary.TotalSuccess += a.SuccessCount
		if a.Status == model.AgentOnline {
			summary.OnlineServers++
		}
	}
	return summary
}

func (h *Hub) snapshotAgents() []model.AgentRecord {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]model.AgentRecord, 0, len(h.agents))
	for _, a := range h.agents {
		out = append(out, *a)
	}
	return out
}
