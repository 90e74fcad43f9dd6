package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pterm/pterm"

	"errwatch/internal/model"
	"errwatch/internal/protocol"
	"errwatch/internal/store"
)

func newTestHub() (*Hub, *Broadcast) {
	logger := pterm.DefaultLogger.WithLevel(pterm.LogLevelTrace)
	st := store.New(100, 0, 60*time.Minute, logger)
	bcast := NewBroadcast(st, logger)
	return NewHub(st, bcast, logger), bcast
}

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(hub)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func sendFrame(t *testing.T, conn *websocket.Conn, ft protocol.FrameType, payload any) {
	t.Helper()
	frame, err := protocol.Encode(ft, payload)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	data, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestHub_RegisterCreatesOnlineAgentRecord(t *testing.T) {
	hub, _ := newTestHub()
	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	sendFrame(t, conn, protocol.FrameRegister, protocol.RegisterData{
		ServerID:   "web-01",
		ServerName: "web-01",
		LogFiles:   []string{"/var/log/nginx/error.log"},
	})

	waitForCondition(t, func() bool {
		for _, a := range hub.AgentRecords() {
			if a.ServerID == "web-01" && a.Status == model.AgentOnline {
				return true
			}
		}
		return false
	})
}

func TestHub_DisconnectTransitionsAgentOffline(t *testing.T) {
	hub, _ := newTestHub()
	conn, cleanup := dialHub(t, hub)

	sendFrame(t, conn, protocol.FrameRegister, protocol.RegisterData{ServerID: "web-02", ServerName: "web-02"})
	waitForCondition(t, func() bool {
		for _, a := range hub.AgentRecords() {
			if a.ServerID == "web-02" && a.Status == model.AgentOnline {
				return true
			}
		}
		return false
	})

	cleanup()

	waitForCondition(t, func() bool {
		for _, a := range hub.AgentRecords() {
			if a.ServerID == "web-02" && a.Status == model.AgentOffline {
				return true
			}
		}
		return false
	})
}

func TestHub_ErrorFrameIngestsIntoStore(t *testing.T) {
	hub, _ := newTestHub()
	conn, cleanup := dialHub(t, hub)
	defer cleanup()

	sendFrame(t, conn, protocol.FrameRegister, protocol.RegisterData{ServerID: "db-01", ServerName: "db-01"})
	sendFrame(t, conn, protocol.FrameError, protocol.ErrorData{
		ServerID:     "db-01",
		ServerName:   "db-01",
		LogFile:      "/var/log/app.log",
		ErrorMessage: "Database connection timeout",
		Timestamp:    time.Now().UTC(),
		Urgency:      9,
	})

	waitForCondition(t, func() bool { return hub.store.Len() == 1 })
}

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
