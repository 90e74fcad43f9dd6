package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pterm/pterm"

	"errwatch/internal/model"
	"errwatch/internal/protocol"
	"errwatch/internal/store"
)

// subscriberQueueSize bounds each dashboard subscriber's outbound buffer;
// a slow dashboard client drops frames rather than stalling the hub.
const subscriberQueueSize = 64

// Broadcast fans server-derived updates out to every connected dashboard.
// On subscribe it pushes three initial snapshots (agents, recent errors,
// insights) before streaming incremental frames.
type Broadcast struct {
	store *store.Store
	log   *pterm.Logger

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan protocol.Frame
}

// NewBroadcast constructs a dashboard broadcast hub backed by st for
// initial-snapshot pushes on subscribe.
func NewBroadcast(st *store.Store, logger *pterm.Logger) *Broadcast {
	return &Broadcast{
		store:       st,
		log:         logger,
		subscribers: make(map[*subscriber]struct{}),
	}
}

// ServeHTTP upgrades a dashboard connection, pushes the three initial
// snapshots, and streams subsequent frames until the client disconnects.
func (b *Broadcast) ServeHTTP(w http.ResponseWriter, r *http.Request, agents []model.AgentRecord) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.log.Warn("dashboard websocket upgrade failed", b.log.Args("error", err))
		return
	}

	sub := &subscriber{conn: conn, send: make(chan protocol.Frame, subscriberQueueSize)}
	b.addSubscriber(sub)
	defer b.removeSubscriber(sub)

	b.pushInitialSnapshots(sub, agents)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case frame := <-sub.send:
			payload, err := json.Marshal(frame)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}

func (b *Broadcast) pushInitialSnapshots(sub *subscriber, agents []model.AgentRecord) {
	b.sendTo(sub, protocol.FrameServers, agents)
	b.sendTo(sub, protocol.FrameErrors, b.store.Errors(50))
	b.sendTo(sub, protocol.FrameInsights, b.store.Insights())
}

func (b *Broadcast) sendTo(sub *subscriber, t protocol.FrameType, payload any) {
	frame, err := protocol.Encode(t, payload)
	if err != nil {
		return
	}
	select {
	case sub.send <- frame:
	default:
		b.log.Debug("dropping frame for slow dashboard subscriber", b.log.Args("type", t))
	}
}

func (b *Broadcast) addSubscriber(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[sub] = struct{}{}
}

func (b *Broadcast) removeSubscriber(sub *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subscribers, sub)
}

func (b *Broadcast) broadcast(t protocol.FrameType, payload any) {
	frame, err := protocol.Encode(t, payload)
	if err != nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subscribers {
		select {
		case sub.send <- frame:
		default:
			b.log.Debug("dropping frame for slow dashboard subscriber", b.log.Args("type", t))
		}
	}
}

// PushServers broadcasts the full agent list, called on register, stats,
// and disconnect transitions.
func (b *Broadcast) PushServers(agents []model.AgentRecord) {
	b.broadcast(protocol.FrameServers, agents)
}

// PushErrors broadcasts the recent-errors snapshot.
func (b *Broadcast) PushErrors(errs []model.StoredError) {
	b.broadcast(protocol.FrameErrors, errs)
}

// PushNewError broadcasts a single newly-ingested (or re-incremented)
// error, distinct from the full-list PushErrors snapshot.
func (b *Broadcast) PushNewError(err model.StoredError) {
	b.broadcast(protocol.FrameNewError, err)
}

// PushInsights broadcasts the current top-5 insight list.
func (b *Broadcast) PushInsights(insights []model.Insight) {
	b.broadcast(protocol.FrameInsights, insights)
}
