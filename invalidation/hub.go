package invalidation

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/linesmerrill/cfs-intake-api/metrics"
)

const (
	sinkWebsocket = "websocket"
	eventName     = "cfs_invalidated"
	sendBuffer    = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Event is the frame written to websocket subscribers
type Event struct {
	Event string `json:"event"`
	Data  Signal `json:"data"`
}

type subscriber struct {
	conn *websocket.Conn
	send chan Event
}

// Hub broadcasts invalidation signals to connected websocket clients. Slow
// clients lose frames rather than delaying the broadcaster.
type Hub struct {
	clients map[*subscriber]struct{}
	mutex   sync.Mutex
	logger  *zap.Logger
}

// NewHub creates an empty hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[*subscriber]struct{}),
		logger:  logger,
	}
}

// ServeHTTP upgrades the request and keeps the subscriber registered until it disconnects
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	sub := &subscriber{conn: conn, send: make(chan Event, sendBuffer)}
	h.mutex.Lock()
	h.clients[sub] = struct{}{}
	h.mutex.Unlock()
	h.logger.Debug("subscriber connected to invalidation feed", zap.String("remoteAddr", r.RemoteAddr))

	go h.write(sub)

	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}
	h.remove(sub)
}

func (h *Hub) write(sub *subscriber) {
	for ev := range sub.send {
		if err := sub.conn.WriteJSON(ev); err != nil {
			h.logger.Debug("error writing invalidation event", zap.Error(err))
			h.remove(sub)
			return
		}
	}
}

func (h *Hub) remove(sub *subscriber) {
	h.mutex.Lock()
	_, ok := h.clients[sub]
	if ok {
		delete(h.clients, sub)
		close(sub.send)
	}
	h.mutex.Unlock()
	if ok {
		sub.conn.Close()
	}
}

// Signal queues s for every connected subscriber
func (h *Hub) Signal(s Signal) {
	ev := Event{Event: eventName, Data: s}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for sub := range h.clients {
		select {
		case sub.send <- ev:
			metrics.InvalidationsTotal.WithLabelValues(sinkWebsocket, metrics.OutcomeSent).Inc()
		default:
			metrics.InvalidationsTotal.WithLabelValues(sinkWebsocket, metrics.OutcomeDropped).Inc()
		}
	}
}

// Len returns the number of connected subscribers
func (h *Hub) Len() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber
func (h *Hub) Close() {
	h.mutex.Lock()
	subs := make([]*subscriber, 0, len(h.clients))
	for sub := range h.clients {
		subs = append(subs, sub)
	}
	h.mutex.Unlock()

	for _, sub := range subs {
		h.remove(sub)
	}
}
