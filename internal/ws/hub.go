package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/obsidianstack/offpage/pkg/types"
)

const (
	writeWait    = 10 * time.Second
	readWait     = 60 * time.Second
	pingEvery    = readWait * 9 / 10
	queueDepth   = 16
	maxFrameSize = 512
)

// Events sent to clients.
const (
	EventStats    = "stats"
	EventAnalysis = "analysis"
)

// SessionParam is the query parameter naming the session whose analysis
// events a client follows. Clients without it receive stats only.
const SessionParam = "session"

// Message is the JSON envelope sent to clients.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// StatsSource supplies the statistics broadcast on every tick.
type StatsSource interface {
	Stats() types.Stats
}

// Hub fans store statistics out to every subscriber on a fixed interval and
// routes analysis events to the subscribers of the owning session.
type Hub struct {
	source   StatsSource
	interval time.Duration
	upgrader websocket.Upgrader

	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

// subscriber is one WebSocket connection. queue is closed exactly once, by
// whichever of drop or closeAll removes it from the hub.
type subscriber struct {
	session string
	conn    *websocket.Conn
	queue   chan []byte
}

// New creates a Hub that reads from src and broadcasts every interval.
func New(src StatsSource, interval time.Duration) *Hub {
	return &Hub{
		source:   src,
		interval: interval,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// Run broadcasts stats every interval until ctx is cancelled, then closes
// every connection.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.send(EventStats, h.source.Stats(), nil)
		}
	}
}

// ServeHTTP upgrades the request and streams events until the peer goes
// away. The first message is always the current stats.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sub := &subscriber{
		session: r.URL.Query().Get(SessionParam),
		conn:    conn,
		queue:   make(chan []byte, queueDepth),
	}
	if data, err := encode(EventStats, h.source.Stats()); err == nil {
		sub.queue <- data
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	defer h.drop(sub)

	go sub.writeLoop()
	sub.readLoop()
}

// PublishSession sends one event to the subscribers following sessionID.
func (h *Hub) PublishSession(sessionID, event string, v any) {
	if sessionID == "" {
		return
	}
	h.send(event, v, func(s *subscriber) bool { return s.session == sessionID })
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// send encodes one event and queues it for every subscriber accepted by
// match (all of them when match is nil). A subscriber whose queue is full
// is dropped.
func (h *Hub) send(event string, v any, match func(*subscriber) bool) {
	data, err := encode(event, v)
	if err != nil {
		slog.Error("ws: encode event", "event", event, "err", err)
		return
	}

	h.mu.RLock()
	var slow []*subscriber
	for s := range h.subs {
		if match != nil && !match(s) {
			continue
		}
		select {
		case s.queue <- data:
		default:
			slow = append(slow, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range slow {
		slog.Debug("ws: dropping slow subscriber", "session", s.session)
		h.drop(s)
	}
}

func (h *Hub) drop(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.queue)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		delete(h.subs, s)
		close(s.queue)
	}
}

func encode(event string, v any) ([]byte, error) {
	return json.Marshal(Message{Event: event, Data: v})
}

// writeLoop is the only writer on the connection: queued events plus
// keepalive pings. A closed queue ends the stream with a close frame.
func (s *subscriber) writeLoop() {
	ping := time.NewTicker(pingEvery)
	defer func() {
		ping.Stop()
		s.conn.Close()
	}()

	for {
		var (
			kind    = websocket.PingMessage
			payload []byte
		)
		select {
		case msg, ok := <-s.queue:
			if !ok {
				s.conn.WriteControl(websocket.CloseMessage, //nolint:errcheck
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeWait))
				return
			}
			kind, payload = websocket.TextMessage, msg
		case <-ping.C:
		}
		s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck
		if err := s.conn.WriteMessage(kind, payload); err != nil {
			return
		}
	}
}

// readLoop discards inbound frames so control frames are processed, and
// returns once the peer disconnects or stops answering pings.
func (s *subscriber) readLoop() {
	defer s.conn.Close()
	s.conn.SetReadLimit(maxFrameSize)
	s.conn.SetReadDeadline(time.Now().Add(readWait)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readWait))
	})
	for {
		if _, _, err := s.conn.NextReader(); err != nil {
			return
		}
	}
}
