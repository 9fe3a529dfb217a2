package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 54 * time.Second
	pongTimeout  = 60 * time.Second

	// Inbound frames are ignored, so the limit only bounds junk.
	maxMessageSize = 4 * 1024

	clientBufferSize = 8
)

// refreshMessage is the only payload the channel ever carries. It tells
// connected dashboards that fresher data may be available; clients re-pull
// over the REST API rather than reading anything out of it.
type refreshMessage struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

// client is one connected dashboard listener.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub maintains the set of connected dashboard clients and fans a refresh
// signal out to all of them. Delivery is best effort: no ordering, no
// acknowledgement, and slow clients are dropped rather than backpressured.
type Hub struct {
	log      logrus.FieldLogger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub creates a hub with no connected clients.
func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		log: log.WithField("component", "ws-hub"),
		upgrader: websocket.Upgrader{
			// The dashboard may be served from a different origin than
			// the collector.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: map[*client]struct{}{},
	}
}

// HandleConnection upgrades the request and holds the connection in the
// active set until the peer disconnects.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	cl := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, clientBufferSize),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[cl] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"client_id":     cl.id,
		"remote_addr":   r.RemoteAddr,
		"total_clients": total,
	}).Info("websocket client connected")

	go h.writePump(cl)
	go h.readPump(cl)
}

// NotifyRefresh broadcasts the opaque refresh signal to every connected
// client. Clients whose buffers are full are disconnected.
func (h *Hub) NotifyRefresh() {
	msg, err := json.Marshal(refreshMessage{Type: "refresh", Timestamp: time.Now().UTC()})
	if err != nil {
		h.log.WithError(err).Error("marshal refresh message")
		return
	}

	var slow []*client
	h.mu.RLock()
	for cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		h.log.WithField("client_id", cl.id).Warn("dropping slow websocket client")
		h.remove(cl)
	}
}

// ClientCount returns the number of currently connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stop disconnects every client and rejects new connections.
func (h *Hub) Stop() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.clients = map[*client]struct{}{}
	h.mu.Unlock()

	for _, cl := range clients {
		close(cl.send)
	}
	h.log.Info("websocket hub stopped")
}

// remove takes a client out of the active set and closes its send channel,
// which ends its write pump.
func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	_, ok := h.clients[cl]
	if ok {
		delete(h.clients, cl)
	}
	h.mu.Unlock()

	if ok {
		close(cl.send)
	}
}

// readPump discards inbound frames; its job is noticing disconnects and
// answering pings via the pong handler.
func (h *Hub) readPump(cl *client) {
	defer func() {
		h.remove(cl)
		cl.conn.Close()
		h.log.WithField("client_id", cl.id).Info("websocket client disconnected")
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).WithField("client_id", cl.id).Debug("websocket read error")
			}
			return
		}
	}
}

// writePump delivers broadcasts and keepalive pings to one client.
func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(cl)
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(cl)
				return
			}
		}
	}
}
