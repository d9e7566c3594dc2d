// Package agentreg is the AgentRegistry (C5): a mirror of the Agent table
// plus the transient WebSocket connection map HubServer pushes
// notifications through.
package agentreg

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// sendBufferSize bounds each connection's outbound queue. When full, the
// oldest unsent notification is dropped in favor of the newest — storage
// remains authoritative and the client recovers via get_ai_messages, so a
// dropped notification is never a correctness problem, only a latency one.
const sendBufferSize = 256

const (
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
)

// Connection is one live WebSocket bound to a single (tenantId, agentId)
// pair.
type Connection struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	tenantID string
	agentID  string

	missed atomic.Int64
}

// MissedNotifications reports how many queued pushes this connection has
// dropped since it opened.
func (c *Connection) MissedNotifications() int64 {
	return c.missed.Load()
}

// Hub maintains every open Connection and fans out pushes to the ones
// matching a tenant+agent target. Membership changes go through the
// register/unregister channels and are applied by Run under the write lock;
// pushes iterate the clients map directly under the read lock.
type Hub struct {
	clients    map[*Connection]bool
	register   chan *Connection
	unregister chan *Connection
	stop       chan struct{}
	mu         sync.RWMutex
	log        zerolog.Logger
}

// NewHub constructs a Hub. Callers must start Run in its own goroutine.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Connection]bool),
		register:   make(chan *Connection),
		unregister: make(chan *Connection),
		stop:       make(chan struct{}),
		log:        log.With().Str("component", "agentreg").Logger(),
	}
}

// Run processes registration and unregistration. It never writes to a send
// channel (it only closes one on unregister) — pushes are delivered by Push/BroadcastTenant calling
// directly into the (already synchronized) clients map under RLock, the
// same split the teacher's Hub uses between registration traffic (channel)
// and broadcast traffic (direct map iteration under lock).
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
			h.log.Debug().Str("tenantId", c.tenantID).Str("agentId", c.agentID).
				Int("total", h.ClientCount()).Msg("websocket client registered")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			h.log.Debug().Str("tenantId", c.tenantID).Str("agentId", c.agentID).
				Int("total", h.ClientCount()).Msg("websocket client unregistered")

		case <-h.stop:
			h.mu.Lock()
			for c := range h.clients {
				c.conn.Close()
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Close stops Run's register/unregister loop and closes every open
// connection, so a graceful shutdown doesn't leave goroutines parked on a
// channel nobody reads from again.
func (h *Hub) Close() {
	close(h.stop)
}

// ClientCount returns the number of currently open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Serve registers a new connection bound to (tenantID, agentID) and starts
// its read/write pumps. A push failure never rolls back the database write
// that produced it — delivery here is strictly best-effort.
func (h *Hub) Serve(conn *websocket.Conn, tenantID, agentID string) {
	c := &Connection{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		tenantID: tenantID,
		agentID:  agentID,
	}
	h.register <- c
	go c.writePump()
	go c.readPump()
}

// Push delivers message to every connection bound to (tenantID, agentID).
// If the connection's queue is full, the oldest queued message is dropped
// and missed is incremented so the newest notification still gets through.
func (h *Hub) Push(tenantID, agentID string, message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.tenantID != tenantID || c.agentID != agentID {
			continue
		}
		c.enqueue(message)
	}
}

// BroadcastTenant delivers message to every connection open for a tenant
// whose agentId is in agentIDs, in one pass over the clients map. It backs
// Registry.Broadcast; the Router pushes per recipient via Push instead.
func (h *Hub) BroadcastTenant(tenantID string, agentIDs []string, message []byte) {
	want := make(map[string]bool, len(agentIDs))
	for _, id := range agentIDs {
		want[id] = true
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.tenantID != tenantID || !want[c.agentID] {
			continue
		}
		c.enqueue(message)
	}
}

// enqueue attempts a non-blocking send; on a full queue it drops the oldest
// queued message and retries once, so the connection always carries the
// most recent notification rather than stalling on a backlog.
func (c *Connection) enqueue(message []byte) {
	select {
	case c.send <- message:
		return
	default:
	}

	select {
	case <-c.send:
		c.missed.Add(1)
	default:
	}

	select {
	case c.send <- message:
	default:
		c.missed.Add(1)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Connection) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.stop:
		}
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
	}
}
