package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"seatduel/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients come from arbitrary origins; auth is out of scope here
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage is the envelope pushed to every connected client
type wsMessage struct {
	Type    events.EventType `json:"type"`
	Payload interface{}      `json:"payload"`
}

type client struct {
	conn *websocket.Conn
	send chan wsMessage
}

// Hub fans events out to websocket clients. It subscribes to the event
// bus, so it only ever observes committed state.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]bool
}

// NewHub creates a hub and subscribes it to the event bus
func NewHub(bus *events.Bus) *Hub {
	h := &Hub{
		clients: make(map[*client]bool),
	}

	bus.Subscribe(events.EventTypeDuelUpdated, func(ctx context.Context, event events.Event) {
		e := event.(events.DuelUpdatedEvent)
		h.broadcast(wsMessage{Type: event.Type(), Payload: gin.H{"duel": e.Duel, "seats": e.Seats}})
	})
	bus.Subscribe(events.EventTypeSeatsChanged, func(ctx context.Context, event events.Event) {
		e := event.(events.SeatsChangedEvent)
		h.broadcast(wsMessage{Type: event.Type(), Payload: gin.H{"seats": e.Seats}})
	})
	bus.Subscribe(events.EventTypeSeatsReset, func(ctx context.Context, event events.Event) {
		e := event.(events.SeatsResetEvent)
		h.broadcast(wsMessage{Type: event.Type(), Payload: gin.H{"seats": e.Seats}})
	})

	return h
}

// HandleConnection upgrades the request and serves the client until it
// disconnects
func (h *Hub) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithField("error", err).Error("Websocket upgrade failed")
		return
	}

	cl := &client{
		conn: conn,
		send: make(chan wsMessage, 32),
	}

	h.mu.Lock()
	h.clients[cl] = true
	count := len(h.clients)
	h.mu.Unlock()

	log.WithField("clients", count).Info("Websocket client connected")

	go h.writePump(cl)
	go h.readPump(cl)
}

func (h *Hub) broadcast(msg wsMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			// Slow consumer, drop it rather than block the bus
			delete(h.clients, cl)
			close(cl.send)
		}
	}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// readPump discards inbound frames but keeps the connection's pong
// deadline fresh
func (h *Hub) readPump(cl *client) {
	defer func() {
		h.remove(cl)
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(maxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithField("error", err).Debug("Websocket read error")
			}
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for cl := range h.clients {
		close(cl.send)
		delete(h.clients, cl)
	}
}
