// Package live pushes attendance marks to trainers over websockets.
package live

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"studentdesk/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

// Message is the envelope written to subscribers.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type delivery struct {
	batchID string
	data    []byte
}

// Hub fans attendance updates out to the trainers watching a batch. Run owns
// the subscriber set; everything else talks to it through channels.
type Hub struct {
	clients    map[*client]struct{}
	register   chan *client
	unregister chan *client
	broadcast  chan delivery
	done       chan struct{}
	upgrader   websocket.Upgrader
}

type client struct {
	hub     *Hub
	conn    *websocket.Conn
	batchID string
	send    chan []byte
	pong    chan struct{}
}

// NewHub creates a hub. checkOrigin may be nil to accept any origin.
func NewHub(checkOrigin func(*http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan delivery, 256),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
			log.Printf("live: subscriber joined batch %s (%d connected)", c.batchID, len(h.clients))
			c.push(mustEncode(Message{Type: "subscribed", Payload: map[string]string{"batch_id": c.batchID}}))

		case c := <-h.unregister:
			h.drop(c)

		case d := <-h.broadcast:
			for c := range h.clients {
				if c.batchID != d.batchID {
					continue
				}
				if !c.push(d.data) {
					log.Printf("live: subscriber on batch %s too slow, disconnecting", c.batchID)
					h.drop(c)
				}
			}

		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return
		}
	}
}

func (h *Hub) drop(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues rec for every subscriber of batchID. It never blocks;
// updates are dropped when the hub is saturated.
func (h *Hub) Broadcast(batchID string, rec model.AttendanceView) {
	if batchID == "" {
		return
	}
	data, err := json.Marshal(Message{Type: "attendance_marked", Payload: rec})
	if err != nil {
		log.Printf("live: encode attendance %s: %v", rec.ID, err)
		return
	}
	select {
	case h.broadcast <- delivery{batchID: batchID, data: data}:
	default:
		log.Printf("live: broadcast queue full, dropping update for batch %s", batchID)
	}
}

// Serve upgrades the request and subscribes the connection to batchID.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, batchID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := &client{hub: h, conn: conn, batchID: batchID, send: make(chan []byte, sendBuffer), pong: make(chan struct{}, 1)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return errors.New("live: hub stopped")
	case <-r.Context().Done():
		conn.Close()
		return r.Context().Err()
	}
	go c.writePump()
	go c.readPump()
	return nil
}

func (c *client) push(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readPump keeps the read deadline fresh and answers "ping" messages.
// Subscribers send nothing else.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("live: read: %v", err)
			}
			return
		}
		var msg Message
		if json.Unmarshal(raw, &msg) == nil && msg.Type == "ping" {
			select {
			case c.pong <- struct{}{}:
			default:
			}
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.pong:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, pongMessage); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var pongMessage = mustEncode(Message{Type: "pong"})

func mustEncode(m Message) []byte {
	data, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	return data
}
