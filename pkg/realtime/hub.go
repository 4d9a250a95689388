// Package realtime fans graded submissions out to teachers watching a quiz.
package realtime

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Message is the standard envelope exchanged over WebSocket.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Authorizer decides whether the request may open a results feed for a quiz.
// Wired in main from the auth and quiz services.
type Authorizer func(r *http.Request, quizID uint) error

type broadcast struct {
	quizID  uint
	payload []byte
}

// Hub keeps one room of subscribed clients per quiz and broadcasts grading
// events into it. Slow clients get dropped rather than block the feed.
//
// The rooms map and every client's send channel are owned exclusively by the
// Run goroutine: registration, removal and broadcasting all flow through its
// channels, so a send can never race the close on unregister.
type Hub struct {
	rooms      map[uint]map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcasts chan broadcast
	authorize  Authorizer
	logger     *zap.Logger
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	quizID uint
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[uint]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcasts: make(chan broadcast, 256),
		logger:     logger,
	}
}

func (h *Hub) SetAuthorizer(authorize Authorizer) {
	h.authorize = authorize
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			room, ok := h.rooms[client.quizID]
			if !ok {
				room = make(map[*Client]bool)
				h.rooms[client.quizID] = room
			}
			room[client] = true
			h.logger.Info("results feed subscribed", zap.Uint("quiz_id", client.quizID))

		case client := <-h.unregister:
			h.remove(client)

		case b := <-h.broadcasts:
			for client := range h.rooms[b.quizID] {
				select {
				case client.send <- b.payload:
				default:
					// Send buffer full; client is too slow to keep.
					h.logger.Warn("dropping slow results subscriber", zap.Uint("quiz_id", b.quizID))
					h.remove(client)
				}
			}
		}
	}
}

// remove is idempotent: a client dropped as slow still unregisters itself
// when its readPump exits. Only called from the Run goroutine.
func (h *Hub) remove(client *Client) {
	room, ok := h.rooms[client.quizID]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.quizID)
	}
}

// BroadcastAttemptGraded queues a grading event to every subscriber of a quiz.
func (h *Hub) BroadcastAttemptGraded(quizID uint, data interface{}) {
	payload, err := json.Marshal(Message{Type: "attempt_graded", Data: data})
	if err != nil {
		h.logger.Error("marshal broadcast", zap.Error(err))
		return
	}
	h.broadcasts <- broadcast{quizID: quizID, payload: payload}
}

// HandleResults upgrades GET /ws/quizzes/{quizID}/results. Authorization runs
// before the upgrade so refusals are plain HTTP errors.
func (h *Hub) HandleResults(w http.ResponseWriter, r *http.Request) {
	quizID64, err := strconv.ParseUint(mux.Vars(r)["quizID"], 10, 32)
	if err != nil {
		http.Error(w, "invalid quiz id", http.StatusBadRequest)
		return
	}
	quizID := uint(quizID64)

	if h.authorize == nil {
		http.Error(w, "results feed unavailable", http.StatusServiceUnavailable)
		return
	}
	if err := h.authorize(r, quizID); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 64),
		quizID: quizID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
}

// readPump discards inbound frames; the feed is one-way. It exists to notice
// closes and keep the pong deadline fresh.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
