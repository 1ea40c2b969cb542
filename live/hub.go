// Package live pushes progression events (phase changes, round advances,
// reward completion) to websocket subscribers. Rooms are keyed by tournament
// ID; a client subscribes to one tournament and receives its events only.
package live

import (
	"encoding/json"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type EventType string

const (
	EventPhaseChanged       EventType = "PHASE_CHANGED"
	EventMatchCompleted     EventType = "MATCH_COMPLETED"
	EventRoundAdvanced      EventType = "ROUND_ADVANCED"
	EventGroupFinalized     EventType = "GROUP_FINALIZED"
	EventRewardsDistributed EventType = "REWARDS_DISTRIBUTED"
)

// Event is the wire message sent to subscribers.
type Event struct {
	Type         EventType   `json:"type"`
	TournamentID int         `json:"tournament_id"`
	Payload      interface{} `json:"payload,omitempty"`
}

// Broadcaster is the slice of the hub services depend on.
type Broadcaster interface {
	Publish(event Event)
}

// NoopBroadcaster drops every event. Used in tests and batch tools.
type NoopBroadcaster struct{}

func (NoopBroadcaster) Publish(Event) {}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	room string
}

type Hub struct {
	register   chan *Client
	unregister chan *Client
	events     chan Event

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Event, 64),
		rooms:      make(map[string]map[*Client]bool),
	}
}

// Publish queues an event for delivery to the tournament's room. It never
// blocks the caller: if the hub is saturated the event is dropped, since
// every event is reconstructable from the query API.
func (h *Hub) Publish(event Event) {
	select {
	case h.events <- event:
	default:
		log.Printf("live: event queue full, dropping %s for tournament %d", event.Type, event.TournamentID)
	}
}

// Subscribe attaches an upgraded websocket connection to a tournament room
// and starts its pumps.
func (h *Hub) Subscribe(conn *websocket.Conn, tournamentID int) {
	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 16),
		room: strconv.Itoa(tournamentID),
	}
	h.register <- client
	go client.writePump()
	go client.readPump()
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if clients[client] {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.events:
			h.deliver(event)
		}
	}
}

func (h *Hub) deliver(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		log.Printf("live: failed to marshal %s event: %v", event.Type, err)
		return
	}

	room := strconv.Itoa(event.TournamentID)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[room] {
		select {
		case client.send <- message:
		default:
			// Slow consumer; skip rather than stall the hub.
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		// Inbound messages are ignored; the socket is one-way.
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("live: unexpected close in room %s: %v", c.room, err)
			}
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
