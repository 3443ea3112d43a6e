package ws

import (
	"encoding/json"
	"sync"
)

// Topics a client may subscribe to.
const (
	TopicBusiness     = "business"
	TopicMenu         = "menu"
	TopicReservations = "reservations"
)

// Event is a message broadcast to subscribed clients.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// topicEvent routes an event to one topic room.
type topicEvent struct {
	Topic string
	Event Event
}

// Hub maintains the set of active clients grouped by topic and fans
// broadcast events out to them.
type Hub struct {
	// Registered clients per topic
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan *topicEvent

	mu sync.RWMutex
}

// NewHub creates a new Hub instance.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *topicEvent, 256),
	}
}

// Run starts the hub's main loop.
// This should be called as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			for topic := range client.topics {
				if h.rooms[topic] == nil {
					h.rooms[topic] = make(map[*Client]bool)
				}
				h.rooms[topic][client] = true
			}
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropLocked(client)
			h.mu.Unlock()

		case te := <-h.broadcast:
			h.mu.Lock()
			clients := h.rooms[te.Topic]

			message, err := json.Marshal(te.Event)
			if err != nil {
				h.mu.Unlock()
				continue
			}

			for client := range clients {
				select {
				case client.send <- message:
				default:
					// Send buffer full; drop the slow client.
					h.dropLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to every client subscribed to the topic.
func (h *Hub) Broadcast(topic string, event Event) {
	h.broadcast <- &topicEvent{Topic: topic, Event: event}
}

// dropLocked removes a client from all of its rooms and closes its
// send channel exactly once. Caller holds h.mu.
func (h *Hub) dropLocked(client *Client) {
	dropped := false
	for topic := range client.topics {
		clients, ok := h.rooms[topic]
		if !ok {
			continue
		}
		if _, exists := clients[client]; exists {
			delete(clients, client)
			dropped = true
		}
		if len(clients) == 0 {
			delete(h.rooms, topic)
		}
	}
	if dropped {
		close(client.send)
	}
}
