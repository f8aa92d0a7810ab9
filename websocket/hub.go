// Package websocket pushes live tally updates to connected dashboards.
// Subscribers are grouped per poll; the vote fan-out handler broadcasts the
// real counts after each committed vote.
package websocket

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"votemaster-backend/model"
)

// Client is one subscriber connection, pinned to a single poll.
type Client struct {
	PollID string

	conn *websocket.Conn
	send chan []byte
}

// Hub tracks subscribers per poll and fans broadcasts out to them.
type Hub struct {
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run processes register and unregister requests. Call once, in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if _, ok := h.clients[client.PollID]; !ok {
				h.clients[client.PollID] = make(map[*Client]bool)
			}
			h.clients[client.PollID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			h.dropClient(client)
			h.mu.Unlock()
		}
	}
}

// dropClient must be called with h.mu held.
func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client.PollID]; !ok {
		return
	}
	if _, ok := h.clients[client.PollID][client]; !ok {
		return
	}
	delete(h.clients[client.PollID], client)
	close(client.send)
	if len(h.clients[client.PollID]) == 0 {
		delete(h.clients, client.PollID)
	}
}

// BroadcastToPoll sends the message to every subscriber of the poll. A
// subscriber whose send buffer is full is dropped rather than allowed to
// stall the broadcast.
func (h *Hub) BroadcastToPoll(pollID string, message *model.WebSocketMessage) {
	payload, err := message.ToJSON()
	if err != nil {
		log.Printf("ws: marshal broadcast failed: %v", err)
		return
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients[pollID]))
	for client := range h.clients[pollID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- payload:
		default:
			h.mu.Lock()
			h.dropClient(client)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}
