package server

import (
	"context"
	"encoding/json"

	"C90FM/logger"
)

// wsMessage is the envelope for everything pushed over /ws.
type wsMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Hub fans player snapshots out to connected WebSocket clients.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	clients    map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		clients:    make(map[*Client]bool),
	}
}

// Broadcast queues a message for every connected client.
func (h *Hub) Broadcast(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Warn("failed to encode broadcast", logger.ErrorField(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		logger.Debug("broadcast queue full, dropping message")
	}
}

// Run owns the client set; all membership changes go through its channels.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return

		case client := <-h.register:
			h.clients[client] = true
			logger.Debug("ws client connected", logger.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case data := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					// Client not draining; drop it rather than
					// stalling the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}
