// Package websocket pushes live message events to connected users.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"pillscare/internal/models"

	"github.com/google/uuid"
)

const (
	EventMessage = "message"
	EventUnread  = "unread"
	EventRead    = "read"
)

// Event is the JSON frame written to clients.
type Event struct {
	Type    string          `json:"type"`
	Message *models.Message `json:"message,omitempty"`
	Unread  *int64          `json:"unread,omitempty"`
	// ReaderID and Count describe a read receipt sent to the original sender.
	ReaderID *uuid.UUID `json:"readerId,omitempty"`
	Count    int64      `json:"count,omitempty"`
}

// outbound is a payload for every connection of one user.
type outbound struct {
	userID  uuid.UUID
	payload []byte
}

type presenceQuery struct {
	userID uuid.UUID
	reply  chan int
}

// Hub maintains the set of active clients. All map access happens on the
// Run goroutine.
type Hub struct {
	clients    map[uuid.UUID]map[*Client]bool
	direct     chan outbound
	register   chan *Client
	unregister chan *Client
	presence   chan presenceQuery
	done       chan struct{}
	logger     *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]map[*Client]bool),
		direct:     make(chan outbound, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		presence:   make(chan presenceQuery),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and deliveries until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("websocket hub started")
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			for _, userClients := range h.clients {
				for client := range userClients {
					close(client.send)
				}
			}
			h.clients = make(map[uuid.UUID]map[*Client]bool)
			h.logger.Info("websocket hub stopped")
			return

		case client := <-h.register:
			if _, ok := h.clients[client.UserID]; !ok {
				h.clients[client.UserID] = make(map[*Client]bool)
			}
			h.clients[client.UserID][client] = true
			h.logger.Debug("websocket client registered", "user", client.UserID, "connections", len(h.clients[client.UserID]))

		case client := <-h.unregister:
			userClients, ok := h.clients[client.UserID]
			if !ok || !userClients[client] {
				continue
			}
			delete(userClients, client)
			close(client.send)
			if len(userClients) == 0 {
				delete(h.clients, client.UserID)
			}
			h.logger.Debug("websocket client unregistered", "user", client.UserID, "remaining", len(userClients))

		case q := <-h.presence:
			q.reply <- len(h.clients[q.userID])

		case msg := <-h.direct:
			for client := range h.clients[msg.userID] {
				select {
				case client.send <- msg.payload:
				default:
					h.logger.Warn("websocket send buffer full, dropping event", "user", client.UserID)
				}
			}
		}
	}
}

// Register adds a connection. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Connections reports how many live connections user has.
func (h *Hub) Connections(user uuid.UUID) int {
	reply := make(chan int, 1)
	select {
	case h.presence <- presenceQuery{userID: user, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}

// SendEvent queues ev for every connection of user. Users that are not
// connected simply miss the event; the store remains the source of truth.
func (h *Hub) SendEvent(user uuid.UUID, ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("failed to encode websocket event", "type", ev.Type, "error", err)
		return
	}
	select {
	case h.direct <- outbound{userID: user, payload: payload}:
	case <-h.done:
	case <-time.After(time.Second):
		h.logger.Warn("websocket hub busy, event dropped", "user", user, "type", ev.Type)
	}
}

// MessageSent pushes a new message and the receiver's unread badge.
func (h *Hub) MessageSent(msg *models.Message, receiverUnread int64) {
	h.SendEvent(msg.ReceiverID, Event{Type: EventMessage, Message: msg})
	h.SendEvent(msg.ReceiverID, Event{Type: EventUnread, Unread: &receiverUnread})
}

// MessagesRead tells the sender their messages were read and refreshes the
// reader's unread badge on their other connections.
func (h *Hub) MessagesRead(sender, receiver uuid.UUID, count, receiverUnread int64) {
	h.SendEvent(sender, Event{Type: EventRead, ReaderID: &receiver, Count: count})
	h.SendEvent(receiver, Event{Type: EventUnread, Unread: &receiverUnread})
}
