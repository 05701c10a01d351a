package websocket

import (
	"strconv"
	"sync"
	"time"

	"reprise/logger"
	"reprise/types"
)

// TopicAll subscribes a client to every track's status transitions
const TopicAll = "all"

// Hub interface defines the methods for managing WebSocket connections
type Hub interface {
	Run()
	BroadcastStatus(trackID int64, status types.TrackStatus, version int, message string)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
}

// hub maintains the set of active clients and fans status messages out to
// the subscribers of each track
type hub struct {
	// Registered clients mapped by topic (track id or TopicAll)
	clients map[string]map[*Client]bool

	broadcast  chan types.StatusMessage
	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() Hub {
	return &hub{
		clients:    make(map[string]map[*Client]bool),
		broadcast:  make(chan types.StatusMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's main event loop
func (h *hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.topic] == nil {
				h.clients[client.topic] = make(map[*Client]bool)
			}
			h.clients[client.topic][client] = true
			h.mu.Unlock()
			logger.Debug("websocket client connected", logger.String("topic", client.topic))

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.topic]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.clients, client.topic)
					}
				}
			}
			h.mu.Unlock()
			logger.Debug("websocket client disconnected", logger.String("topic", client.topic))

		case message := <-h.broadcast:
			h.mu.RLock()
			h.deliver(strconv.FormatInt(message.TrackID, 10), message)
			h.deliver(TopicAll, message)
			h.mu.RUnlock()
		}
	}
}

// deliver sends a message to every client on a topic, dropping clients
// whose send buffers are full. Callers hold at least a read lock.
func (h *hub) deliver(topic string, message types.StatusMessage) {
	clients, ok := h.clients[topic]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.send <- message:
		default:
			close(client.send)
			delete(clients, client)
		}
	}
	if len(clients) == 0 {
		delete(h.clients, topic)
	}
}

// BroadcastStatus queues a status transition for delivery to subscribers
// of the track and to global subscribers
func (h *hub) BroadcastStatus(trackID int64, status types.TrackStatus, version int, message string) {
	statusMsg := types.StatusMessage{
		TrackID:   trackID,
		Status:    status,
		Version:   version,
		Message:   message,
		Timestamp: time.Now(),
	}

	select {
	case h.broadcast <- statusMsg:
	default:
		logger.Warn("websocket broadcast channel full, dropping message",
			logger.Int64("trackId", trackID))
	}
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	h.register <- client
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	h.unregister <- client
}
