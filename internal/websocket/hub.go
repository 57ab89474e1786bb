package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/storytovideo/companion/internal/model"
)

// Client represents a WebSocket client subscribed to one project's events
type Client struct {
	ID        string
	ProjectID string
	Conn      *websocket.Conn
	Send      chan []byte
}

// Hub maintains active WebSocket connections and pushes orchestrator events
// to the presentation layer.
type Hub struct {
	// Clients grouped by project ID
	clients map[string]map[*Client]bool

	// Register requests
	register chan *Client

	// Unregister requests
	unregister chan *Client

	// Broadcast messages to project subscribers
	broadcast chan *BroadcastMessage

	mu sync.RWMutex
}

// BroadcastMessage represents a message to broadcast. An empty ProjectID
// targets every connected client.
type BroadcastMessage struct {
	ProjectID string
	Message   []byte
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *BroadcastMessage, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.ProjectID] == nil {
				h.clients[client.ProjectID] = make(map[*Client]bool)
			}
			h.clients[client.ProjectID][client] = true
			h.mu.Unlock()
			log.Printf("Client %s registered for project %s", client.ID, client.ProjectID)

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.ProjectID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					if len(clients) == 0 {
						delete(h.clients, client.ProjectID)
					}
				}
			}
			h.mu.Unlock()
			log.Printf("Client %s unregistered from project %s", client.ID, client.ProjectID)

		case msg := <-h.broadcast:
			h.mu.RLock()
			if msg.ProjectID == "" {
				for _, clients := range h.clients {
					h.deliver(clients, msg.Message)
				}
			} else if clients, ok := h.clients[msg.ProjectID]; ok {
				h.deliver(clients, msg.Message)
			}
			h.mu.RUnlock()
		}
	}
}

// deliver pushes a message to each client, dropping clients whose send
// buffer is full.
func (h *Hub) deliver(clients map[*Client]bool, message []byte) {
	for client := range clients {
		select {
		case client.Send <- message:
		default:
			close(client.Send)
			delete(clients, client)
		}
	}
}

// Register adds a new client
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast sends a pre-marshaled message to a project's subscribers.
func (h *Hub) Broadcast(projectID string, message []byte) {
	h.broadcast <- &BroadcastMessage{ProjectID: projectID, Message: message}
}

// HandleConnection handles a WebSocket connection subscribed to projectID
func (h *Hub) HandleConnection(c *websocket.Conn, projectID string) {
	client := &Client{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Conn:      c,
		Send:      make(chan []byte, 256),
	}

	h.Register(client)
	defer h.Unregister(client)

	// Start writer goroutine
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case message, ok := <-client.Send:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				if err := c.WriteMessage(websocket.TextMessage, message); err != nil {
					return
				}

			case <-ticker.C:
				// Send ping for keep-alive
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		// Handle client messages (ping/pong)
		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}

		if msg.Type == model.WSMessageTypePing {
			pong := model.WSMessage{Type: model.WSMessageTypePong}
			data, _ := json.Marshal(pong)
			client.Send <- data
		}
	}
}
