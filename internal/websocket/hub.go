package websocket

import (
	"sync"

	"dva-dashboard-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// Hub tracks the live matrix connections of this instance.
type Hub struct {
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client

	quit     chan struct{}
	quitOnce sync.Once
	stopped  chan struct{}

	mu sync.RWMutex

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
		logger:     log,
	}
}

func (h *Hub) Run() {
	defer close(h.stopped)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_id": client.ID, "clients": total})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"client_id": client.ID, "clients": total})

		case <-h.quit:
			h.mu.Lock()
			for id, client := range h.clients {
				client.Conn.Close()
				delete(h.clients, id)
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Hub stopped", nil)
			return
		}
	}
}

// Shutdown closes every client connection, which ends its pumps and closes
// its page. It returns once Run has exited.
func (h *Hub) Shutdown() {
	h.quitOnce.Do(func() { close(h.quit) })
	<-h.stopped
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.quit:
	}
}
