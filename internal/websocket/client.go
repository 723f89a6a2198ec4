package websocket

import (
	"encoding/json"
	"time"

	"dva-dashboard-be/internal/dto"
	"dva-dashboard-be/internal/entity"
	"dva-dashboard-be/internal/matrix"
	"dva-dashboard-be/internal/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var validate = validator.New()

// Conn is the part of *websocket.Conn the pumps use.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// Client is a middleman between the websocket connection and one matrix page.
type Client struct {
	ID   uuid.UUID
	Hub  *Hub
	Conn Conn

	// Buffered channel of outbound messages. Closed by the hub once the
	// client has unregistered.
	Send chan []byte

	page           *matrix.Page
	presentedToken string
	logger         logger.ILogger

	done      chan struct{}
	forwarded chan struct{}
}

// readPump applies filter messages from the browser to the page. When the
// connection ends it closes the page, which releases its subscriptions.
func (c *Client) readPump() {
	defer func() {
		close(c.done)
		c.page.Close()
		<-c.forwarded
		c.Hub.remove(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("Client", "Unexpected websocket close", map[string]interface{}{"client_id": c.ID, "error": err})
			}
			return
		}

		var msg dto.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.reply(dto.EventError, "malformed message")
			continue
		}
		if err := validate.Struct(msg); err != nil {
			c.reply(dto.EventError, "unsupported action")
			continue
		}

		c.page.SetFilter(entity.FilterSelection{Type: msg.Type, Category: msg.Category})
	}
}

// forward turns page updates into outbound messages until the page closes.
func (c *Client) forward() {
	defer close(c.forwarded)

	sessionSent := false
	push := func(vm matrix.ViewModel) bool {
		if !sessionSent {
			if token := c.page.SessionToken(); token != "" {
				sessionSent = true
				if token != c.presentedToken && !c.reply(dto.EventSession, dto.SessionPayload{Token: token}) {
					return false
				}
			}
		}
		return c.reply(dto.EventView, vm)
	}

	if !push(c.page.Model()) {
		return
	}
	for vm := range c.page.Updates() {
		if !push(vm) {
			return
		}
	}
}

// reply queues one message. It returns false once the connection is going away.
func (c *Client) reply(event string, data interface{}) bool {
	payload, err := json.Marshal(dto.ServerMessage{Event: event, Data: data})
	if err != nil {
		c.logger.Error("Client", "Failed to encode message", map[string]interface{}{"error": err, "event": event})
		return true
	}

	select {
	case c.Send <- payload:
		return true
	case <-c.done:
		return false
	}
}

// writePump pumps queued messages to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
