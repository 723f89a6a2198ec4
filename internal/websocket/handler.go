package websocket

import (
	"context"
	"errors"

	"dva-dashboard-be/internal/config"
	"dva-dashboard-be/internal/matrix"
	"dva-dashboard-be/internal/pkg/logger"

	"github.com/google/uuid"
)

// ServeWs runs one live matrix view on conn and returns when the peer goes
// away. presentedToken is the session token the browser connected with.
func ServeWs(hub *Hub, conn Conn, page *matrix.Page, presentedToken string, log logger.ILogger) {
	client := &Client{
		ID:             uuid.New(),
		Hub:            hub,
		Conn:           conn,
		Send:           make(chan []byte, 16),
		page:           page,
		presentedToken: presentedToken,
		logger:         log,
		done:           make(chan struct{}),
		forwarded:      make(chan struct{}),
	}

	if !hub.add(client) {
		page.Close()
		conn.Close()
		return
	}

	if err := page.Open(context.Background()); err != nil && !errors.Is(err, config.ErrConfigMissing) {
		log.Error("Client", "Failed to open matrix page", map[string]interface{}{"client_id": client.ID, "error": err})
	}

	go client.writePump()
	go client.forward()
	client.readPump()
}
