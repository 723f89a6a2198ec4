package dto

import "dva-dashboard-be/internal/entity"

// MatrixQuery is the filter carried by GET /api/matrix.
type MatrixQuery struct {
	Type     string `query:"type"`
	Category string `query:"category"`
}

func (q MatrixQuery) Selection() entity.FilterSelection {
	return entity.FilterSelection{Type: q.Type, Category: q.Category}.Normalize()
}

// Websocket actions sent by the browser.
const (
	ActionFilter = "filter"
)

// Websocket events pushed to the browser.
const (
	EventView    = "view"
	EventSession = "session"
	EventError   = "error"
)

type ClientMessage struct {
	Action   string `json:"action" validate:"required,oneof=filter"`
	Type     string `json:"type"`
	Category string `json:"category"`
}

type ServerMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type SessionPayload struct {
	Token string `json:"token"`
}
