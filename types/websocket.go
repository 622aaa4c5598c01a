package types

import "encoding/json"

const (
	TypeWebsocketPing    = "ping"
	TypeWebsocketPong    = "pong"
	TypeWebsocketUpload  = "upload"
	TypeWebsocketAction  = "action"
	TypeWebsocketMessage = "message"
	TypeWebsocketError   = "error"
)

type WebsocketRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type WebSocketActionPayload struct {
	Name string `json:"name"`
}

type WebSocketResponse struct {
	Type    string      `json:"type"`
	Session string      `json:"session,omitempty"`
	Payload interface{} `json:"payload"`
}
