package signal

import (
	"encoding/json"
	"time"
)

// Frame types sent by clients.
const (
	TypeJoin    = "join"
	TypeLeave   = "leave"
	TypeMessage = "message"
	TypePing    = "ping"
)

// Frame types sent by the server.
const (
	TypeReady       = "ready"
	TypeJoined      = "joined"
	TypePeerJoined  = "peer_joined"
	TypePeerPresent = "peer_present"
	TypePeerLeft    = "peer_left"
	TypeError       = "error"
	TypePong        = "pong"
)

// Error codes carried by error frames.
const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeNotJoined   = "NOT_JOINED"
	CodeMismatch    = "SESSION_MISMATCH"
	CodeUnsupported = "UNSUPPORTED"
)

// Frame is the single websocket message shape in both directions. Data holds
// the tagged envelope peers exchange; the server never looks inside it.
type Frame struct {
	Type      string          `json:"type"`
	Room      string          `json:"room,omitempty"`
	PeerID    string          `json:"peerId,omitempty"`
	Peers     []string        `json:"peers,omitempty"`
	From      string          `json:"from,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Code      string          `json:"code,omitempty"`
	Message   string          `json:"message,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewFrame stamps a frame of the given type with the current time.
func NewFrame(frameType string) Frame {
	return Frame{Type: frameType, Timestamp: time.Now().Unix()}
}

// NewError builds an error frame.
func NewError(code, message string) Frame {
	f := NewFrame(TypeError)
	f.Code = code
	f.Message = message
	return f
}
