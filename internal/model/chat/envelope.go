package chat

import "encoding/json"

// TagChat marks transport messages carrying chat text. Other tags belong to
// other transport features (media state, presence) and are not chat.
const TagChat = "chat"

// Envelope is the tagged body peers exchange through the transport's
// group-send primitive.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChatPayload is the body of a chat-tagged envelope.
type ChatPayload struct {
	Message string `json:"message"`
}
