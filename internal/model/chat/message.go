package chat

// Direction tells whether a message was typed locally or arrived from a peer.
type Direction int

const (
	Sent Direction = iota
	Received
)

// Label is the sender cell shown next to a message row.
func (d Direction) Label() string {
	if d == Sent {
		return "You"
	}
	return "Them"
}

func (d Direction) String() string {
	switch d {
	case Sent:
		return "sent"
	case Received:
		return "received"
	default:
		return "unknown"
	}
}

// Message is one entry of the on-screen log. It is never mutated after creation.
type Message struct {
	Text      string    `json:"text"`
	Direction Direction `json:"direction"`
}
