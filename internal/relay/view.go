package relay

// Element names a region of the session page. Values match the page's element ids.
type Element string

const (
	ElementControls    Element = "controls"
	ElementWaitToJoin  Element = "wait-to-join-room"
	ElementWaitForPeer Element = "wait-for-peer-to-connect"
	ElementLoading     Element = "loading"
	ElementPauseButton Element = "paused"
	ElementMuteButton  Element = "muted"
)

// Button labels for the media toggles.
const (
	LabelPause  = "⏸"
	LabelResume = "▶"
	LabelMute   = "🔊"
	LabelUnmute = "🔇"
)

// View is the page surface the relay drives. Implementations own rendering;
// AppendRow receives raw message text and must escape it before display.
type View interface {
	SetVisible(el Element, visible bool)
	SetLabel(el Element, label string)
	AppendRow(sender, text string)
	InputValue() string
	ClearInput()
}

// Transport is the peer-to-peer collaborator providing room join, group send
// and local media switches.
type Transport interface {
	JoinRoom(roomID string) error
	SendToAll(tag string, body any) error
	Pause()
	Resume()
	Mute()
	Unmute()
}
