package relay

import "errors"

type broadcast struct {
	tag  string
	body any
}

type fakeTransport struct {
	joins      []string
	broadcasts []broadcast
	media      []string
	sendErr    error
}

func (f *fakeTransport) JoinRoom(roomID string) error {
	f.joins = append(f.joins, roomID)
	return nil
}

func (f *fakeTransport) SendToAll(tag string, body any) error {
	f.broadcasts = append(f.broadcasts, broadcast{tag: tag, body: body})
	return f.sendErr
}

func (f *fakeTransport) Pause()  { f.media = append(f.media, "pause") }
func (f *fakeTransport) Resume() { f.media = append(f.media, "resume") }
func (f *fakeTransport) Mute()   { f.media = append(f.media, "mute") }
func (f *fakeTransport) Unmute() { f.media = append(f.media, "unmute") }

type row struct {
	sender string
	text   string
}

type fakeView struct {
	visible map[Element]bool
	labels  map[Element]string
	rows    []row
	input   string
	clears  int
}

func newFakeView() *fakeView {
	return &fakeView{
		visible: map[Element]bool{
			ElementControls:    true,
			ElementWaitToJoin:  true,
			ElementWaitForPeer: true,
			ElementLoading:     true,
		},
		labels: map[Element]string{},
	}
}

func (v *fakeView) SetVisible(el Element, visible bool) { v.visible[el] = visible }
func (v *fakeView) SetLabel(el Element, label string)   { v.labels[el] = label }
func (v *fakeView) AppendRow(sender, text string) {
	v.rows = append(v.rows, row{sender: sender, text: text})
}
func (v *fakeView) InputValue() string { return v.input }
func (v *fakeView) ClearInput() {
	v.input = ""
	v.clears++
}

var errSendFailed = errors.New("send failed")

func chatEnvelope(msg string) []byte {
	return []byte(`{"type":"chat","payload":{"message":"` + msg + `"}}`)
}

func newTestRelay() (*Relay, *fakeTransport, *fakeView) {
	tr := &fakeTransport{}
	view := newFakeView()
	r := New(Config{RoomID: "session-1", LeaveURL: "/patient/notes/session-1"}, tr, view)
	return r, tr, view
}
