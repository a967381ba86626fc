package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connect-therapy/session-chat/internal/relay"
)

type nopTransport struct{ sent int }

func (n *nopTransport) JoinRoom(string) error       { return nil }
func (n *nopTransport) SendToAll(string, any) error { n.sent++; return nil }
func (n *nopTransport) Pause()                      {}
func (n *nopTransport) Resume()                     {}
func (n *nopTransport) Mute()                       {}
func (n *nopTransport) Unmute()                     {}

func TestHTMLViewDrivenByRelay(t *testing.T) {
	v := NewHTMLView()
	tr := &nopTransport{}
	r := relay.New(relay.Config{RoomID: "room"}, tr, v)

	assert.False(t, v.Visible(relay.ElementControls))
	assert.False(t, v.Visible(relay.ElementWaitForPeer))

	r.OnTransportReady()
	assert.True(t, v.Visible(relay.ElementControls))
	assert.False(t, v.Visible(relay.ElementWaitToJoin))

	v.Type("<b>bold</b> move")
	require.True(t, r.OnEnterKey(relay.KeyEvent{Code: relay.KeyCodeEnter}))
	r.OnInboundMessage([]byte(`{"type":"chat","payload":{"message":"<img src=x onerror=alert(1)>ok"}}`))

	rows := v.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "<tr><td><i>You</i></td><td>&lt;b&gt;bold&lt;/b&gt; move</td></tr>", rows[0])
	assert.Equal(t, "<tr><td><i>Them</i></td><td>&lt;img src=x onerror=alert(1)&gt;ok</td></tr>", rows[1])
	assert.Equal(t, "", v.InputValue())
	assert.Equal(t, 1, tr.sent)

	r.ToggleMute()
	assert.Equal(t, relay.LabelUnmute, v.Label(relay.ElementMuteButton))
	assert.Contains(t, v.TableHTML(), `<table id="message-table"><tr>`)
}
