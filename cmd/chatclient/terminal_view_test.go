package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/connect-therapy/session-chat/internal/relay"
)

func TestTerminalViewPrintsTransitionsOnce(t *testing.T) {
	var buf bytes.Buffer
	v := NewTerminalView(&buf)

	v.SetVisible(relay.ElementWaitForPeer, true)
	v.SetVisible(relay.ElementWaitForPeer, true)
	v.SetVisible(relay.ElementLoading, false)

	assert.Equal(t, "Waiting for the other participant to connect...\nConnected. Type a message and press Enter.\n", buf.String())
}

func TestTerminalViewLabelChanges(t *testing.T) {
	var buf bytes.Buffer
	v := NewTerminalView(&buf)

	v.SetLabel(relay.ElementPauseButton, relay.LabelPause)
	assert.Empty(t, buf.String(), "initial label is not a change")

	v.SetLabel(relay.ElementPauseButton, relay.LabelResume)
	v.SetLabel(relay.ElementMuteButton, relay.LabelMute)
	v.SetLabel(relay.ElementMuteButton, relay.LabelUnmute)
	assert.Equal(t, "Video paused.\nAudio muted.\n", buf.String())
}

func TestTerminalViewStripsControlCharacters(t *testing.T) {
	var buf bytes.Buffer
	v := NewTerminalView(&buf)

	v.AppendRow("Them", "hi\x1b[2Jthere\r")
	assert.Equal(t, "Them: hi[2Jthere\n", buf.String())
}

func TestTerminalViewInput(t *testing.T) {
	v := NewTerminalView(&bytes.Buffer{})
	v.Type("hello")
	assert.Equal(t, "hello", v.InputValue())
	v.ClearInput()
	assert.Empty(t, v.InputValue())
}
