package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/connect-therapy/session-chat/internal/relay"
)

// TerminalView renders the session page as lines of terminal output.
type TerminalView struct {
	mu      sync.Mutex
	out     io.Writer
	visible map[relay.Element]bool
	labels  map[relay.Element]string
	input   string
}

// NewTerminalView writes to out.
func NewTerminalView(out io.Writer) *TerminalView {
	return &TerminalView{
		out:     out,
		visible: make(map[relay.Element]bool),
		labels:  make(map[relay.Element]string),
	}
}

// Writer returns the underlying output, for prompts.
func (v *TerminalView) Writer() io.Writer {
	return v.out
}

var visibilityNotices = map[relay.Element]map[bool]string{
	relay.ElementWaitToJoin:  {false: "Joined the session room."},
	relay.ElementWaitForPeer: {true: "Waiting for the other participant to connect..."},
	relay.ElementLoading:     {false: "Connected. Type a message and press Enter."},
	relay.ElementControls:    {true: "Commands: /pause /mute /leave"},
}

var labelNotices = map[string]string{
	relay.LabelResume: "Video paused.",
	relay.LabelPause:  "Video resumed.",
	relay.LabelUnmute: "Audio muted.",
	relay.LabelMute:   "Audio unmuted.",
}

func (v *TerminalView) SetVisible(el relay.Element, visible bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	prev, known := v.visible[el]
	v.visible[el] = visible
	if known && prev == visible {
		return
	}
	if msg, ok := visibilityNotices[el][visible]; ok {
		v.println(msg)
	}
}

func (v *TerminalView) SetLabel(el relay.Element, label string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	prev := v.labels[el]
	v.labels[el] = label
	if prev == "" || prev == label {
		return
	}
	if msg, ok := labelNotices[label]; ok {
		v.println(msg)
	}
}

func (v *TerminalView) AppendRow(sender, text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(fmt.Sprintf("%s: %s", sender, stripControl(text)))
}

func (v *TerminalView) InputValue() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.input
}

func (v *TerminalView) ClearInput() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input = ""
}

// Type replaces the pending input.
func (v *TerminalView) Type(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.input = text
}

// Notice prints a status line.
func (v *TerminalView) Notice(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.println(msg)
}

func (v *TerminalView) println(line string) {
	fmt.Fprintln(v.out, line)
}

// stripControl drops control characters so a peer cannot move the cursor or
// recolor the terminal.
func stripControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f || (r >= 0x80 && r < 0xa0) {
			return -1
		}
		return r
	}, s)
}
