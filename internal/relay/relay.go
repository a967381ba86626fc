package relay

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/connect-therapy/session-chat/internal/model/chat"
	pkglog "github.com/connect-therapy/session-chat/pkg/log"
)

// LeavePrompt is the question asked before leaving a session.
const LeavePrompt = "Are you sure you want to leave this session?"

// KeyCodeEnter is the key code of the Enter key.
const KeyCodeEnter = 13

// KeyEvent is a key press in the message field.
type KeyEvent struct {
	Code int
	Key  string
}

// IsEnter reports whether the event is the Enter key.
func (k KeyEvent) IsEnter() bool {
	return k.Code == KeyCodeEnter || k.Key == "Enter"
}

// ConfirmFunc asks the user a yes/no question and blocks until answered.
type ConfirmFunc func(prompt string) bool

// Config is supplied by the embedding page.
type Config struct {
	// RoomID is the opaque session identifier joined once media is ready.
	RoomID string
	// LeaveURL is where the page navigates after a confirmed leave.
	LeaveURL string
}

// Relay bridges transport lifecycle and message events to the message log and
// the call controls. All state belongs to the instance; its methods must be
// called from one goroutine, normally Run's.
type Relay struct {
	cfg       Config
	transport Transport
	view      View
	logger    zerolog.Logger

	phase  chat.Phase
	joined bool
	paused bool
	muted  bool
	log    []chat.Message

	queue     chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// Option customizes a Relay.
type Option func(*Relay)

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Relay) { r.logger = l }
}

// WithQueueSize sets the dispatch queue capacity.
func WithQueueSize(n int) Option {
	return func(r *Relay) {
		if n > 0 {
			r.queue = make(chan Event, n)
		}
	}
}

// New creates a relay in the AwaitingLocalMedia phase with call controls hidden.
func New(cfg Config, transport Transport, view View, opts ...Option) *Relay {
	r := &Relay{
		cfg:       cfg,
		transport: transport,
		view:      view,
		logger:    pkglog.Component("relay"),
		phase:     chat.AwaitingLocalMedia,
		queue:     make(chan Event, 64),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With().Str(pkglog.FieldRoomID, cfg.RoomID).Logger()

	view.SetVisible(ElementControls, false)
	view.SetVisible(ElementWaitForPeer, false)
	view.SetLabel(ElementPauseButton, LabelPause)
	view.SetLabel(ElementMuteButton, LabelMute)
	return r
}

// OnTransportReady joins the room once local media is captured and reveals
// the call controls. Repeated calls do not join again.
func (r *Relay) OnTransportReady() {
	if r.joined {
		r.logger.Debug().Msg("transport ready again, already joined")
		return
	}
	r.joined = true

	if err := r.transport.JoinRoom(r.cfg.RoomID); err != nil {
		r.logger.Warn().Err(err).Msg("join room failed")
	}
	r.setPhase(chat.AwaitingPeer)

	r.view.SetVisible(ElementControls, true)
	r.view.SetVisible(ElementWaitToJoin, false)
	r.view.SetVisible(ElementWaitForPeer, true)
}

// OnPeerMediaAdded marks the call connected and hides the loading indicator.
func (r *Relay) OnPeerMediaAdded() {
	r.setPhase(chat.Connected)
	r.view.SetVisible(ElementLoading, false)
}

// OnInboundMessage appends a received chat message. Payloads that are not
// chat-tagged, cannot be decoded or carry blank text are dropped.
func (r *Relay) OnInboundMessage(raw []byte) {
	var env chat.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return
	}
	if env.Type != chat.TagChat || len(env.Payload) == 0 {
		return
	}

	var payload chat.ChatPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return
	}
	if strings.TrimSpace(payload.Message) == "" {
		return
	}

	r.appendMessage(chat.Message{Text: payload.Message, Direction: chat.Received})
}

// Send echoes rawText into the log, broadcasts it tagged as chat and clears
// the input field. Blank text is ignored and leaves the field untouched.
func (r *Relay) Send(rawText string) {
	if strings.TrimSpace(rawText) == "" {
		return
	}

	r.appendMessage(chat.Message{Text: rawText, Direction: chat.Sent})

	if err := r.transport.SendToAll(chat.TagChat, chat.ChatPayload{Message: rawText}); err != nil {
		r.logger.Debug().Err(err).Msg("broadcast failed")
	}
	r.view.ClearInput()
}

// OnEnterKey sends the current field value when ev is Enter. It returns true
// when the default newline insertion must be suppressed.
func (r *Relay) OnEnterKey(ev KeyEvent) bool {
	if !ev.IsEnter() {
		return false
	}
	r.Send(r.view.InputValue())
	return true
}

// TogglePause stops or restarts local media flow.
func (r *Relay) TogglePause() {
	if r.paused {
		r.paused = false
		r.transport.Resume()
		r.view.SetLabel(ElementPauseButton, LabelPause)
		return
	}
	r.paused = true
	r.transport.Pause()
	r.view.SetLabel(ElementPauseButton, LabelResume)
}

// ToggleMute silences or restores the local microphone.
func (r *Relay) ToggleMute() {
	if r.muted {
		r.muted = false
		r.transport.Unmute()
		r.view.SetLabel(ElementMuteButton, LabelMute)
		return
	}
	r.muted = true
	r.transport.Mute()
	r.view.SetLabel(ElementMuteButton, LabelUnmute)
}

// Leave asks for confirmation and, if accepted, closes the relay and returns
// the page to navigate to. Declining changes nothing.
func (r *Relay) Leave(confirm ConfirmFunc) (string, bool) {
	url, left := r.confirmLeave(confirm)
	if left {
		r.close()
	}
	return url, left
}

func (r *Relay) confirmLeave(confirm ConfirmFunc) (string, bool) {
	if r.Closed() {
		return "", false
	}
	if confirm == nil || !confirm(LeavePrompt) {
		return "", false
	}
	r.logger.Info().Int("messages", len(r.log)).Msg("session left")
	return r.cfg.LeaveURL, true
}

func (r *Relay) close() {
	r.closeOnce.Do(func() { close(r.done) })
}

// Closed reports whether the session was left.
func (r *Relay) Closed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Phase returns the current call phase.
func (r *Relay) Phase() chat.Phase { return r.phase }

// Paused reports whether local media is paused.
func (r *Relay) Paused() bool { return r.paused }

// Muted reports whether the local microphone is muted.
func (r *Relay) Muted() bool { return r.muted }

// Log returns a copy of the message log in display order.
func (r *Relay) Log() []chat.Message {
	return append([]chat.Message(nil), r.log...)
}

func (r *Relay) appendMessage(msg chat.Message) {
	r.log = append(r.log, msg)
	r.view.AppendRow(msg.Direction.Label(), msg.Text)
}

func (r *Relay) setPhase(p chat.Phase) {
	if r.phase == p {
		return
	}
	r.logger.Debug().Str("from", r.phase.String()).Str(pkglog.FieldPhase, p.String()).Msg("phase changed")
	r.phase = p
}
