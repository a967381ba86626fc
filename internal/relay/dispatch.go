package relay

import (
	"context"
	"errors"

	"github.com/connect-therapy/session-chat/internal/model/chat"
)

// ErrClosed is returned when posting to a relay whose session was left.
var ErrClosed = errors.New("relay closed")

// Event is something the relay reacts to. Events are applied one at a time,
// in the order they were posted.
type Event interface {
	apply(r *Relay)
}

// TransportReady fires once local media has been captured.
type TransportReady struct{}

// PeerMediaAdded fires once per remote stream attached.
type PeerMediaAdded struct{}

// InboundMessage carries a raw envelope received from a peer.
type InboundMessage struct {
	Raw []byte
}

// KeyPressed is a key press in the message field.
type KeyPressed struct {
	Key KeyEvent
}

// Submitted is an explicit send of the given text.
type Submitted struct {
	Text string
}

// PauseToggled flips local media flow.
type PauseToggled struct{}

// MuteToggled flips the local microphone.
type MuteToggled struct{}

// LeaveRequested runs the leave confirmation gate. Reply, when set, must be
// buffered; it receives the outcome.
type LeaveRequested struct {
	Confirm ConfirmFunc
	Reply   chan<- LeaveResult
}

// LeaveResult is the outcome of a LeaveRequested event.
type LeaveResult struct {
	URL  string
	Left bool
}

// State is a point-in-time copy of the relay's session state.
type State struct {
	Phase  chat.Phase
	Paused bool
	Muted  bool
	Log    []chat.Message
}

type snapshotRequest struct {
	reply chan State
}

func (TransportReady) apply(r *Relay)   { r.OnTransportReady() }
func (PeerMediaAdded) apply(r *Relay)   { r.OnPeerMediaAdded() }
func (e InboundMessage) apply(r *Relay) { r.OnInboundMessage(e.Raw) }
func (e KeyPressed) apply(r *Relay)     { r.OnEnterKey(e.Key) }
func (e Submitted) apply(r *Relay)      { r.Send(e.Text) }
func (PauseToggled) apply(r *Relay)     { r.TogglePause() }
func (MuteToggled) apply(r *Relay)      { r.ToggleMute() }

func (e LeaveRequested) apply(r *Relay) {
	url, left := r.confirmLeave(e.Confirm)
	if e.Reply != nil {
		e.Reply <- LeaveResult{URL: url, Left: left}
	}
	if left {
		r.close()
	}
}

func (e snapshotRequest) apply(r *Relay) {
	e.reply <- State{Phase: r.phase, Paused: r.paused, Muted: r.muted, Log: r.Log()}
}

// Post enqueues an event. It is safe to call from any goroutine.
func (r *Relay) Post(ctx context.Context, ev Event) error {
	select {
	case <-r.done:
		return ErrClosed
	default:
	}

	select {
	case r.queue <- ev:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies queued events until ctx is cancelled or the session is left.
// Leaving ends Run with a nil error.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Debug().Msg("dispatch loop started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.done:
			return nil
		case ev := <-r.queue:
			ev.apply(r)
		}
	}
}

// RunPending applies every event already queued without blocking and returns
// how many were applied.
func (r *Relay) RunPending() int {
	n := 0
	for {
		if r.Closed() {
			return n
		}
		select {
		case ev := <-r.queue:
			ev.apply(r)
			n++
		default:
			return n
		}
	}
}

// Snapshot asks the dispatch loop for a copy of the session state.
func (r *Relay) Snapshot(ctx context.Context) (State, error) {
	reply := make(chan State, 1)
	if err := r.Post(ctx, snapshotRequest{reply: reply}); err != nil {
		return State{}, err
	}
	select {
	case st := <-reply:
		return st, nil
	case <-r.done:
		return State{}, ErrClosed
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

// RequestLeave posts a LeaveRequested event and waits for its outcome.
func (r *Relay) RequestLeave(ctx context.Context, confirm ConfirmFunc) (LeaveResult, error) {
	reply := make(chan LeaveResult, 1)
	if err := r.Post(ctx, LeaveRequested{Confirm: confirm, Reply: reply}); err != nil {
		return LeaveResult{}, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-r.done:
		// The reply is sent before the relay closes.
		select {
		case res := <-reply:
			return res, nil
		default:
			return LeaveResult{}, ErrClosed
		}
	case <-ctx.Done():
		return LeaveResult{}, ctx.Err()
	}
}
