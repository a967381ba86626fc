package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connect-therapy/session-chat/internal/model/chat"
)

func TestRunPendingAppliesInPostOrder(t *testing.T) {
	r, tr, view := newTestRelay()
	ctx := context.Background()

	view.input = "a"
	require.NoError(t, r.Post(ctx, TransportReady{}))
	require.NoError(t, r.Post(ctx, KeyPressed{Key: KeyEvent{Code: KeyCodeEnter}}))
	require.NoError(t, r.Post(ctx, InboundMessage{Raw: chatEnvelope("b")}))
	require.NoError(t, r.Post(ctx, Submitted{Text: "c"}))
	require.NoError(t, r.Post(ctx, PeerMediaAdded{}))

	assert.Equal(t, 5, r.RunPending())
	assert.Equal(t, 0, r.RunPending())

	assert.Equal(t, []chat.Message{
		{Text: "a", Direction: chat.Sent},
		{Text: "b", Direction: chat.Received},
		{Text: "c", Direction: chat.Sent},
	}, r.Log())
	assert.Equal(t, chat.Connected, r.Phase())
	assert.Len(t, tr.joins, 1)
}

func TestRunProcessesEventsAndSnapshots(t *testing.T) {
	r, _, _ := newTestRelay()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- r.Run(ctx) }()

	require.NoError(t, r.Post(ctx, TransportReady{}))
	require.NoError(t, r.Post(ctx, Submitted{Text: "first"}))
	require.NoError(t, r.Post(ctx, MuteToggled{}))
	require.NoError(t, r.Post(ctx, PauseToggled{}))

	st, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, chat.AwaitingPeer, st.Phase)
	assert.True(t, st.Muted)
	assert.True(t, st.Paused)
	assert.Equal(t, []chat.Message{{Text: "first", Direction: chat.Sent}}, st.Log)

	res, err := r.RequestLeave(ctx, func(string) bool { return true })
	require.NoError(t, err)
	assert.True(t, res.Left)
	assert.Equal(t, "/patient/notes/session-1", res.URL)

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-ctx.Done():
		t.Fatal("Run did not stop after leave")
	}

	assert.ErrorIs(t, r.Post(context.Background(), Submitted{Text: "late"}), ErrClosed)
}

func TestRequestLeaveDeclinedKeepsRunning(t *testing.T) {
	r, _, _ := newTestRelay()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	go func() { _ = r.Run(ctx) }()

	res, err := r.RequestLeave(ctx, func(string) bool { return false })
	require.NoError(t, err)
	assert.False(t, res.Left)

	require.NoError(t, r.Post(ctx, Submitted{Text: "after decline"}))
	st, err := r.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, st.Log, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	r, _, _ := newTestRelay()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, r.Run(ctx), context.Canceled)
}

func TestPostRespectsContextWhenQueueFull(t *testing.T) {
	tr := &fakeTransport{}
	r := New(Config{RoomID: "x"}, tr, newFakeView(), WithQueueSize(1))

	require.NoError(t, r.Post(context.Background(), PeerMediaAdded{}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Post(ctx, PeerMediaAdded{}), context.DeadlineExceeded)
}
