package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connect-therapy/session-chat/internal/model/chat"
	"github.com/connect-therapy/session-chat/internal/model/signal"
	"github.com/connect-therapy/session-chat/internal/relay"
)

var _ relay.Transport = (*Client)(nil)

// scriptedServer accepts one connection, greets it with a ready frame and
// hands every frame it receives to the test.
type scriptedServer struct {
	*httptest.Server
	received chan signal.Frame
	conns    chan *websocket.Conn
}

func newScriptedServer(t *testing.T) *scriptedServer {
	t.Helper()
	s := &scriptedServer{
		received: make(chan signal.Frame, 16),
		conns:    make(chan *websocket.Conn, 1),
	}
	upgrader := websocket.Upgrader{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ready := signal.NewFrame(signal.TypeReady)
		ready.PeerID = "peer-self"
		if err := conn.WriteJSON(ready); err != nil {
			return
		}
		s.conns <- conn

		for {
			var f signal.Frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			s.received <- f
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *scriptedServer) url() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *scriptedServer) next(t *testing.T) signal.Frame {
	t.Helper()
	select {
	case f := <-s.received:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("server received nothing")
		return signal.Frame{}
	}
}

type recorder struct {
	mu       sync.Mutex
	ready    []string
	peers    []string
	left     []string
	messages []string
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnReady: func(id string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.ready = append(r.ready, id)
		},
		OnPeerMedia: func(id string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.peers = append(r.peers, id)
		},
		OnPeerLeft: func(id string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.left = append(r.left, id)
		},
		OnMessage: func(from string, data []byte) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.messages = append(r.messages, from+":"+string(data))
		},
	}
}

func (r *recorder) snapshot() (ready, peers, left, messages []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.ready...), append([]string(nil), r.peers...),
		append([]string(nil), r.left...), append([]string(nil), r.messages...)
}

func startClient(t *testing.T, srv *scriptedServer, rec *recorder) (*Client, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	client, err := Dial(ctx, srv.url(), rec.handlers())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()
	return client, done
}

func TestClientDispatchesServerFrames(t *testing.T) {
	srv := newScriptedServer(t)
	rec := &recorder{}
	client, done := startClient(t, srv, rec)
	conn := <-srv.conns

	joined := signal.NewFrame(signal.TypeJoined)
	joined.Peers = []string{"peer-a", "peer-b"}
	require.NoError(t, conn.WriteJSON(joined))

	present := signal.NewFrame(signal.TypePeerPresent)
	present.PeerID = "peer-c"
	require.NoError(t, conn.WriteJSON(present))

	left := signal.NewFrame(signal.TypePeerLeft)
	left.PeerID = "peer-a"
	require.NoError(t, conn.WriteJSON(left))

	msg := signal.NewFrame(signal.TypeMessage)
	msg.From = "peer-b"
	msg.Data = json.RawMessage(`{"type":"chat","payload":{"message":"hi"}}`)
	require.NoError(t, conn.WriteJSON(msg))

	require.Eventually(t, func() bool {
		_, _, _, messages := rec.snapshot()
		return len(messages) == 1
	}, 2*time.Second, 10*time.Millisecond)

	ready, peers, gone, messages := rec.snapshot()
	assert.Equal(t, []string{"peer-self"}, ready)
	assert.Equal(t, []string{"peer-a", "peer-b", "peer-c"}, peers)
	assert.Equal(t, []string{"peer-a"}, gone)
	assert.Equal(t, []string{`peer-b:{"type":"chat","payload":{"message":"hi"}}`}, messages)

	client.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Close")
	}
}

func TestClientSendsJoinAndEnvelopes(t *testing.T) {
	srv := newScriptedServer(t)
	client, _ := startClient(t, srv, &recorder{})
	<-srv.conns

	require.NoError(t, client.JoinRoom("session-1"))
	join := srv.next(t)
	assert.Equal(t, signal.TypeJoin, join.Type)
	assert.Equal(t, "session-1", join.Room)

	require.NoError(t, client.SendToAll(chat.TagChat, chat.ChatPayload{Message: " hello "}))
	sent := srv.next(t)
	assert.Equal(t, signal.TypeMessage, sent.Type)
	var env chat.Envelope
	require.NoError(t, json.Unmarshal(sent.Data, &env))
	assert.Equal(t, chat.TagChat, env.Type)
	assert.JSONEq(t, `{"message":" hello "}`, string(env.Payload))

	client.Mute()
	muted := srv.next(t)
	require.NoError(t, json.Unmarshal(muted.Data, &env))
	assert.Equal(t, TagMute, env.Type)
	assert.JSONEq(t, `{"kind":"audio"}`, string(env.Payload))

	client.Resume()
	resumed := srv.next(t)
	require.NoError(t, json.Unmarshal(resumed.Data, &env))
	assert.Equal(t, TagResume, env.Type)
}

func TestClientRejectsWritesAfterClose(t *testing.T) {
	srv := newScriptedServer(t)
	client, done := startClient(t, srv, &recorder{})
	<-srv.conns

	client.Close()
	assert.ErrorIs(t, client.JoinRoom("session-1"), ErrClosed)
	<-done
}

func TestClientRunStopsOnServerClose(t *testing.T) {
	srv := newScriptedServer(t)
	_, done := startClient(t, srv, &recorder{})
	conn := <-srv.conns

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")
	require.NoError(t, conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after server close")
	}
}

func TestDialReportsRejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), "ws"+strings.TrimPrefix(srv.URL, "http"), Handlers{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestSessionURL(t *testing.T) {
	got, err := SessionURL("http://localhost:8080/", "abc", "patient-jordan")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/api/ws/abc?participant=patient-jordan", got)

	got, err = SessionURL("https://chat.example.com", "abc", "dr-okafor")
	require.NoError(t, err)
	assert.Equal(t, "wss://chat.example.com/api/ws/abc?participant=dr-okafor", got)

	_, err = SessionURL("ftp://example.com", "abc", "x")
	assert.Error(t, err)
}
