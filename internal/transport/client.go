package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/connect-therapy/session-chat/internal/model/chat"
	"github.com/connect-therapy/session-chat/internal/model/signal"
	pkglog "github.com/connect-therapy/session-chat/pkg/log"
)

// Media-state tags broadcast alongside chat. Chat relays ignore them.
const (
	TagPause  = "pause"
	TagResume = "resume"
	TagMute   = "mute"
	TagUnmute = "unmute"
)

var (
	ErrClosed     = errors.New("transport closed")
	ErrBufferFull = errors.New("transport send buffer full")
)

// Handlers receives server events. Callbacks run on the read goroutine and
// should hand work off quickly, typically by posting into a relay queue.
type Handlers struct {
	OnReady     func(peerID string)
	OnPeerMedia func(peerID string)
	OnPeerLeft  func(peerID string)
	OnMessage   func(from string, data []byte)
	OnError     func(code, message string)
}

// Client is a websocket connection to the room relay server.
type Client struct {
	conn      *websocket.Conn
	handlers  Handlers
	logger    zerolog.Logger
	writeWait time.Duration
	readWait  time.Duration

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

type options struct {
	dialer    *websocket.Dialer
	header    http.Header
	logger    zerolog.Logger
	buffer    int
	writeWait time.Duration
	readWait  time.Duration
}

// Option customizes Dial.
type Option func(*options)

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) { o.dialer = d }
}

// WithHeader adds request headers to the handshake.
func WithHeader(h http.Header) Option {
	return func(o *options) { o.header = h }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBuffer sets how many outbound frames may be queued.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithReadWait sets how long the connection may stay silent; server pings
// extend it.
func WithReadWait(d time.Duration) Option {
	return func(o *options) { o.readWait = d }
}

// Dial connects to a session room endpoint such as the URL built by
// SessionURL.
func Dial(ctx context.Context, rawURL string, handlers Handlers, opts ...Option) (*Client, error) {
	o := options{
		dialer:    websocket.DefaultDialer,
		logger:    pkglog.Component("transport"),
		buffer:    64,
		writeWait: 10 * time.Second,
		readWait:  90 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}

	conn, resp, err := o.dialer.DialContext(ctx, rawURL, o.header)
	if err != nil {
		if resp != nil {
			return nil, errors.Wrapf(err, "dial %s: status %d", rawURL, resp.StatusCode)
		}
		return nil, errors.Wrapf(err, "dial %s", rawURL)
	}

	return &Client{
		conn:      conn,
		handlers:  handlers,
		logger:    o.logger,
		writeWait: o.writeWait,
		readWait:  o.readWait,
		send:      make(chan []byte, o.buffer),
	}, nil
}

// SessionURL builds the websocket URL of a session room from the server's
// HTTP base URL.
func SessionURL(server, sessionID, participantID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(server, "/"))
	if err != nil {
		return "", errors.Wrap(err, "parse server url")
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Errorf("unsupported server scheme %q", u.Scheme)
	}
	u.Path = u.Path + "/api/ws/" + url.PathEscape(sessionID)
	u.RawQuery = url.Values{"participant": {participantID}}.Encode()
	return u.String(), nil
}

// Run pumps frames in both directions until ctx is done, Close is called or
// the server goes away.
func (c *Client) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(c.readLoop)
	g.Go(func() error { return c.writeLoop(gctx) })
	return g.Wait()
}

// Close stops the client after queued frames are written.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// JoinRoom asks the server to place this connection in roomID.
func (c *Client) JoinRoom(roomID string) error {
	frame := signal.NewFrame(signal.TypeJoin)
	frame.Room = roomID
	return c.writeFrame(frame)
}

// SendToAll broadcasts a tagged body to every other member of the room.
func (c *Client) SendToAll(tag string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrapf(err, "encode %s payload", tag)
	}
	data, err := json.Marshal(chat.Envelope{Type: tag, Payload: payload})
	if err != nil {
		return errors.Wrap(err, "encode envelope")
	}

	frame := signal.NewFrame(signal.TypeMessage)
	frame.Data = data
	return c.writeFrame(frame)
}

type mediaState struct {
	Kind string `json:"kind"`
}

// Pause tells peers local video is paused.
func (c *Client) Pause() { c.broadcastMedia(TagPause, "video") }

// Resume tells peers local video is back.
func (c *Client) Resume() { c.broadcastMedia(TagResume, "video") }

// Mute tells peers local audio is muted.
func (c *Client) Mute() { c.broadcastMedia(TagMute, "audio") }

// Unmute tells peers local audio is back.
func (c *Client) Unmute() { c.broadcastMedia(TagUnmute, "audio") }

func (c *Client) broadcastMedia(tag, kind string) {
	if err := c.SendToAll(tag, mediaState{Kind: kind}); err != nil {
		c.logger.Debug().Err(err).Str(pkglog.FieldTag, tag).Msg("media state not sent")
	}
}

func (c *Client) writeFrame(frame signal.Frame) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return errors.Wrapf(err, "encode %s frame", frame.Type)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

func (c *Client) readLoop() error {
	defer c.Close()

	c.conn.SetReadDeadline(time.Now().Add(c.readWait))
	c.conn.SetPingHandler(func(appData string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.readWait))
		return c.conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.isClosed() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return errors.Wrap(err, "read frame")
		}
		c.conn.SetReadDeadline(time.Now().Add(c.readWait))

		var frame signal.Frame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.logger.Debug().Err(err).Msg("ignoring undecodable frame")
			continue
		}
		c.dispatch(frame)
	}
}

func (c *Client) dispatch(frame signal.Frame) {
	h := c.handlers
	switch frame.Type {
	case signal.TypeReady:
		if h.OnReady != nil {
			h.OnReady(frame.PeerID)
		}
	case signal.TypeJoined:
		if h.OnPeerMedia != nil {
			for _, peer := range frame.Peers {
				h.OnPeerMedia(peer)
			}
		}
	case signal.TypePeerJoined, signal.TypePeerPresent:
		if h.OnPeerMedia != nil {
			h.OnPeerMedia(frame.PeerID)
		}
	case signal.TypePeerLeft:
		if h.OnPeerLeft != nil {
			h.OnPeerLeft(frame.PeerID)
		}
	case signal.TypeMessage:
		if h.OnMessage != nil {
			h.OnMessage(frame.From, frame.Data)
		}
	case signal.TypeError:
		c.logger.Warn().Str("code", frame.Code).Str("message", frame.Message).Msg("server rejected frame")
		if h.OnError != nil {
			h.OnError(frame.Code, frame.Message)
		}
	case signal.TypePong:
	default:
		c.logger.Debug().Str("type", frame.Type).Msg("ignoring unknown frame")
	}
}

func (c *Client) writeLoop(ctx context.Context) error {
	defer c.conn.Close()

	for {
		select {
		case <-ctx.Done():
			c.Close()
			c.writeClose()
			return nil

		case msg, ok := <-c.send:
			if !ok {
				c.writeClose()
				return nil
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.Close()
				return errors.Wrap(err, "write frame")
			}
		}
	}
}

func (c *Client) writeClose() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("close frame not sent")
	}
}
