package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/connect-therapy/session-chat/internal/config"
	"github.com/connect-therapy/session-chat/internal/model/signal"
	pkglog "github.com/connect-therapy/session-chat/pkg/log"
)

var (
	ErrClientClosed   = errors.New("client closed")
	ErrSendBufferFull = errors.New("client send buffer full")
)

// Client is one websocket connection authorized for a single session.
type Client struct {
	ID            string
	SessionID     string
	ParticipantID string

	hub    *Hub
	conn   *websocket.Conn
	cfg    config.WebSocketConfig
	logger zerolog.Logger

	mu     sync.Mutex
	send   chan []byte
	closed bool
	room   string
}

// NewClient wraps an upgraded connection.
func NewClient(id, sessionID, participantID string, h *Hub, conn *websocket.Conn, cfg config.WebSocketConfig) *Client {
	buffer := cfg.SendBuffer
	if buffer <= 0 {
		buffer = 256
	}
	return &Client{
		ID:            id,
		SessionID:     sessionID,
		ParticipantID: participantID,
		hub:           h,
		conn:          conn,
		cfg:           cfg,
		send:          make(chan []byte, buffer),
		logger: pkglog.Component("hub").With().
			Str(pkglog.FieldClientID, id).
			Str(pkglog.FieldSessionID, sessionID).
			Str(pkglog.FieldParticipantID, participantID).
			Logger(),
	}
}

// Room returns the room the client has joined, or "".
func (c *Client) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) setRoom(room string) {
	c.mu.Lock()
	c.room = room
	c.mu.Unlock()
}

// SendFrame queues a frame for the write pump.
func (c *Client) SendFrame(f signal.Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return c.enqueue(data)
}

func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadPump reads frames until the connection fails, handing each to handler.
// On exit the client leaves its room and is unregistered.
func (c *Client) ReadPump(handler func(*Client, []byte)) {
	defer func() {
		c.hub.Leave(c)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	if c.cfg.MaxMessageSize > 0 {
		c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	}
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket read error")
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		handler(c, message)
	}
}

// WritePump drains the send queue and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
