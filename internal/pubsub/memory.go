package pubsub

import (
	"context"
	"encoding/json"
	"path"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/rs/zerolog"

	pkglog "github.com/connect-therapy/session-chat/pkg/log"
)

// Every room channel travels on one in-process topic; the channel name rides
// in the message metadata and subscriptions filter on it.
const (
	memoryTopic   = "session.rooms"
	metaChannelID = "channel"
)

// MemoryPubSub delivers events inside a single process on a watermill
// GoChannel. Publish blocks until every matching subscriber has accepted the
// event, so delivery order per subscriber equals publish order.
type MemoryPubSub struct {
	bus    *gochannel.GoChannel
	buffer int
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewMemoryPubSub creates an in-process bus whose subscriber channels hold
// buffer events.
func NewMemoryPubSub(buffer int) *MemoryPubSub {
	if buffer < 0 {
		buffer = 0
	}
	logger := pkglog.Component("pubsub")
	return &MemoryPubSub{
		bus: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            int64(buffer),
			BlockPublishUntilSubscriberAck: true,
		}, NewWatermillLogger(logger)),
		buffer: buffer,
		logger: logger,
	}
}

func (m *MemoryPubSub) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Publish delivers the event to every subscriber whose channel or pattern
// matches.
func (m *MemoryPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	if m.isClosed() {
		return ErrClosed
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(metaChannelID, channel)

	done := make(chan error, 1)
	go func() { done <- m.bus.Publish(memoryTopic, msg) }()

	select {
	case err := <-done:
		if err != nil && m.isClosed() {
			return ErrClosed
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe subscribes to a specific channel until ctx is done.
func (m *MemoryPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	return m.subscribe(ctx, func(c string) bool { return c == channel })
}

// SubscribePattern subscribes to channels matching a glob pattern until ctx
// is done.
func (m *MemoryPubSub) SubscribePattern(ctx context.Context, pattern string) (<-chan *Event, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, err
	}
	return m.subscribe(ctx, func(c string) bool {
		ok, err := path.Match(pattern, c)
		return err == nil && ok
	})
}

func (m *MemoryPubSub) subscribe(ctx context.Context, match func(string) bool) (<-chan *Event, error) {
	if m.isClosed() {
		return nil, ErrClosed
	}
	messages, err := m.bus.Subscribe(ctx, memoryTopic)
	if err != nil {
		if m.isClosed() {
			return nil, ErrClosed
		}
		return nil, err
	}

	out := make(chan *Event, m.buffer)
	go m.forward(ctx, messages, out, match)
	return out, nil
}

// forward hands matching events to out and acks each message once out has
// taken it. The GoChannel closes messages when ctx is done or the bus closes.
func (m *MemoryPubSub) forward(ctx context.Context, messages <-chan *message.Message, out chan<- *Event, match func(string) bool) {
	defer close(out)
	for msg := range messages {
		if !match(msg.Metadata.Get(metaChannelID)) {
			msg.Ack()
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			m.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("dropping undecodable event")
			msg.Ack()
			continue
		}

		select {
		case out <- &event:
			msg.Ack()
		case <-ctx.Done():
			msg.Ack()
			return
		}
	}
}

// Close detaches every subscriber. Later publishes fail with ErrClosed.
func (m *MemoryPubSub) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()
	return m.bus.Close()
}
