package hub

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/connect-therapy/session-chat/internal/model/signal"
	"github.com/connect-therapy/session-chat/internal/pubsub"
	pkglog "github.com/connect-therapy/session-chat/pkg/log"
)

var (
	ErrNotRunning = errors.New("hub not running")
	ErrNotJoined  = errors.New("client has not joined a room")
)

// Hub tracks the clients connected to this instance and relays room events
// published on the bus to the local members of each room.
type Hub struct {
	id         string
	clients    map[string]*Client
	rooms      map[string]map[string]*Client
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	bus        pubsub.PubSub
	mu         sync.RWMutex
	logger     zerolog.Logger
	publishCtx context.Context
}

// New creates a hub that fans out through bus.
func New(bus pubsub.PubSub) *Hub {
	id := uuid.NewString()
	return &Hub{
		id:         id,
		clients:    make(map[string]*Client),
		rooms:      make(map[string]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		bus:        bus,
		logger:     pkglog.Component("hub").With().Str("hub_id", id).Logger(),
		publishCtx: context.Background(),
	}
}

// Start subscribes to room events and runs the hub loop until ctx is done.
// The subscription is live when Start returns.
func (h *Hub) Start(ctx context.Context) error {
	events, err := h.bus.SubscribePattern(ctx, pubsub.RoomChannelPattern)
	if err != nil {
		return err
	}
	h.publishCtx = ctx
	go h.run(ctx, events)
	return nil
}

// Done is closed once the hub loop exits.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) run(ctx context.Context, events <-chan *pubsub.Event) {
	defer func() {
		h.mu.Lock()
		for id, client := range h.clients {
			client.closeSend()
			delete(h.clients, id)
		}
		h.rooms = make(map[string]map[string]*Client)
		h.mu.Unlock()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Debug().Str(pkglog.FieldClientID, client.ID).Msg("client registered")

		case client := <-h.unregister:
			h.remove(client)

		case ev, ok := <-events:
			if !ok {
				h.logger.Warn().Msg("room event subscription closed")
				return
			}
			h.deliver(ev)
		}
	}
}

// Register adds a connected client.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrNotRunning
	}
}

// Unregister drops a client and closes its send queue.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		for room, members := range h.rooms {
			delete(members, client.ID)
			if len(members) == 0 {
				delete(h.rooms, room)
			}
		}
		delete(h.clients, client.ID)
		client.closeSend()
	}
	h.mu.Unlock()
	h.logger.Debug().Str(pkglog.FieldClientID, client.ID).Msg("client unregistered")
}

// Join places the client in room, announces it to the other members on every
// instance and returns the IDs of the members already present locally.
func (h *Hub) Join(client *Client, room string) ([]string, error) {
	if prev := client.Room(); prev != "" && prev != room {
		h.Leave(client)
	}

	h.mu.Lock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	peers := make([]string, 0, len(members))
	for id := range members {
		if id != client.ID {
			peers = append(peers, id)
		}
	}
	members[client.ID] = client
	h.mu.Unlock()
	client.setRoom(room)
	sort.Strings(peers)

	h.logger.Info().Str(pkglog.FieldClientID, client.ID).Str(pkglog.FieldRoomID, room).
		Int("peers", len(peers)).Msg("client joined room")

	frame := signal.NewFrame(signal.TypePeerJoined)
	frame.PeerID = client.ID
	return peers, h.publish(pubsub.EventPeerJoined, room, frame, client.ID, "")
}

// Leave removes the client from its room and announces the departure.
func (h *Hub) Leave(client *Client) {
	room := client.Room()
	if room == "" {
		return
	}

	h.mu.Lock()
	if members, ok := h.rooms[room]; ok {
		delete(members, client.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.mu.Unlock()
	client.setRoom("")

	h.logger.Info().Str(pkglog.FieldClientID, client.ID).Str(pkglog.FieldRoomID, room).Msg("client left room")

	frame := signal.NewFrame(signal.TypePeerLeft)
	frame.PeerID = client.ID
	if err := h.publish(pubsub.EventPeerLeft, room, frame, client.ID, ""); err != nil {
		h.logger.Debug().Err(err).Str(pkglog.FieldRoomID, room).Msg("peer_left not published")
	}
}

// Relay forwards an opaque envelope from the client to every other member of
// its room.
func (h *Hub) Relay(client *Client, data json.RawMessage) error {
	room := client.Room()
	if room == "" {
		return ErrNotJoined
	}
	frame := signal.NewFrame(signal.TypeMessage)
	frame.Room = room
	frame.From = client.ID
	frame.Data = data
	return h.publish(pubsub.EventRelay, room, frame, client.ID, "")
}

// RoomSize reports how many local clients are in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) publish(eventType, room string, frame signal.Frame, exclude, target string) error {
	ev, err := pubsub.NewEvent(eventType, room, frame)
	if err != nil {
		return err
	}
	ev.Origin = h.id
	ev.Exclude = exclude
	ev.Target = target
	return h.bus.Publish(h.publishCtx, pubsub.RoomChannel(room), ev)
}

// deliver runs on the hub loop. It never publishes synchronously: the loop is
// itself the bus consumer.
func (h *Hub) deliver(ev *pubsub.Event) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[ev.RoomID]))
	for id, client := range h.rooms[ev.RoomID] {
		if id == ev.Exclude {
			continue
		}
		if ev.Target != "" && id != ev.Target {
			continue
		}
		members = append(members, client)
	}
	h.mu.RUnlock()

	for _, client := range members {
		if err := client.enqueue(ev.Payload); err != nil {
			// A closed client is already on its way out through ReadPump.
			if errors.Is(err, ErrSendBufferFull) {
				h.logger.Warn().Err(err).Str(pkglog.FieldClientID, client.ID).Msg("dropping slow client")
				go h.Unregister(client)
			}
			continue
		}

		// A peer announced from another instance never sees our members in
		// its joined frame, so each local member introduces itself.
		if ev.Type == pubsub.EventPeerJoined && ev.Origin != h.id {
			frame := signal.NewFrame(signal.TypePeerPresent)
			frame.PeerID = client.ID
			go func(joiner string) {
				if err := h.publish(pubsub.EventPeerPresent, ev.RoomID, frame, "", joiner); err != nil {
					h.logger.Debug().Err(err).Msg("peer_present not published")
				}
			}(ev.Exclude)
		}
	}
}
