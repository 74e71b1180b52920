package registry

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/planarally-backend/internal/assets"
	"github.com/DoyleJ11/planarally-backend/internal/scene"
)

var ErrNotFound = errors.New("not found")
var ErrInvariantViolation = errors.New("invariant violation")

var (
	ErrClientNotFound = fmt.Errorf("client %w", ErrNotFound)
	ErrRoomNotFound   = fmt.Errorf("room %w", ErrNotFound)
	ErrNoRoom         = fmt.Errorf("client has no room: %w", ErrNotFound)
	ErrDanglingRoom   = fmt.Errorf("client points at a missing room: %w", ErrInvariantViolation)

	ErrRoomExists  = errors.New("room already exists")
	ErrInvalidName = errors.New("invalid room name")
	ErrClosed      = errors.New("registry closed")
)

// Client is the per-connection record. Room is empty until the client joins one.
type Client struct {
	SID         string
	Room        string
	Initialised bool
}

func (c Client) HasRoom() bool { return c.Room != "" }

type Stats struct {
	Rooms   int `json:"rooms"`
	Clients int `json:"clients"`
}

// Registry owns every Client and Room in the process. Both maps are only
// touched by the loop goroutine; callers go through the methods in api.go.
type Registry struct {
	inbox     chan Msg
	clients   map[string]*Client
	rooms     map[string]*scene.Room
	assetRoot string
	log       *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

type Option func(*Registry)

func WithAssetRoot(root string) Option {
	return func(r *Registry) { r.assetRoot = root }
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// New starts the registry. It lives until Shutdown is called or parent is cancelled.
func New(parent context.Context, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(parent)
	r := &Registry{
		inbox:     make(chan Msg, 64),
		clients:   make(map[string]*Client),
		rooms:     make(map[string]*scene.Room),
		assetRoot: assets.DefaultRoot,
		log:       zap.NewNop(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	go r.loop()
	return r
}

// Done is closed once the loop has exited.
func (r *Registry) Done() <-chan struct{} { return r.done }

func (r *Registry) loop() {
	defer close(r.done)
	for {
		select {
		case <-r.ctx.Done():
			r.teardown()
			return

		case m := <-r.inbox:
			if stop := r.handle(m); stop {
				r.teardown()
				return
			}
		}
	}
}

func (r *Registry) handle(m Msg) (stop bool) {
	switch msg := m.(type) {
	case AddClient:
		c := &Client{SID: msg.SID}
		r.clients[msg.SID] = c
		r.log.Debug("client added", zap.String("sid", msg.SID), zap.Int("clients", len(r.clients)))
		reply(msg.Reply, *c)

	case RemoveClient:
		_, ok := r.clients[msg.SID]
		delete(r.clients, msg.SID)
		if ok {
			r.log.Debug("client removed", zap.String("sid", msg.SID), zap.Int("clients", len(r.clients)))
		}
		reply(msg.Reply, ok)

	case AddRoom:
		reply(msg.Reply, r.handleAddRoom(msg))

	case GetRoom:
		if rm := r.rooms[msg.Name]; rm != nil {
			reply(msg.Reply, RoomResult{Room: rm})
			break
		}
		reply(msg.Reply, RoomResult{Err: fmt.Errorf("registry: room %q: %w", msg.Name, ErrRoomNotFound)})

	case JoinRoom:
		reply(msg.Reply, r.joinRoom(msg.SID, msg.Room))

	case MarkInitialised:
		c := r.clients[msg.SID]
		if c == nil {
			reply(msg.Reply, fmt.Errorf("registry: sid %q: %w", msg.SID, ErrClientNotFound))
			break
		}
		c.Initialised = true
		reply(msg.Reply, nil)

	case GetClient:
		c := r.clients[msg.SID]
		if c == nil {
			reply(msg.Reply, ClientResult{Err: fmt.Errorf("registry: sid %q: %w", msg.SID, ErrClientNotFound)})
			break
		}
		reply(msg.Reply, ClientResult{Client: *c})

	case GetClientRoom:
		reply(msg.Reply, r.clientRoom(msg.SID))

	case GetStats:
		reply(msg.Reply, Stats{Rooms: len(r.rooms), Clients: len(r.clients)})

	case Shutdown:
		return true

	default:
		r.log.Warn("unknown registry message", zap.String("type", fmt.Sprintf("%T", m)))
	}
	return false
}

// reply never blocks the loop: wrappers always hand in a buffered channel,
// so a full or nil channel means nobody is listening.
func reply[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}

func (r *Registry) handleAddRoom(msg AddRoom) RoomResult {
	if msg.Name == "" {
		return RoomResult{Err: fmt.Errorf("registry: %w", ErrInvalidName)}
	}

	existing := r.rooms[msg.Name]
	switch {
	case existing != nil && msg.Mode == ModeStrict:
		return RoomResult{Err: fmt.Errorf("registry: room %q: %w", msg.Name, ErrRoomExists)}
	case existing != nil && msg.Mode == ModeEnsure:
		return RoomResult{Room: existing}
	case existing != nil:
		r.log.Warn("room replaced", zap.String("room", msg.Name))
	}

	rm := scene.NewRoom(msg.Name)
	r.rooms[msg.Name] = rm
	r.log.Info("room created", zap.String("room", msg.Name), zap.Int("rooms", len(r.rooms)))
	return RoomResult{Room: rm, Created: true}
}

func (r *Registry) joinRoom(sid, name string) error {
	c := r.clients[sid]
	if c == nil {
		return fmt.Errorf("registry: sid %q: %w", sid, ErrClientNotFound)
	}
	if r.rooms[name] == nil {
		return fmt.Errorf("registry: room %q: %w", name, ErrRoomNotFound)
	}
	c.Room = name
	return nil
}

func (r *Registry) clientRoom(sid string) RoomResult {
	c := r.clients[sid]
	if c == nil {
		return RoomResult{Err: fmt.Errorf("registry: sid %q: %w", sid, ErrClientNotFound)}
	}
	if !c.HasRoom() {
		return RoomResult{Err: fmt.Errorf("registry: sid %q: %w", sid, ErrNoRoom)}
	}
	rm := r.rooms[c.Room]
	if rm == nil {
		r.log.Error("dangling room reference", zap.String("sid", sid), zap.String("room", c.Room))
		return RoomResult{Err: fmt.Errorf("registry: sid %q room %q: %w", sid, c.Room, ErrDanglingRoom)}
	}
	return RoomResult{Room: rm}
}

func (r *Registry) teardown() {
	r.log.Info("registry shutting down", zap.Int("rooms", len(r.rooms)), zap.Int("clients", len(r.clients)))
	clear(r.clients)
	clear(r.rooms)
	r.cancel()
}
