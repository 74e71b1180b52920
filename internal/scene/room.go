package scene

import (
	"fmt"
	"sync"
)

const (
	LayerMap    = "map"
	LayerTokens = "tokens"
	LayerDM     = "dm"

	DefaultGridSize = 50
)

type Room struct {
	name   string
	layers *LayerManager

	mu       sync.RWMutex
	tokenIDs map[string]struct{}
}

// NewRoom builds a room with the default layer stack (map, tokens, dm, grid)
// and the starter shapes every new room ships with.
func NewRoom(name string) *Room {
	lm := NewLayerManager()
	mapLayer := NewLayer(LayerMap)
	tokenLayer := NewLayer(LayerTokens)

	lm.Add(mapLayer)
	lm.Add(tokenLayer)
	lm.Add(NewLayer(LayerDM))
	lm.Add(NewGridLayer(DefaultGridSize))

	// Plain layers never reject shapes.
	_ = mapLayer.AddShape(NewShape(50, 50, 50, 50))
	_ = tokenLayer.AddShape(redShape(100, 50))
	_ = tokenLayer.AddShape(redShape(50, 100))

	return &Room{
		name:     name,
		layers:   lm,
		tokenIDs: make(map[string]struct{}),
	}
}

func redShape(x, y float64) *Shape {
	s := NewShape(x, y, 50, 50)
	s.Colour = "red"
	return s
}

func (r *Room) Name() string { return r.name }

// LayerManager exposes the layer stack directly. Writes through it bypass the
// room lock and the token uuid check; use AddToken for concurrent callers.
func (r *Room) LayerManager() *LayerManager { return r.layers }

func (r *Room) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.layers.Serialize()
}

// AddToken places t on the named layer. A uuid may only ever be used once per room.
func (r *Room) AddToken(layer string, t *Token) error {
	if t.UUID == "" {
		return fmt.Errorf("scene: room %q: token without uuid: %w", r.name, ErrInvalidOperation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.layers.Layer(layer)
	if !ok {
		return fmt.Errorf("scene: room %q: no layer %q: %w", r.name, layer, ErrInvalidOperation)
	}
	if _, seen := r.tokenIDs[t.UUID]; seen {
		return fmt.Errorf("scene: room %q: token %s: %w", r.name, t.UUID, ErrDuplicateToken)
	}
	if err := l.AddShape(t); err != nil {
		return err
	}
	r.tokenIDs[t.UUID] = struct{}{}
	return nil
}
