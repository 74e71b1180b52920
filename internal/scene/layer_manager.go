package scene

import "slices"

// LayerManager keeps a room's layers in render order (index 0 at the bottom).
type LayerManager struct {
	layers []*Layer
}

func NewLayerManager() *LayerManager {
	return &LayerManager{}
}

func (m *LayerManager) Add(l *Layer) {
	m.layers = append(m.layers, l)
}

func (m *LayerManager) Len() int { return len(m.layers) }

func (m *LayerManager) Layers() []*Layer {
	return slices.Clone(m.layers)
}

// Layer returns the first layer with the given name.
func (m *LayerManager) Layer(name string) (*Layer, bool) {
	for _, l := range m.layers {
		if l.name == name {
			return l, true
		}
	}
	return nil, false
}

func (m *LayerManager) FindGridLayer() (*Layer, bool) {
	for _, l := range m.layers {
		if l.kind == KindGrid {
			return l, true
		}
	}
	return nil, false
}

type Snapshot struct {
	Layers []LayerSnapshot `json:"layers"`
}

func (m *LayerManager) Serialize() Snapshot {
	out := make([]LayerSnapshot, 0, len(m.layers))
	for _, l := range m.layers {
		out = append(out, l.Serialize())
	}
	return Snapshot{Layers: out}
}
