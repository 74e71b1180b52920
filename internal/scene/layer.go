package scene

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

var ErrInvalidOperation = errors.New("invalid operation")
var ErrDuplicateToken = errors.New("duplicate token uuid")

type LayerKind string

const (
	KindPlain LayerKind = "plain"
	KindGrid  LayerKind = "grid"
)

const GridLayerName = "grid"

// Layer is either a plain layer holding entity snapshots or the grid layer
// holding a cell size. Kind decides which payload is meaningful.
type Layer struct {
	name     string
	kind     LayerKind
	entities []Entity
	size     float64
}

func NewLayer(name string) *Layer {
	return &Layer{name: name, kind: KindPlain, entities: []Entity{}}
}

func NewGridLayer(size float64) *Layer {
	return &Layer{name: GridLayerName, kind: KindGrid, size: size}
}

func (l *Layer) Name() string    { return l.name }
func (l *Layer) Kind() LayerKind { return l.kind }
func (l *Layer) IsGrid() bool    { return l.kind == KindGrid }

// Size is the grid cell size; zero for plain layers.
func (l *Layer) Size() float64 { return l.size }

// AddShape captures s as it is right now and appends the snapshot. Negative
// sizes are rejected.
func (l *Layer) AddShape(s Serializable) error {
	if l.kind == KindGrid {
		return fmt.Errorf("scene: add entity to grid layer: %w", ErrInvalidOperation)
	}
	e := s.Serialize()
	if !(e.W >= 0 && e.H >= 0) {
		return fmt.Errorf("scene: %s size %vx%v: %w", e.Type, e.W, e.H, ErrInvalidOperation)
	}
	l.entities = append(l.entities, e)
	return nil
}

func (l *Layer) Entities() []Entity {
	return slices.Clone(l.entities)
}

func (l *Layer) Serialize() LayerSnapshot {
	if l.kind == KindGrid {
		return LayerSnapshot{Grid: true, Size: l.size}
	}
	shapes := slices.Clone(l.entities)
	if shapes == nil {
		shapes = []Entity{}
	}
	return LayerSnapshot{Shapes: shapes}
}

// LayerSnapshot is the wire form of a layer. The grid form carries no
// "shapes" key at all; clients branch on that.
type LayerSnapshot struct {
	Grid   bool
	Size   float64
	Shapes []Entity
}

type plainLayerWire struct {
	Shapes []Entity `json:"shapes"`
	Grid   bool     `json:"grid"`
}

type gridLayerWire struct {
	Grid bool    `json:"grid"`
	Size float64 `json:"size"`
}

func (s LayerSnapshot) MarshalJSON() ([]byte, error) {
	if s.Grid {
		return json.Marshal(gridLayerWire{Grid: true, Size: s.Size})
	}
	shapes := s.Shapes
	if shapes == nil {
		shapes = []Entity{}
	}
	return json.Marshal(plainLayerWire{Shapes: shapes, Grid: false})
}
