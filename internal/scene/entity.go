package scene

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

const DefaultColour = "green"

type EntityType string

const (
	TypeShape EntityType = "shape"
	TypeToken EntityType = "token"
)

// Serializable is anything a layer can capture.
type Serializable interface {
	Serialize() Entity
}

type Shape struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
	Colour string
}

// NewShape builds a green shape. Sizes are not checked here; Layer.AddShape
// rejects negative or NaN width and height.
func NewShape(x, y, width, height float64) *Shape {
	return &Shape{X: x, Y: y, Width: width, Height: height, Colour: DefaultColour}
}

func (s *Shape) Serialize() Entity {
	return Entity{
		Type:   TypeShape,
		X:      s.X,
		Y:      s.Y,
		W:      s.Width,
		H:      s.Height,
		Colour: s.Colour,
	}
}

type Token struct {
	Img    string
	X      float64
	Y      float64
	Width  float64
	Height float64
	UUID   string
}

// NewToken builds a token with a freshly generated uuid. As with NewShape,
// the size is validated when the token is added to a layer.
func NewToken(img string, x, y, width, height float64) *Token {
	return &Token{Img: img, X: x, Y: y, Width: width, Height: height, UUID: uuid.NewString()}
}

func (t *Token) Serialize() Entity {
	return Entity{
		Type: TypeToken,
		X:    t.X,
		Y:    t.Y,
		W:    t.Width,
		H:    t.Height,
		Img:  t.Img,
		UUID: t.UUID,
	}
}

// Entity is the captured, wire-ready form of a Shape or Token. Layers only
// ever hold Entity values, never the live objects they came from.
type Entity struct {
	Type   EntityType
	X      float64
	Y      float64
	W      float64
	H      float64
	Colour string // shape only
	Img    string // token only
	UUID   string // token only
}

type shapeWire struct {
	X    float64    `json:"x"`
	Y    float64    `json:"y"`
	W    float64    `json:"w"`
	H    float64    `json:"h"`
	C    string     `json:"c"`
	Type EntityType `json:"type"`
}

type tokenWire struct {
	X    float64    `json:"x"`
	Y    float64    `json:"y"`
	W    float64    `json:"w"`
	H    float64    `json:"h"`
	Img  string     `json:"img"`
	UUID string     `json:"uuid"`
	Type EntityType `json:"type"`
}

func (e Entity) MarshalJSON() ([]byte, error) {
	switch e.Type {
	case TypeShape:
		return json.Marshal(shapeWire{X: e.X, Y: e.Y, W: e.W, H: e.H, C: e.Colour, Type: e.Type})
	case TypeToken:
		return json.Marshal(tokenWire{X: e.X, Y: e.Y, W: e.W, H: e.H, Img: e.Img, UUID: e.UUID, Type: e.Type})
	default:
		return nil, fmt.Errorf("scene: unknown entity type %q", e.Type)
	}
}
