package types

// LayerData (room snapshot):
//   layers: Layer[] // array index = z-order, map/tokens/dm/grid for a default room
//
// Layer (plain):
//   shapes: Entity[] // always present, possibly []
//   grid: false
//
// Layer (grid):
//   grid: true
//   size: number // cell size, 50 by default; no "shapes" key
//
// Entity (shape):
//   x, y, w, h: number
//   c: string // colour, "green" by default
//   type: "shape"
//
// Entity (token):
//   x, y, w, h: number
//   img: string
//   uuid: string // unique per room
//   type: "token"
