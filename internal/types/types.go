package types

import (
	"github.com/DoyleJ11/planarally-backend/internal/assets"
	"github.com/DoyleJ11/planarally-backend/internal/scene"
)

const (
	MsgJoinRoom     = "JoinRoom"
	MsgGetLayerData = "GetLayerData"
	MsgGetTokenList = "GetTokenList"

	MsgLayerData = "LayerData"
	MsgTokenList = "TokenList"
	MsgError     = "Error"
)

type ClientMessage struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
	Path string `json:"path,omitempty"` // relative to the asset root
}

type ServerMessage struct {
	Type   string                `json:"type"` // "LayerData" | "TokenList" | "Error"
	Room   string                `json:"room,omitempty"`
	Layers []scene.LayerSnapshot `json:"layers,omitempty"`
	Tokens *assets.Listing       `json:"tokens,omitempty"`
	Error  string                `json:"error,omitempty"`
}

type CreateRoomRequest struct {
	Name string `json:"name"`
}

type RoomResponse struct {
	Name   string                `json:"name"`
	Layers []scene.LayerSnapshot `json:"layers"`
}
