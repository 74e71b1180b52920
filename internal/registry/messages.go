package registry

import "github.com/DoyleJ11/planarally-backend/internal/scene"

type Msg interface{ isRegistryMsg() }

type AddMode int

const (
	ModeReplace AddMode = iota // overwrite any room with the same name
	ModeStrict                 // fail with ErrRoomExists
	ModeEnsure                 // keep the existing room
)

type RoomResult struct {
	Room    *scene.Room
	Created bool
	Err     error
}

type ClientResult struct {
	Client Client
	Err    error
}

type AddClient struct {
	SID   string
	Reply chan Client
}

type RemoveClient struct {
	SID   string
	Reply chan bool
}

type AddRoom struct {
	Name  string
	Mode  AddMode
	Reply chan RoomResult
}

type GetRoom struct {
	Name  string
	Reply chan RoomResult
}

type JoinRoom struct {
	SID   string
	Room  string
	Reply chan error
}

type MarkInitialised struct {
	SID   string
	Reply chan error
}

type GetClient struct {
	SID   string
	Reply chan ClientResult
}

type GetClientRoom struct {
	SID   string
	Reply chan RoomResult
}

type GetStats struct {
	Reply chan Stats
}

type Shutdown struct{}

func (AddClient) isRegistryMsg()       {}
func (RemoveClient) isRegistryMsg()    {}
func (AddRoom) isRegistryMsg()         {}
func (GetRoom) isRegistryMsg()         {}
func (JoinRoom) isRegistryMsg()        {}
func (MarkInitialised) isRegistryMsg() {}
func (GetClient) isRegistryMsg()       {}
func (GetClientRoom) isRegistryMsg()   {}
func (GetStats) isRegistryMsg()        {}
func (Shutdown) isRegistryMsg()        {}
