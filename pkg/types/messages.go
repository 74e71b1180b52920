package types

// Client -> Server (websocket, /ws?room=<name> joins on connect)
// JoinRoom:
//   room: string // created with the default scene if missing
//
// GetLayerData: {}
//
// GetTokenList:
//   path: string // optional, relative to the asset root
//
// Server -> Client
// LayerData:
//   room: string
//   layers: Layer[] // see snapshot.go
//
// TokenList:
//   tokens: { files: string[], folders: { [name]: TokenList.tokens } }
//
// Error:
//   error: string
//
// HTTP
// POST /rooms {name} -> 201 {name, layers} | 409 exists (use ?replace=true to overwrite)
// GET /rooms/{name}  -> 200 {name, layers} | 404
// GET /assets?path=  -> 200 listing | 400 | 404
// GET /stats         -> {rooms, clients}
