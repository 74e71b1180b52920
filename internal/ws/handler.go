package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/planarally-backend/internal/assets"
	"github.com/DoyleJ11/planarally-backend/internal/registry"
	"github.com/DoyleJ11/planarally-backend/internal/types"
)

const (
	writeTimeout = 3 * time.Second
	scanTimeout  = 10 * time.Second
)

// keepalive controls the server pings. Reads carry no deadline of their own,
// so an idle viewer stays connected for as long as it answers pings.
type keepalive struct {
	interval time.Duration
	timeout  time.Duration
}

var defaultKeepalive = keepalive{interval: 30 * time.Second, timeout: 10 * time.Second}

func Handler(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return handler(reg, log, defaultKeepalive)
}

func handler(reg *registry.Registry, log *zap.Logger, ka keepalive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			log.Warn("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		sid := uuid.NewString()
		log := log.With(zap.String("sid", sid))
		if _, err := reg.AddClient(r.Context(), sid); err != nil {
			log.Error("add client", zap.Error(err))
			conn.Close(websocket.StatusInternalError, "registry unavailable")
			return
		}
		defer func() {
			// the request context is already gone at this point
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if _, err := reg.RemoveClient(ctx, sid); err != nil {
				log.Warn("remove client", zap.Error(err))
			}
		}()
		log.Info("client connected")

		out := make(chan types.ServerMessage, 8)
		defer close(out)

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Error("marshal server message", zap.String("type", msg.Type), zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
			}
		}()

		go ping(writeCtx, conn, ka, log)

		s := &session{sid: sid, reg: reg, log: log, out: out}

		if room := r.URL.Query().Get("room"); room != "" {
			s.join(r.Context(), room)
		}

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					log.Info("client disconnected")
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				s.fail("bad json")
				continue
			}
			s.handle(r.Context(), cm)
		}
	}
}

// ping drops the connection once a pong fails to arrive in time, which
// unblocks the reader loop.
func ping(ctx context.Context, conn *websocket.Conn, ka keepalive, log *zap.Logger) {
	t := time.NewTicker(ka.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		pctx, cancel := context.WithTimeout(ctx, ka.timeout)
		err := conn.Ping(pctx)
		cancel()
		if err != nil {
			if ctx.Err() == nil {
				log.Info("keepalive failed", zap.Error(err))
				_ = conn.CloseNow()
			}
			return
		}
	}
}

// session is one connection's view of the registry. Only the reader loop
// touches it, so sends on out never race with close.
type session struct {
	sid string
	reg *registry.Registry
	log *zap.Logger
	out chan<- types.ServerMessage
}

func (s *session) handle(ctx context.Context, cm types.ClientMessage) {
	switch cm.Type {
	case types.MsgJoinRoom:
		if cm.Room == "" {
			s.fail("missing room")
			return
		}
		s.join(ctx, cm.Room)
	case types.MsgGetLayerData:
		s.sendLayerData(ctx)
	case types.MsgGetTokenList:
		s.sendTokenList(ctx, cm.Path)
	default:
		s.fail("unknown type")
	}
}

func (s *session) join(ctx context.Context, room string) {
	if _, err := s.reg.EnsureRoom(ctx, room); err != nil {
		s.failErr("join room", err)
		return
	}
	if err := s.reg.JoinRoom(ctx, s.sid, room); err != nil {
		s.failErr("join room", err)
		return
	}
	if !s.sendLayerData(ctx) {
		return
	}
	if err := s.reg.MarkInitialised(ctx, s.sid); err != nil {
		s.failErr("mark initialised", err)
	}
}

func (s *session) sendLayerData(ctx context.Context) bool {
	room, err := s.reg.GetClientRoom(ctx, s.sid)
	if err != nil {
		s.failErr("layer data", err)
		return false
	}
	snap := room.Snapshot()
	s.out <- types.ServerMessage{Type: types.MsgLayerData, Room: room.Name(), Layers: snap.Layers}
	return true
}

func (s *session) sendTokenList(ctx context.Context, rel string) {
	path, err := assets.ResolveSubdir(s.reg.AssetRoot(), rel)
	if err != nil {
		s.failErr("token list", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()
	listing, err := s.reg.GetTokenList(ctx, path)
	if err != nil {
		s.failErr("token list", err)
		return
	}
	s.out <- types.ServerMessage{Type: types.MsgTokenList, Tokens: &listing}
}

func (s *session) fail(reason string) {
	s.out <- types.ServerMessage{Type: types.MsgError, Error: reason}
}

func (s *session) failErr(op string, err error) {
	switch {
	case errors.Is(err, registry.ErrInvariantViolation):
		s.log.Error(op, zap.Error(err))
		s.fail("internal error")
		return
	case errors.Is(err, assets.ErrIO):
		s.log.Warn(op, zap.Error(err))
		if assets.IsNotExist(err) {
			s.fail("asset folder not found")
			return
		}
		s.fail("asset scan failed")
		return
	case errors.Is(err, context.DeadlineExceeded):
		s.log.Warn(op, zap.Error(err))
		s.fail("timed out")
		return
	}
	s.log.Debug(op, zap.Error(err))
	s.fail(err.Error())
}
