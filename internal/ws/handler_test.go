package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/planarally-backend/internal/registry"
	"github.com/DoyleJ11/planarally-backend/internal/types"
)

func setup(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	return setupKeepalive(t, defaultKeepalive)
}

func setupKeepalive(t *testing.T, ka keepalive) (*httptest.Server, *registry.Registry) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hero.png"), nil, 0o644))

	reg := registry.New(context.Background(), registry.WithAssetRoot(root), registry.WithLogger(zaptest.NewLogger(t)))
	// handler goroutines can outlive the test after hijacking, so they get a no-op logger
	srv := httptest.NewServer(handler(reg, zap.NewNop(), ka))
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})
	return srv, reg
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// helper: read one server message with a timeout so tests never hang
func recv(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func send(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	payload, err := json.Marshal(msg)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, payload))
}

// helper: poll the registry until cond holds
func eventually(t *testing.T, reg *registry.Registry, cond func(registry.Stats) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		stats, err := reg.Stats(context.Background())
		return err == nil && cond(stats)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_JoinOnConnectSendsLayerData(t *testing.T) {
	srv, reg := setup(t)
	conn := dial(t, srv, "?room=tavern")

	msg := recv(t, conn)
	assert.Equal(t, types.MsgLayerData, msg["type"])
	assert.Equal(t, "tavern", msg["room"])
	layers := msg["layers"].([]any)
	require.Len(t, layers, 4)
	assert.Equal(t, true, layers[3].(map[string]any)["grid"])

	eventually(t, reg, func(s registry.Stats) bool { return s.Rooms == 1 && s.Clients == 1 })
}

func TestHandler_LayerDataWithoutRoomIsError(t *testing.T) {
	srv, _ := setup(t)
	conn := dial(t, srv, "")

	send(t, conn, types.ClientMessage{Type: types.MsgGetLayerData})
	msg := recv(t, conn)
	assert.Equal(t, types.MsgError, msg["type"])
	assert.Contains(t, msg["error"], "no room")
}

func TestHandler_JoinRoomMessage(t *testing.T) {
	srv, reg := setup(t)
	_, err := reg.AddRoom(context.Background(), "dungeon")
	require.NoError(t, err)
	conn := dial(t, srv, "")

	send(t, conn, types.ClientMessage{Type: types.MsgJoinRoom, Room: "dungeon"})
	msg := recv(t, conn)
	assert.Equal(t, types.MsgLayerData, msg["type"])
	assert.Equal(t, "dungeon", msg["room"])

	send(t, conn, types.ClientMessage{Type: types.MsgGetLayerData})
	msg = recv(t, conn)
	assert.Equal(t, types.MsgLayerData, msg["type"])

	send(t, conn, types.ClientMessage{Type: types.MsgJoinRoom})
	msg = recv(t, conn)
	assert.Equal(t, "missing room", msg["error"])
}

func TestHandler_TokenList(t *testing.T) {
	srv, _ := setup(t)
	conn := dial(t, srv, "")

	send(t, conn, types.ClientMessage{Type: types.MsgGetTokenList})
	msg := recv(t, conn)
	require.Equal(t, types.MsgTokenList, msg["type"])
	tokens := msg["tokens"].(map[string]any)
	assert.Equal(t, []any{"hero.png"}, tokens["files"])
	assert.Equal(t, map[string]any{}, tokens["folders"])

	send(t, conn, types.ClientMessage{Type: types.MsgGetTokenList, Path: "missing"})
	msg = recv(t, conn)
	assert.Equal(t, "asset folder not found", msg["error"])

	send(t, conn, types.ClientMessage{Type: types.MsgGetTokenList, Path: "../.."})
	msg = recv(t, conn)
	assert.Equal(t, types.MsgError, msg["type"])
}

func TestHandler_BadMessages(t *testing.T) {
	srv, _ := setup(t)
	conn := dial(t, srv, "")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{")))
	assert.Equal(t, "bad json", recv(t, conn)["error"])

	send(t, conn, types.ClientMessage{Type: "Teleport"})
	assert.Equal(t, "unknown type", recv(t, conn)["error"])
}

func TestHandler_DisconnectRemovesClient(t *testing.T) {
	srv, reg := setup(t)
	conn := dial(t, srv, "?room=r")
	_ = recv(t, conn)
	eventually(t, reg, func(s registry.Stats) bool { return s.Clients == 1 })

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
	eventually(t, reg, func(s registry.Stats) bool { return s.Clients == 0 && s.Rooms == 1 })
}

func TestHandler_IdleViewerStaysConnected(t *testing.T) {
	srv, reg := setupKeepalive(t, keepalive{interval: 20 * time.Millisecond, timeout: time.Second})
	conn := dial(t, srv, "?room=r")

	// control frames are only answered while the client is reading
	msgs := make(chan map[string]any, 4)
	go func() {
		defer close(msgs)
		for {
			_, data, err := conn.Read(context.Background())
			if err != nil {
				return
			}
			var m map[string]any
			if json.Unmarshal(data, &m) == nil {
				msgs <- m
			}
		}
	}()
	next := func() map[string]any {
		t.Helper()
		select {
		case m, ok := <-msgs:
			require.True(t, ok, "connection closed")
			return m
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for server message")
			return nil
		}
	}

	assert.Equal(t, types.MsgLayerData, next()["type"])

	// several ping rounds with no client traffic
	time.Sleep(200 * time.Millisecond)
	eventually(t, reg, func(s registry.Stats) bool { return s.Clients == 1 })

	send(t, conn, types.ClientMessage{Type: types.MsgGetLayerData})
	msg := next()
	assert.Equal(t, types.MsgLayerData, msg["type"])
	assert.Equal(t, "r", msg["room"])
}

func TestHandler_UnansweredPingDropsClient(t *testing.T) {
	srv, reg := setupKeepalive(t, keepalive{interval: 20 * time.Millisecond, timeout: 50 * time.Millisecond})
	conn := dial(t, srv, "?room=r")
	_ = recv(t, conn)
	eventually(t, reg, func(s registry.Stats) bool { return s.Clients == 1 })

	// no reads from here on, so pings go unanswered
	eventually(t, reg, func(s registry.Stats) bool { return s.Clients == 0 && s.Rooms == 1 })
}
