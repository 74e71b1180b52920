package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/DoyleJ11/planarally-backend/internal/assets"
	"github.com/DoyleJ11/planarally-backend/internal/scene"
)

// Synchronous wrappers around the inbox. Every reply channel is buffered so
// the loop never blocks on a caller that already gave up.

func (r *Registry) send(ctx context.Context, m Msg) error {
	select {
	case r.inbox <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return ErrClosed
	}
}

func ask[T any](ctx context.Context, r *Registry, m Msg, reply chan T) (T, error) {
	var zero T
	if err := r.send(ctx, m); err != nil {
		return zero, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-r.done:
		// the loop may have answered just before exiting
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrClosed
		}
	}
}

// AddClient registers sid, replacing any previous client with the same sid.
func (r *Registry) AddClient(ctx context.Context, sid string) (Client, error) {
	reply := make(chan Client, 1)
	return ask(ctx, r, AddClient{SID: sid, Reply: reply}, reply)
}

// RemoveClient drops sid and reports whether it was present.
func (r *Registry) RemoveClient(ctx context.Context, sid string) (bool, error) {
	reply := make(chan bool, 1)
	return ask(ctx, r, RemoveClient{SID: sid, Reply: reply}, reply)
}

func (r *Registry) addRoom(ctx context.Context, name string, mode AddMode) (*scene.Room, error) {
	reply := make(chan RoomResult, 1)
	res, err := ask(ctx, r, AddRoom{Name: name, Mode: mode, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return res.Room, res.Err
}

// AddRoom installs a freshly seeded room under name. An existing room with
// the same name is discarded along with its whole scene.
func (r *Registry) AddRoom(ctx context.Context, name string) (*scene.Room, error) {
	return r.addRoom(ctx, name, ModeReplace)
}

// CreateRoom is AddRoom that fails with ErrRoomExists instead of replacing.
func (r *Registry) CreateRoom(ctx context.Context, name string) (*scene.Room, error) {
	return r.addRoom(ctx, name, ModeStrict)
}

// EnsureRoom returns the room registered under name, creating it if needed.
func (r *Registry) EnsureRoom(ctx context.Context, name string) (*scene.Room, error) {
	return r.addRoom(ctx, name, ModeEnsure)
}

func (r *Registry) GetRoom(ctx context.Context, name string) (*scene.Room, error) {
	reply := make(chan RoomResult, 1)
	res, err := ask(ctx, r, GetRoom{Name: name, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return res.Room, res.Err
}

// JoinRoom points the client at an existing room.
func (r *Registry) JoinRoom(ctx context.Context, sid, room string) error {
	reply := make(chan error, 1)
	res, err := ask(ctx, r, JoinRoom{SID: sid, Room: room, Reply: reply}, reply)
	if err != nil {
		return err
	}
	return res
}

func (r *Registry) MarkInitialised(ctx context.Context, sid string) error {
	reply := make(chan error, 1)
	res, err := ask(ctx, r, MarkInitialised{SID: sid, Reply: reply}, reply)
	if err != nil {
		return err
	}
	return res
}

// GetClient returns a copy of the client record.
func (r *Registry) GetClient(ctx context.Context, sid string) (Client, error) {
	reply := make(chan ClientResult, 1)
	res, err := ask(ctx, r, GetClient{SID: sid, Reply: reply}, reply)
	if err != nil {
		return Client{}, err
	}
	return res.Client, res.Err
}

// GetClientRoom resolves sid to the room it is viewing. Unknown sids and
// clients without a room match ErrNotFound; a room name that no longer
// resolves matches ErrInvariantViolation.
func (r *Registry) GetClientRoom(ctx context.Context, sid string) (*scene.Room, error) {
	reply := make(chan RoomResult, 1)
	res, err := ask(ctx, r, GetClientRoom{SID: sid, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	return res.Room, res.Err
}

func (r *Registry) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	return ask(ctx, r, GetStats{Reply: reply}, reply)
}

// GetTokenList scans path, or the configured asset root when path is empty.
// The walk runs on the caller's goroutine, never on the registry loop.
func (r *Registry) GetTokenList(ctx context.Context, path string) (assets.Listing, error) {
	if path == "" {
		path = r.assetRoot
	}
	l, err := assets.Scan(ctx, path)
	if err != nil {
		return assets.Listing{}, fmt.Errorf("registry: token list: %w", err)
	}
	return l, nil
}

func (r *Registry) AssetRoot() string { return r.assetRoot }

// Shutdown stops the loop and waits for it to exit.
func (r *Registry) Shutdown(ctx context.Context) error {
	if err := r.send(ctx, Shutdown{}); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
