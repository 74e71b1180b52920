package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/planarally-backend/internal/assets"
	"github.com/DoyleJ11/planarally-backend/internal/registry"
	"github.com/DoyleJ11/planarally-backend/internal/scene"
	"github.com/DoyleJ11/planarally-backend/internal/types"
)

const scanTimeout = 10 * time.Second

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

// statusFor maps core error kinds onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound), assets.IsNotExist(err):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrRoomExists):
		return http.StatusConflict
	case errors.Is(err, registry.ErrInvalidName), errors.Is(err, assets.ErrOutsideRoot):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func roomResponse(rm *scene.Room) types.RoomResponse {
	return types.RoomResponse{Name: rm.Name(), Layers: rm.Snapshot().Layers}
}

// CreateRoom is strict by default; ?replace=true overwrites an existing room.
func CreateRoom(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateRoomRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}

		replace, _ := strconv.ParseBool(r.URL.Query().Get("replace"))
		create := reg.CreateRoom
		if replace {
			create = reg.AddRoom
		}

		rm, err := create(r.Context(), req.Name)
		if err != nil {
			log.Debug("create room", zap.String("room", req.Name), zap.Error(err))
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, roomResponse(rm))
	}
}

func GetRoom(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, err := reg.GetRoom(r.Context(), chi.URLParam(r, "name"))
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}
		writeJSON(w, http.StatusOK, roomResponse(rm))
	}
}

// ListAssets serves the asset browser. ?path= is relative to the asset root.
func ListAssets(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path, err := assets.ResolveSubdir(reg.AssetRoot(), r.URL.Query().Get("path"))
		if err != nil {
			writeError(w, statusFor(err), err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), scanTimeout)
		defer cancel()
		listing, err := reg.GetTokenList(ctx, path)
		if err != nil {
			status := statusFor(err)
			if status == http.StatusInternalServerError {
				log.Error("asset scan", zap.String("path", path), zap.Error(err))
			}
			writeError(w, status, "asset scan failed")
			return
		}
		writeJSON(w, http.StatusOK, listing)
	}
}

func Stats(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := reg.Stats(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
