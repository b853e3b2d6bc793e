package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/npc-engine/pkg/storage"
)

type SceneHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewSceneHandler(log *slog.Logger, storage storage.Storage) *SceneHandler {
	return &SceneHandler{
		log:     log,
		storage: storage,
	}
}

// ServeHTTP serves room documents
// GET /v1/scenes          - List scene names
// GET /v1/scenes/{scene}  - Read one room
func (h *SceneHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SceneHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scenes"), "/")

	ctx := r.Context()
	var body any
	if name == "" {
		scenes, err := h.storage.ListRooms(ctx)
		if err != nil {
			h.log.Error("Failed to list scenes", "error", err)
			http.Error(w, "Failed to list scenes", http.StatusInternalServerError)
			return
		}
		body = scenes
	} else {
		if strings.Contains(name, "..") || strings.Contains(name, "/") {
			http.Error(w, "Invalid scene name", http.StatusBadRequest)
			return
		}
		room, err := h.storage.GetRoom(ctx, name)
		if err != nil {
			if strings.Contains(err.Error(), "not found") {
				http.Error(w, "Scene not found", http.StatusNotFound)
				return
			}
			h.log.Error("Failed to get room", "error", err, "scene", name)
			http.Error(w, "Failed to retrieve scene", http.StatusInternalServerError)
			return
		}
		body = room
	}

	data, err := json.Marshal(body)
	if err != nil {
		h.log.Error("Failed to marshal scene", "error", err, "scene", name)
		http.Error(w, "Failed to process scene", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
