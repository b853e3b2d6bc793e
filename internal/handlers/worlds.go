package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-engine/pkg/clock"
	"github.com/jwebster45206/npc-engine/pkg/queue"
	"github.com/jwebster45206/npc-engine/pkg/state"
	"github.com/jwebster45206/npc-engine/pkg/storage"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// CommandEnqueuer hands commands to the worker that owns a world.
type CommandEnqueuer interface {
	Enqueue(ctx context.Context, cmd *queue.Command) error
}

// WorldResponse is a saved world plus its time of day as HH:MM.
type WorldResponse struct {
	*state.WorldState
	Time string `json:"time"`
}

// WorldHandler serves saved worlds and accepts commands for running ones.
// The API never simulates; it reads what the worker last saved.
type WorldHandler struct {
	storage  storage.Storage
	commands CommandEnqueuer
	logger   *slog.Logger
}

func NewWorldHandler(logger *slog.Logger, storage storage.Storage, commands CommandEnqueuer) *WorldHandler {
	return &WorldHandler{
		storage:  storage,
		commands: commands,
		logger:   logger,
	}
}

// ServeHTTP handles HTTP requests for worlds
// Routes:
// GET /v1/worlds/{id}              - Read the last saved world
// DELETE /v1/worlds/{id}           - Delete the saved world
// GET /v1/worlds/{id}/npcs         - List saved NPC states
// GET /v1/worlds/{id}/npcs/{npc}   - Read one NPC
// POST /v1/worlds/{id}/commands    - Queue a command for the worker
func (h *WorldHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/worlds"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		h.writeError(w, http.StatusBadRequest, "World ID is required")
		return
	}
	worldID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid world ID", "id", parts[0], "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid world ID format")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, worldID)
		case http.MethodDelete:
			h.handleDelete(w, r, worldID)
		default:
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET, DELETE")
		}

	case parts[1] == "npcs" && len(parts) <= 3:
		if r.Method != http.MethodGet {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
			return
		}
		npcID := ""
		if len(parts) == 3 {
			npcID = parts[2]
		}
		h.handleNPCs(w, r, worldID, npcID)

	case parts[1] == "commands" && len(parts) == 2:
		if r.Method != http.MethodPost {
			h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
			return
		}
		h.handleCommand(w, r, worldID)

	default:
		h.writeError(w, http.StatusNotFound, "Not found")
	}
}

// load fetches a saved world, writing the error response when it can't.
func (h *WorldHandler) load(w http.ResponseWriter, r *http.Request, worldID uuid.UUID) (*state.WorldState, bool) {
	ws, err := h.storage.LoadWorldState(r.Context(), worldID)
	if err != nil {
		h.logger.Error("Failed to load world", "world_id", worldID.String(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to load world")
		return nil, false
	}
	if ws == nil {
		h.writeError(w, http.StatusNotFound, "World not found")
		return nil, false
	}
	return ws, true
}

func (h *WorldHandler) handleRead(w http.ResponseWriter, r *http.Request, worldID uuid.UUID) {
	ws, ok := h.load(w, r, worldID)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, WorldResponse{WorldState: ws, Time: clock.Format(ws.Minute)})
}

func (h *WorldHandler) handleDelete(w http.ResponseWriter, r *http.Request, worldID uuid.UUID) {
	if err := h.storage.DeleteWorldState(r.Context(), worldID); err != nil {
		h.logger.Error("Failed to delete world", "world_id", worldID.String(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to delete world")
		return
	}
	h.logger.Info("World deleted", "world_id", worldID.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *WorldHandler) handleNPCs(w http.ResponseWriter, r *http.Request, worldID uuid.UUID, npcID string) {
	ws, ok := h.load(w, r, worldID)
	if !ok {
		return
	}
	if npcID == "" {
		h.writeJSON(w, http.StatusOK, ws.NPCs)
		return
	}
	n, found := ws.NPC(npcID)
	if !found {
		h.writeError(w, http.StatusNotFound, "NPC not found")
		return
	}
	h.writeJSON(w, http.StatusOK, n)
}

func (h *WorldHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *WorldHandler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, ErrorResponse{Error: msg})
}
