package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/npc-engine/pkg/queue"
)

// CommandRequest is the body of POST /v1/worlds/{id}/commands. Which
// fields are needed depends on the type.
type CommandRequest struct {
	Type        queue.CommandType `json:"type"`
	NPCID       string            `json:"npc_id,omitempty"`
	TargetScene string            `json:"target_scene,omitempty"`
	X           *float64          `json:"x,omitempty"`
	Y           *float64          `json:"y,omitempty"`
	Scene       string            `json:"scene,omitempty"`
	PropID      string            `json:"prop_id,omitempty"`
}

// CommandResponse acknowledges a queued command. The outcome arrives later
// on the world's event stream under the same command id.
type CommandResponse struct {
	CommandID string `json:"command_id"`
	Status    string `json:"status"`
}

// Command builds and validates the queued form of the request.
func (req CommandRequest) Command(worldID uuid.UUID) (*queue.Command, error) {
	cmd := queue.NewCommand(worldID, req.Type)
	cmd.NPCID = req.NPCID
	cmd.TargetScene = req.TargetScene
	cmd.X, cmd.Y = req.X, req.Y
	cmd.Scene = req.Scene
	cmd.PropID = req.PropID
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (h *WorldHandler) handleCommand(w http.ResponseWriter, r *http.Request, worldID uuid.UUID) {
	var request CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		h.logger.Warn("Invalid request body", "error", err)
		h.writeError(w, http.StatusBadRequest, "Invalid request body. Expected JSON with 'type' field.")
		return
	}

	cmd, err := request.Command(worldID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Only worlds a worker has published accept commands.
	if _, ok := h.load(w, r, worldID); !ok {
		return
	}

	if err := h.commands.Enqueue(r.Context(), cmd); err != nil {
		h.logger.Error("Failed to enqueue command", "world_id", worldID.String(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to queue command. Please try again.")
		return
	}

	h.logger.Info("Command queued",
		"world_id", worldID.String(),
		"command_id", cmd.CommandID,
		"type", cmd.Type,
		"enqueued_at", cmd.EnqueuedAt.Format(time.RFC3339))
	h.writeJSON(w, http.StatusAccepted, CommandResponse{CommandID: cmd.CommandID, Status: "queued"})
}
