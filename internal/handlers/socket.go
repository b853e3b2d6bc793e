package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/npc-engine/internal/services/events"
	"github.com/jwebster45206/npc-engine/pkg/storage"
)

const socketWriteWait = 10 * time.Second

// SocketMessage is what the API writes back on a world socket besides the
// relayed world events.
type SocketMessage struct {
	Type      string `json:"type"`
	WorldID   string `json:"world_id,omitempty"`
	CommandID string `json:"command_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SocketHandler serves a two-way WebSocket per world: every world event is
// relayed to the client, and every text frame from the client is a
// CommandRequest to queue.
type SocketHandler struct {
	redisClient *redis.Client
	storage     storage.Storage
	commands    CommandEnqueuer
	logger      *slog.Logger
	upgrader    websocket.Upgrader
}

func NewSocketHandler(redisClient *redis.Client, storage storage.Storage, commands CommandEnqueuer, logger *slog.Logger) *SocketHandler {
	return &SocketHandler{
		redisClient: redisClient,
		storage:     storage,
		commands:    commands,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades GET /v1/ws/worlds/{worldID}
func (h *SocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	pathParts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(pathParts) != 4 || pathParts[0] != "v1" || pathParts[1] != "ws" || pathParts[2] != "worlds" {
		h.writeError(w, http.StatusBadRequest, "Invalid path. Expected /v1/ws/worlds/{worldID}")
		return
	}
	worldID, err := uuid.Parse(pathParts[3])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid world ID format.")
		return
	}

	ws, err := h.storage.LoadWorldState(r.Context(), worldID)
	if err != nil {
		h.logger.Error("Failed to load world", "world_id", worldID.String(), "error", err)
		h.writeError(w, http.StatusInternalServerError, "Failed to load world")
		return
	}
	if ws == nil {
		h.writeError(w, http.StatusNotFound, "World not found")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "world_id", worldID.String(), "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	channel := events.Channel(worldID)
	pubsub := h.redisClient.Subscribe(ctx, channel)
	defer func() {
		if err := pubsub.Close(); err != nil {
			h.logger.Error("Failed to close pubsub", "error", err)
		}
	}()
	if _, err := pubsub.Receive(ctx); err != nil {
		h.logger.Error("Failed to subscribe", "channel", channel, "error", err)
		return
	}

	var writeMu sync.Mutex
	write := func(data []byte) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(socketWriteWait))
		return conn.WriteMessage(websocket.TextMessage, data)
	}
	writeMessage := func(msg SocketMessage) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return write(data)
	}

	h.logger.Info("WebSocket connection established", "world_id", worldID.String(), "remote_addr", r.RemoteAddr)
	if err := writeMessage(SocketMessage{Type: "connected", WorldID: worldID.String()}); err != nil {
		return
	}

	go func() {
		defer cancel()
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			reply := h.enqueue(ctx, worldID, payload)
			if err := writeMessage(reply); err != nil {
				return
			}
		}
	}()

	msgChan := pubsub.Channel()
	ping := time.NewTicker(keepaliveInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("WebSocket client disconnected", "world_id", worldID.String())
			return
		case msg, ok := <-msgChan:
			if !ok {
				return
			}
			if err := write([]byte(msg.Payload)); err != nil {
				h.logger.Warn("Failed to relay event", "world_id", worldID.String(), "error", err)
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(socketWriteWait)); err != nil {
				return
			}
		}
	}
}

// enqueue queues one client frame and returns the acknowledgement.
func (h *SocketHandler) enqueue(ctx context.Context, worldID uuid.UUID, payload []byte) SocketMessage {
	var request CommandRequest
	if err := json.Unmarshal(payload, &request); err != nil {
		return SocketMessage{Type: "command.rejected", Error: "Invalid message. Expected JSON with 'type' field."}
	}
	cmd, err := request.Command(worldID)
	if err != nil {
		return SocketMessage{Type: "command.rejected", Error: err.Error()}
	}
	if err := h.commands.Enqueue(ctx, cmd); err != nil {
		h.logger.Error("Failed to enqueue command", "world_id", worldID.String(), "error", err)
		return SocketMessage{Type: "command.rejected", CommandID: cmd.CommandID, Error: "Failed to queue command"}
	}
	h.logger.Info("Command queued", "world_id", worldID.String(), "command_id", cmd.CommandID, "type", cmd.Type, "via", "websocket")
	return SocketMessage{Type: "command.queued", CommandID: cmd.CommandID}
}

func (h *SocketHandler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{Error: msg}); err != nil {
		h.logger.Error("Failed to encode error response", "error", err)
	}
}
