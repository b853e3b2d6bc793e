package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-engine/internal/services/events"
	"github.com/jwebster45206/npc-engine/internal/services/queue"
	"github.com/jwebster45206/npc-engine/pkg/storage"
)

type socketHarness struct {
	handler *SocketHandler
	rdb     *redis.Client
	store   *storage.MockStorage
	queue   *queue.CommandQueue
}

func setupSocket(t *testing.T) socketHarness {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := storage.NewMockStorage()
	q := queue.NewCommandQueue(queue.NewClientFromRedis(rdb, testLogger()), testLogger())
	return socketHarness{
		handler: NewSocketHandler(rdb, store, q, testLogger()),
		rdb:     rdb,
		store:   store,
		queue:   q,
	}
}

func dial(t *testing.T, srv *httptest.Server, worldID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/ws/worlds/" + worldID.String()
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	})
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestSocketHandler_BadRequests(t *testing.T) {
	h := setupSocket(t)

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"post", http.MethodPost, "/v1/ws/worlds/" + uuid.New().String(), http.StatusMethodNotAllowed},
		{"wrong path", http.MethodGet, "/v1/ws/games/" + uuid.New().String(), http.StatusBadRequest},
		{"bad id", http.MethodGet, "/v1/ws/worlds/xyz", http.StatusBadRequest},
		{"unknown world", http.MethodGet, "/v1/ws/worlds/" + uuid.New().String(), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestSocketHandler_RelaysEvents(t *testing.T) {
	h := setupSocket(t)
	ws := savedWorld(t, h.store)
	srv := httptest.NewServer(h.handler)
	t.Cleanup(srv.Close)

	conn := dial(t, srv, ws.ID)
	hello := readJSON(t, conn)
	assert.Equal(t, "connected", hello["type"])
	assert.Equal(t, ws.ID.String(), hello["world_id"])

	b := events.NewBroadcaster(h.rdb, testLogger())
	require.NoError(t, b.PublishCommandApplied(context.Background(), ws.ID, "cmd-1", "force_travel", 485))

	got := readJSON(t, conn)
	assert.Equal(t, "command.applied", got["type"])
	assert.Equal(t, "cmd-1", got["command_id"])
}

func TestSocketHandler_QueuesCommands(t *testing.T) {
	h := setupSocket(t)
	ws := savedWorld(t, h.store)
	srv := httptest.NewServer(h.handler)
	t.Cleanup(srv.Close)

	conn := dial(t, srv, ws.ID)
	readJSON(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"send_npc","npc_id":"henry","target_scene":"kitchen"}`)))
	ack := readJSON(t, conn)
	assert.Equal(t, "command.queued", ack["type"])
	require.NotEmpty(t, ack["command_id"])

	queued, err := h.queue.Peek(context.Background(), ws.ID, 10)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, ack["command_id"], queued[0].CommandID)
	assert.Equal(t, "kitchen", queued[0].TargetScene)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"send_npc","npc_id":"henry"}`)))
	rejected := readJSON(t, conn)
	assert.Equal(t, "command.rejected", rejected["type"])
	assert.NotEmpty(t, rejected["error"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	rejected = readJSON(t, conn)
	assert.Equal(t, "command.rejected", rejected["type"])
	assert.Contains(t, rejected["error"], "Invalid message")

	depth, err := h.queue.Depth(context.Background(), ws.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)
}
