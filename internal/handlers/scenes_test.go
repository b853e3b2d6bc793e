package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jwebster45206/npc-engine/pkg/scenario"
	"github.com/jwebster45206/npc-engine/pkg/storage"
)

func TestSceneHandler_ServeHTTP(t *testing.T) {
	mockStorage := storage.NewMockStorage()
	mockStorage.AddRoom(&scenario.Room{
		SceneName:  "cafe",
		Background: "backgrounds/cafe.png",
		Portals:    []scenario.Portal{{ID: 0, ToScene: "kitchen", Spawn: [2]float64{30, 50}}},
	}, nil)
	mockStorage.AddRoom(&scenario.Room{SceneName: "kitchen"}, nil)

	handler := NewSceneHandler(testLogger(), mockStorage)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:           "list scenes",
			method:         http.MethodGet,
			path:           "/v1/scenes",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var scenes []string
				if err := json.Unmarshal(body, &scenes); err != nil {
					t.Fatalf("failed to unmarshal: %v", err)
				}
				if len(scenes) != 2 || scenes[0] != "cafe" || scenes[1] != "kitchen" {
					t.Errorf("unexpected scenes %v", scenes)
				}
			},
		},
		{
			name:           "get room",
			method:         http.MethodGet,
			path:           "/v1/scenes/cafe",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var room scenario.Room
				if err := json.Unmarshal(body, &room); err != nil {
					t.Fatalf("failed to unmarshal: %v", err)
				}
				if room.SceneName != "cafe" {
					t.Errorf("expected cafe, got %s", room.SceneName)
				}
				if len(room.Portals) != 1 || room.Portals[0].ToScene != "kitchen" {
					t.Errorf("unexpected portals %+v", room.Portals)
				}
			},
		},
		{
			name:           "unknown room",
			method:         http.MethodGet,
			path:           "/v1/scenes/cellar",
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "traversal",
			method:         http.MethodGet,
			path:           "/v1/scenes/..",
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "post not allowed",
			method:         http.MethodPost,
			path:           "/v1/scenes/cafe",
			expectedStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if tt.check != nil {
				tt.check(t, w.Body.Bytes())
			}
		})
	}
}
