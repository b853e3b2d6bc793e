package runner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-engine/internal/handlers"
	"github.com/jwebster45206/npc-engine/pkg/state"
)

func strPtr(s string) *string { return &s }

func savedWorld(id uuid.UUID) *state.WorldState {
	return &state.WorldState{
		ID:          id,
		ActiveScene: "cafe",
		NPCs: []state.NPCState{
			{ID: "tom", Scene: "cafe", TargetScene: "kitchen", Behavior: "TravelToSceneState"},
		},
		Props: []state.PropState{{ID: "stool", Scene: "cafe", PickedUp: true}},
	}
}

func TestCheckExpectations(t *testing.T) {
	ws := savedWorld(uuid.New())

	tests := []struct {
		name    string
		exp     Expectations
		wantErr string
	}{
		{name: "empty", exp: Expectations{}},
		{name: "all match", exp: Expectations{
			ActiveScene:   strPtr("cafe"),
			NPCScenes:     map[string]string{"tom": "cafe"},
			NPCTargets:    map[string]string{"tom": "kitchen"},
			NPCBehaviors:  map[string]string{"tom": "traveltoscenestate"},
			NPCsAbsent:    []string{"pip"},
			PropsPickedUp: map[string]bool{"stool": true},
		}},
		{name: "active scene", exp: Expectations{ActiveScene: strPtr("kitchen")}, wantErr: `expected active scene "kitchen"`},
		{name: "npc scene", exp: Expectations{NPCScenes: map[string]string{"tom": "street"}}, wantErr: "expected NPC tom in scene street"},
		{name: "missing npc", exp: Expectations{NPCTargets: map[string]string{"pip": "cafe"}}, wantErr: "expected NPC pip to exist"},
		{name: "not removed", exp: Expectations{NPCsAbsent: []string{"tom"}}, wantErr: "still exists"},
		{name: "prop flag", exp: Expectations{PropsPickedUp: map[string]bool{"stool": false}}, wantErr: "picked_up=false"},
		{name: "missing prop", exp: Expectations{PropsPickedUp: map[string]bool{"crate": true}}, wantErr: "prop crate to exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckExpectations(tt.exp, ws)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, v any) string {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}

	write("a.json", TestSuite{Name: "a", Steps: []TestStep{{Name: "one"}}})
	write("b.json", TestSuite{Name: "b", Steps: []TestStep{{Name: "two"}}})
	write("inner.json", TestSuite{Name: "inner", Cases: []string{"b.json"}})
	seq := write("seq.json", TestSuite{Name: "seq", Cases: []string{"a.json", "inner.json"}})

	jobs, err := LoadTestSuiteWithExpansion(seq, dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "b", jobs[1].Name)

	bad := write("bad.json", TestSuite{Name: "bad", Cases: []string{"missing.json"}})
	_, err = LoadTestSuiteWithExpansion(bad, dir)
	assert.ErrorContains(t, err, "referenced by sequence 'bad'")
}

// fakeAPI serves one world and marks the stool picked up once a command
// has been accepted.
func fakeAPI(t *testing.T, id uuid.UUID) *httptest.Server {
	t.Helper()
	var accepted atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/worlds/"+id.String(), func(w http.ResponseWriter, r *http.Request) {
		ws := savedWorld(id)
		ws.Props[0].PickedUp = accepted.Load()
		_ = json.NewEncoder(w).Encode(ws)
	})
	mux.HandleFunc("/v1/worlds/"+id.String()+"/commands", func(w http.ResponseWriter, r *http.Request) {
		var req handlers.CommandRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PropID == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(handlers.ErrorResponse{Error: "prop_id is required"})
			return
		}
		accepted.Store(true)
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(handlers.CommandResponse{CommandID: "cmd-1", Status: "queued"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunSuite(t *testing.T) {
	PollInterval = 10 * time.Millisecond
	id := uuid.New()
	srv := fakeAPI(t, id)

	r := NewRunner(srv.URL+"/", id)
	r.Timeout = time.Second

	suite := TestSuite{Name: "props", Steps: []TestStep{
		{
			Name:         "pick up",
			Command:      &handlers.CommandRequest{Type: "pick_up_prop", PropID: "stool"},
			Expectations: Expectations{PropsPickedUp: map[string]bool{"stool": true}},
		},
		{
			Name:         "rejected",
			Command:      &handlers.CommandRequest{Type: "pick_up_prop"},
			ExpectStatus: http.StatusBadRequest,
		},
	}}

	result, err := r.RunSuite(context.Background(), suite)
	require.NoError(t, err)
	require.Len(t, result.Results, 2)
	assert.Equal(t, "cmd-1", result.Results[0].CommandID)
	assert.True(t, result.Results[1].Success)
	assert.Equal(t, id, result.World)
}

func TestRunSuite_FailingStep(t *testing.T) {
	PollInterval = 10 * time.Millisecond
	id := uuid.New()
	srv := fakeAPI(t, id)

	r := NewRunner(srv.URL, id)
	r.Timeout = 100 * time.Millisecond
	r.ErrorHandlingMode = ErrorHandlingExit

	suite := TestSuite{Name: "fails", Steps: []TestStep{
		{Name: "wrong scene", Expectations: Expectations{ActiveScene: strPtr("kitchen")}},
		{Name: "never runs"},
	}}

	result, err := r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 0 (wrong scene) failed")
	assert.Contains(t, err.Error(), "timeout waiting for world")
	assert.Len(t, result.Results, 1)
}

func TestRunSuite_UnknownWorld(t *testing.T) {
	PollInterval = 10 * time.Millisecond
	srv := fakeAPI(t, uuid.New())

	r := NewRunner(srv.URL, uuid.New())
	r.Timeout = 50 * time.Millisecond

	_, err := r.RunSuite(context.Background(), TestSuite{Name: "x"})
	assert.ErrorContains(t, err, "is not available")
}
