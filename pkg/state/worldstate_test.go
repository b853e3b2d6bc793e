package state

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/scenegraph"
)

func TestNewWorldState(t *testing.T) {
	ws := NewWorldState()
	assert.NotEqual(t, uuid.Nil, ws.ID)
	assert.NotNil(t, ws.NPCs)
	assert.Empty(t, ws.NPCs)
	assert.Equal(t, ws.CreatedAt, ws.UpdatedAt)

	other := NewWorldState()
	assert.NotEqual(t, ws.ID, other.ID)
}

func TestWorldState_NPC(t *testing.T) {
	ws := NewWorldState()
	ws.NPCs = append(ws.NPCs,
		NPCState{ID: "henry", Scene: "kitchen"},
		NPCState{ID: "mabel", Scene: "street"},
	)

	n, ok := ws.NPC("mabel")
	require.True(t, ok)
	assert.Equal(t, "street", n.Scene)

	_, ok = ws.NPC("tom")
	assert.False(t, ok)
}

func TestWorldState_JSONMidJourney(t *testing.T) {
	portal := 0
	target := geom.Pt(200, 90)
	ws := NewWorldState()
	ws.Minute = 485
	ws.ActiveScene = "cafe"
	ws.NPCs = append(ws.NPCs, NPCState{
		ID:          "henry",
		Scene:       "cafe",
		X:           30,
		Y:           75,
		Direction:   "right",
		TargetScene: "kitchen",
		ScenePath:   []scenegraph.Hop{{Scene: "kitchen", PortalID: &portal, Spawn: geom.Pt(290, 75)}},
		FinalTarget: &target,
		Behavior:    "TravelToSceneState",
	})
	ws.NPCs[0].ScheduleEntry = 1

	data, err := json.Marshal(ws)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"behavior_state":"TravelToSceneState"`)
	assert.NotContains(t, string(data), `"props"`)

	var got WorldState
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, ws.ID, got.ID)
	assert.Equal(t, 485, got.Minute)

	n, ok := got.NPC("henry")
	require.True(t, ok)
	require.Len(t, n.ScenePath, 1)
	require.NotNil(t, n.ScenePath[0].PortalID)
	assert.Equal(t, 0, *n.ScenePath[0].PortalID)
	assert.Equal(t, target, *n.FinalTarget)
	assert.Nil(t, n.Destination)
}
