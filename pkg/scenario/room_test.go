package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-engine/pkg/geom"
)

func TestParseRoom(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name: "valid",
			doc:  `{"scene_name":"cafe","background":"bg/cafe.png","portals":[{"id":0,"to_scene":"kitchen","spawn":[30,75]},{"id":1,"to_scene":"street","spawn":[55,30]}]}`,
		},
		{name: "no scene name", doc: `{"background":"bg/cafe.png"}`, wantErr: "missing scene_name"},
		{name: "negative portal", doc: `{"scene_name":"cafe","portals":[{"id":-1,"to_scene":"kitchen"}]}`, wantErr: "negative"},
		{name: "duplicate portal", doc: `{"scene_name":"cafe","portals":[{"id":0,"to_scene":"a"},{"id":0,"to_scene":"b"}]}`, wantErr: "duplicate portal id 0"},
		{name: "portal without destination", doc: `{"scene_name":"cafe","portals":[{"id":2}]}`, wantErr: "portal 2 is missing to_scene"},
		{name: "not json", doc: `{`, wantErr: "failed to unmarshal room"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := ParseRoom([]byte(tt.doc))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "cafe", room.SceneName)
			assert.Len(t, room.Portals, 2)
		})
	}
}

func TestRoom_MaskPath(t *testing.T) {
	tests := []struct {
		room Room
		want string
	}{
		{Room{Background: "backgrounds/cafe.png"}, "backgrounds/cafe_mask.png"},
		{Room{Background: "backgrounds/kitchen.jpg"}, "backgrounds/kitchen_mask.png"},
		{Room{Background: "backgrounds/cafe.png", Mask: "masks/custom.png"}, "masks/custom.png"},
		{Room{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.room.MaskPath())
	}
}

func TestRoom_PortalMap(t *testing.T) {
	r := Room{SceneName: "cafe", Portals: []Portal{
		{ID: 1, ToScene: "street", Spawn: [2]float64{55, 30}},
		{ID: 0, ToScene: "kitchen", Spawn: [2]float64{30, 75}},
	}}
	m := r.PortalMap()
	require.Len(t, m, 2)
	assert.Equal(t, "kitchen", m[0].ToScene)
	assert.Equal(t, geom.Pt(55, 30), m[1].Spawn)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Cat Cafe Kitchen", DisplayName("cat_cafe_kitchen"))
	assert.Equal(t, "Back Alley", DisplayName("back-alley"))
	assert.Equal(t, "Street", DisplayName("street"))
}
