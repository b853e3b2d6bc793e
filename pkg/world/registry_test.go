package world

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/npc-engine/pkg/behavior"
	"github.com/jwebster45206/npc-engine/pkg/event"
	"github.com/jwebster45206/npc-engine/pkg/geom"
	"github.com/jwebster45206/npc-engine/pkg/mask"
	"github.com/jwebster45206/npc-engine/pkg/mask/masktest"
	"github.com/jwebster45206/npc-engine/pkg/npc"
	"github.com/jwebster45206/npc-engine/pkg/scenario"
	"github.com/jwebster45206/npc-engine/pkg/scenegraph"
	"github.com/jwebster45206/npc-engine/pkg/schedule"
	"github.com/jwebster45206/npc-engine/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// 200x120 room with a door on the right edge at pixels x 180-199, y 40-59.
func roomS1() *mask.Mask {
	return masktest.FromASCII(20,
		"##########",
		"#........#",
		"#........P",
		"#........#",
		"#........#",
		"##########",
	)
}

// Corridor with a door on each end: portal 0 on the left, 1 on the right.
func roomS2() *mask.Mask {
	return masktest.FromASCII(20,
		"##########",
		"#........#",
		"P........P",
		"#........#",
		"#........#",
		"##########",
	)
}

func room(name string, portals ...scenario.Portal) *scenario.Room {
	return &scenario.Room{SceneName: name, Portals: portals}
}

// staying never wanders or travels on its own.
func staying() behavior.Config {
	cfg := behavior.DefaultConfig()
	cfg.IdleMin, cfg.IdleMax = 1, 1
	cfg.WanderProbability, cfg.TravelProbability = 0, 0
	return cfg
}

func newWorld(t *testing.T, opts Options) *Registry {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	return New(opts)
}

func typesOf(events []event.Event) []event.Type {
	var out []event.Type
	for _, e := range events {
		out = append(out, e.Type)
	}
	return out
}

func countType(events []event.Event, t event.Type) int {
	n := 0
	for _, e := range events {
		if e.Type == t {
			n++
		}
	}
	return n
}

func TestRegistry_TravelThroughPortal(t *testing.T) {
	w := newWorld(t, Options{Seed: 7})
	w.AddScene(room("S1", scenario.Portal{ID: 0, ToScene: "S2", Spawn: [2]float64{50, 50}}), roomS1())
	w.AddScene(room("S2"), masktest.Open(200, 200))

	zero := 0
	assert.Equal(t, []scenegraph.Hop{
		{Scene: "S1", PortalID: &zero, Spawn: geom.Pt(50, 50)},
		{Scene: "S2", PortalID: nil, Spawn: geom.Pt(50, 50)},
	}, w.Graph().FindScenePath("S1", "S2"))

	cfg := behavior.DefaultConfig()
	cfg.IdleMin, cfg.IdleMax = 0, 0
	cfg.WanderProbability, cfg.TravelProbability = 0, 1

	a, err := w.Spawn(npc.Definition{ID: "henry", Type: "henry", Scene: "S1", Feet: geom.Pt(40, 50), Speed: 100, Behavior: cfg})
	require.NoError(t, err)
	require.NoError(t, w.LoadScene("S1"))
	assert.Equal(t, []*npc.Agent{a}, w.LiveAgents("S1"))

	portal, ok := roomS1().PortalBounds(0)
	require.True(t, ok)

	var lastInS1 geom.Point
	for i := 0; i < 200; i++ {
		if scene, _ := w.Location("henry"); scene != "S1" {
			break
		}
		lastInS1 = a.Feet()
		w.UpdateAll(0.1)
	}

	scene, _ := w.Location("henry")
	require.Equal(t, "S2", scene)
	assert.True(t, portal.Contains(lastInS1.Pixel()), "left S1 from inside portal 0, last at %v", lastInS1)
	assert.Equal(t, geom.Pt(50, 50), a.Feet())
	assert.Empty(t, w.LiveAgents("S1"))
	assert.Empty(t, w.LiveAgents("S2"), "S2 is not loaded")

	st := a.State()
	assert.Equal(t, 1, st.SceneStep)
	assert.Nil(t, st.ScenePath, "final hop clears the scene path")
	assert.Empty(t, st.TargetScene)

	events := w.DrainEvents()
	assert.Equal(t, 1, countType(events, event.AgentTransitioned))
	assert.Equal(t, 1, countType(events, event.AgentArrived))
}

func TestRegistry_SettlesIntoLoadedScene(t *testing.T) {
	w := newWorld(t, Options{Seed: 1})
	w.AddScene(room("S1", scenario.Portal{ID: 0, ToScene: "S2", Spawn: [2]float64{50, 50}}), roomS1())
	w.AddScene(room("S2"), masktest.Open(200, 200))
	require.NoError(t, w.LoadScene("S2"))

	cfg := behavior.DefaultConfig()
	cfg.IdleMin, cfg.IdleMax = 0, 0
	cfg.WanderProbability, cfg.TravelProbability = 0, 1
	a, err := w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(40, 50), Behavior: cfg})
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		w.UpdateAll(0.1)
	}
	scene, _ := w.Location("henry")
	require.Equal(t, "S2", scene, "off-screen agent warps through the portal")
	assert.Equal(t, []*npc.Agent{a}, w.LiveAgents("S2"))
}

func chainWorld(t *testing.T) *Registry {
	t.Helper()
	w := newWorld(t, Options{Seed: 3, StartTime: "08:00"})
	w.AddScene(room("S1", scenario.Portal{ID: 0, ToScene: "S2", Spawn: [2]float64{30, 50}}), roomS1())
	w.AddScene(room("S2",
		scenario.Portal{ID: 0, ToScene: "S1", Spawn: [2]float64{160, 50}},
		scenario.Portal{ID: 1, ToScene: "S3", Spawn: [2]float64{30, 50}},
	), roomS2())
	w.AddScene(room("S3"), masktest.Open(200, 120))

	target := geom.Pt(100, 60)
	sched := &schedule.Schedule{Entries: []schedule.Entry{
		{Time: "08:00", Minute: 480, Action: schedule.NavigateToScene{Scene: "S3", Target: &target}},
	}}
	_, err := w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(40, 50), Speed: 100, Behavior: staying(), Schedule: sched})
	require.NoError(t, err)
	require.NoError(t, w.LoadScene("S1"))
	return w
}

func runUntilSettled(t *testing.T, w *Registry) *npc.Agent {
	t.Helper()
	a, ok := w.Agent("henry")
	require.True(t, ok)
	for i := 0; i < 500; i++ {
		w.UpdateAll(0.1)
		if scene, _ := w.Location("henry"); scene == "S3" && !a.HasPath() && !a.HasScenePath() {
			return a
		}
	}
	t.Fatalf("henry never settled, at %v in %s", a.Feet(), a.Scene())
	return nil
}

func TestRegistry_SnapshotRoundTripMidJourney(t *testing.T) {
	original := chainWorld(t)
	a, _ := original.Agent("henry")

	for i := 0; i < 500; i++ {
		original.UpdateAll(0.1)
		if a.Scene() == "S2" {
			break
		}
	}
	require.Equal(t, "S2", a.Scene())
	require.True(t, a.HasScenePath())
	original.UpdateAll(0.1)

	saved := original.Snapshot()
	data, err := json.Marshal(saved)
	require.NoError(t, err)
	var loaded state.WorldState
	require.NoError(t, json.Unmarshal(data, &loaded))

	st, ok := loaded.NPC("henry")
	require.True(t, ok)
	assert.Equal(t, "S2", st.Scene)
	assert.Equal(t, 1, st.SceneStep)
	assert.Len(t, st.ScenePath, 3)
	assert.Equal(t, "S3", st.TargetScene)
	assert.Equal(t, 0, st.ScheduleEntry)
	assert.True(t, st.ScheduleExecuting)

	restored := chainWorld(t)
	restored.Restore(&loaded)
	restored.DrainEvents()
	original.DrainEvents()

	b, _ := restored.Agent("henry")
	assert.Equal(t, "S2", b.Scene())
	assert.Equal(t, a.Feet(), b.Feet())
	assert.Equal(t, saved.ID, restored.ID())

	want := runUntilSettled(t, original)
	got := runUntilSettled(t, restored)

	assert.InDelta(t, 100, want.Feet().X, 1e-6)
	assert.InDelta(t, 60, want.Feet().Y, 1e-6)
	assert.Equal(t, want.Feet(), got.Feet())
	assert.Equal(t, want.State().SceneStep, got.State().SceneStep)

	origEvents := original.DrainEvents()
	restEvents := restored.DrainEvents()
	assert.Equal(t, 1, countType(restEvents, event.AgentTransitioned), "no duplicate hop after restore")
	assert.Equal(t, countType(origEvents, event.AgentTransitioned), countType(restEvents, event.AgentTransitioned))
	assert.Zero(t, countType(restEvents, event.ScheduleAction), "restored entry is not dispatched again")
}

// offscreenWorld sends henry from S1 to S2 with no scene loaded. The walk
// from (40,50) to the door is about 150px at 100px/s.
func offscreenWorld(t *testing.T) *Registry {
	t.Helper()
	w := newWorld(t, Options{Seed: 3, StartTime: "08:00"})
	w.AddScene(room("S1", scenario.Portal{ID: 0, ToScene: "S2", Spawn: [2]float64{30, 50}}), roomS1())
	w.AddScene(room("S2", scenario.Portal{ID: 0, ToScene: "S1", Spawn: [2]float64{160, 50}}), roomS2())
	sched := &schedule.Schedule{Entries: []schedule.Entry{
		{Time: "08:00", Minute: 480, Action: schedule.NavigateToScene{Scene: "S2"}},
	}}
	_, err := w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(40, 50), Speed: 100, Behavior: staying(), Schedule: sched})
	require.NoError(t, err)
	return w
}

func ticksUntilScene(t *testing.T, w *Registry, scene string) int {
	t.Helper()
	a, ok := w.Agent("henry")
	require.True(t, ok)
	for i := 1; i <= 100; i++ {
		w.UpdateAll(0.1)
		if a.Scene() == scene {
			return i
		}
	}
	t.Fatalf("henry never reached %s", scene)
	return 0
}

func TestRegistry_SnapshotRoundTripMidWarp(t *testing.T) {
	original := offscreenWorld(t)
	a, _ := original.Agent("henry")
	for i := 0; i < 10; i++ {
		original.UpdateAll(0.1)
	}
	require.Equal(t, "S1", a.Scene())
	require.Equal(t, geom.Pt(40, 50), a.Feet(), "warps only move the agent when they finish")

	data, err := json.Marshal(original.Snapshot())
	require.NoError(t, err)
	var loaded state.WorldState
	require.NoError(t, json.Unmarshal(data, &loaded))

	st, ok := loaded.NPC("henry")
	require.True(t, ok)
	require.NotNil(t, st.WarpTarget)
	require.NotNil(t, st.WarpPortal)
	assert.Equal(t, 0, *st.WarpPortal)
	assert.Greater(t, st.WarpRemaining, 0.0)
	assert.Less(t, st.WarpRemaining, 1.0)

	restored := offscreenWorld(t)
	restored.Restore(&loaded)

	want := ticksUntilScene(t, original, "S2")
	got := ticksUntilScene(t, restored, "S2")
	assert.Equal(t, want, got, "restored warp keeps its progress")
	assert.LessOrEqual(t, got, 6)

	b, _ := restored.Agent("henry")
	assert.Equal(t, a.Feet(), b.Feet())
}

func TestRegistry_SchedulePreemptionIsReported(t *testing.T) {
	w := newWorld(t, Options{Seed: 1, StartTime: "08:00", TimeScale: 1})
	w.AddScene(room("S1"), roomS1())

	sched := &schedule.Schedule{Entries: []schedule.Entry{
		{Time: "08:00", Minute: 480, Action: schedule.MoveTo{Target: geom.Pt(170, 90)}},
		{Time: "08:01", Minute: 481, Action: schedule.Idle{}},
	}}
	a, err := w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(30, 30), Speed: 1, Behavior: staying(), Schedule: sched})
	require.NoError(t, err)

	// One game minute passes every ten ticks.
	for i := 0; i < 70; i++ {
		w.UpdateAll(0.1)
	}

	events := w.DrainEvents()
	assert.Equal(t, 2, countType(events, event.ScheduleAction))
	require.Equal(t, 1, countType(events, event.SchedulePreempted))
	assert.Equal(t, 1, a.Schedule().Preemptions)
	assert.Equal(t, "schedule:idle", a.StateName())
	assert.False(t, a.HasPath())
}

func TestRegistry_OffscreenAgentsKeepFollowingSchedule(t *testing.T) {
	w := newWorld(t, Options{Seed: 1, StartTime: "09:00"})
	w.AddScene(room("S1"), roomS1())

	sched := &schedule.Schedule{Entries: []schedule.Entry{
		{Time: "09:00", Minute: 540, Action: schedule.MoveTo{Target: geom.Pt(150, 70)}},
	}}
	a, err := w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(50, 70), Speed: 100, Behavior: staying(), Schedule: sched})
	require.NoError(t, err)
	assert.False(t, w.Resident("S1"))

	w.UpdateAll(0.5)
	assert.Equal(t, geom.Pt(50, 70), a.Feet(), "warp takes distance/speed seconds")
	assert.Equal(t, "moving", a.Animation())

	w.UpdateAll(0.6)
	assert.Equal(t, geom.Pt(150, 70), a.Feet())
	assert.Equal(t, "idle", a.Animation())
}

func TestRegistry_SpawnOnBlockedPixelIsMoved(t *testing.T) {
	w := newWorld(t, Options{})
	w.AddScene(room("S1"), roomS1())

	a, err := w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(5, 50)})
	require.NoError(t, err)
	x, y := a.Feet().Pixel()
	assert.True(t, w.Mask("S1").IsWalkable(x, y))
	assert.NotEqual(t, geom.Pt(5, 50), a.Feet())
}

func TestRegistry_SpawnErrors(t *testing.T) {
	w := newWorld(t, Options{})
	w.AddScene(room("S1"), roomS1())

	_, err := w.Spawn(npc.Definition{Scene: "S1"})
	assert.Error(t, err)
	_, err = w.Spawn(npc.Definition{ID: "henry", Scene: "nowhere"})
	assert.Error(t, err)
	_, err = w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(50, 50)})
	require.NoError(t, err)
	_, err = w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(50, 50)})
	assert.Error(t, err)
}

func TestRegistry_RemoveMidPath(t *testing.T) {
	w := newWorld(t, Options{StartTime: "09:00"})
	w.AddScene(room("S1"), roomS1())
	require.NoError(t, w.LoadScene("S1"))

	sched := &schedule.Schedule{Entries: []schedule.Entry{
		{Time: "09:00", Minute: 540, Action: schedule.MoveTo{Target: geom.Pt(170, 90)}},
	}}
	a, err := w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(30, 30), Behavior: staying(), Schedule: sched})
	require.NoError(t, err)
	_, err = w.Spawn(npc.Definition{ID: "mabel", Scene: "S1", Feet: geom.Pt(50, 50), Behavior: staying()})
	require.NoError(t, err)

	w.UpdateAll(0.1)
	require.True(t, a.HasPath())

	w.Remove("henry")
	w.Remove("henry")
	w.Remove("nobody")

	_, ok := w.Agent("henry")
	assert.False(t, ok)
	_, ok = w.Location("henry")
	assert.False(t, ok)
	assert.True(t, a.Removed())
	assert.False(t, a.HasPath())
	assert.Len(t, w.LiveAgents("S1"), 1)
	assert.Len(t, w.Agents(), 1)

	assert.NotPanics(t, func() { w.UpdateAll(0.1) })
	assert.Equal(t, 1, countType(w.DrainEvents(), event.AgentRemoved))
}

func TestRegistry_MoveToSceneKeepsCoordinates(t *testing.T) {
	w := newWorld(t, Options{})
	w.AddScene(room("S1"), roomS1())
	w.AddScene(room("S2"), masktest.Open(200, 200))
	require.NoError(t, w.LoadScene("S2"))

	a, err := w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(50, 50)})
	require.NoError(t, err)

	require.NoError(t, w.MoveToScene("henry", "S2"))
	scene, _ := w.Location("henry")
	assert.Equal(t, "S2", scene)
	assert.Equal(t, geom.Pt(50, 50), a.Feet())
	assert.Equal(t, []*npc.Agent{a}, w.AgentsInScene("S2"))
	assert.Empty(t, w.AgentsInScene("S1"))
	assert.Equal(t, []*npc.Agent{a}, w.LiveAgents("S2"))

	assert.Error(t, w.MoveToScene("nobody", "S2"))
	assert.Error(t, w.MoveToScene("henry", "nowhere"))
}

func TestRegistry_LoadAndUnloadScenes(t *testing.T) {
	w := newWorld(t, Options{})
	w.AddScene(room("S1"), roomS1())
	w.AddScene(room("S2"), masktest.Open(200, 200))
	_, err := w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(50, 50)})
	require.NoError(t, err)

	assert.Error(t, w.LoadScene("nowhere"))
	require.NoError(t, w.LoadScene("S1"))
	require.NoError(t, w.LoadScene("S2"))
	assert.Equal(t, "S2", w.ActiveScene())
	assert.Equal(t, []string{"S1", "S2"}, w.LoadedScenes())
	assert.Len(t, w.LiveAgents("S1"), 1)

	w.UnloadScene("S1")
	w.UnloadScene("S1")
	assert.Empty(t, w.LiveAgents("S1"))
	assert.False(t, w.Resident("S1"))
	assert.Equal(t, "S2", w.ActiveScene())

	assert.Equal(t, []event.Type{event.AgentSpawned, event.SceneLoaded, event.SceneLoaded, event.SceneUnloaded}, typesOf(w.DrainEvents()))
	assert.Empty(t, w.DrainEvents())
}

func TestRegistry_PropsBlockPaths(t *testing.T) {
	w := newWorld(t, Options{})
	w.AddScene(room("S1"), masktest.Open(200, 200))
	require.NoError(t, w.LoadScene("S1"))
	require.NoError(t, w.AddProp(Prop{ID: "barrel", Scene: "S1", Bounds: geom.Rect{X: 80, Y: 0, W: 40, H: 180}}))
	assert.Error(t, w.AddProp(Prop{ID: "barrel", Scene: "S1"}))

	a, err := w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(30, 30), Behavior: staying()})
	require.NoError(t, err)

	require.True(t, a.PathfindTo(geom.Pt(170, 30), true))
	for _, p := range a.Path() {
		assert.True(t, a.Walkable(p, true), "waypoint %v overlaps the barrel", p)
	}
	assert.Greater(t, len(a.Path()), 8, "detours around the barrel")

	require.NoError(t, w.SetPropPickedUp("barrel", true))
	assert.Empty(t, w.Obstacles("S1"))
	require.True(t, a.PathfindTo(geom.Pt(170, 30), true))
	assert.LessOrEqual(t, len(a.Path()), 8)

	w.RemoveProp("barrel")
	w.RemoveProp("barrel")
	assert.Empty(t, w.Props())
}

func TestRegistry_Reset(t *testing.T) {
	w := newWorld(t, Options{StartTime: "10:30"})
	w.AddScene(room("S1"), roomS1())
	_, err := w.Spawn(npc.Definition{ID: "henry", Scene: "S1", Feet: geom.Pt(50, 50)})
	require.NoError(t, err)
	w.UpdateAll(1)

	w.Reset()
	assert.Empty(t, w.Agents())
	assert.Empty(t, w.Scenes())
	assert.Empty(t, w.DrainEvents())
	assert.Equal(t, 630, w.Minute())
}

func TestRegistry_RestoreProps(t *testing.T) {
	var buf bytes.Buffer
	w := newWorld(t, Options{Logger: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))})
	w.AddScene(room("S1"), roomS1())
	require.NoError(t, w.AddProp(Prop{ID: "crate", Scene: "S1", Bounds: geom.Rect{X: 40, Y: 40, W: 10, H: 10}}))

	ws := w.Snapshot()
	ws.Props = []state.PropState{
		{ID: "crate", Scene: "S1", Bounds: geom.Rect{X: 60, Y: 40, W: 10, H: 10}, PickedUp: true},
		{ID: "barrel", Scene: "S1", Bounds: geom.Rect{X: 100, Y: 60, W: 10, H: 10}},
		{ID: "", Scene: "S1", Bounds: geom.Rect{X: 10, Y: 10, W: 5, H: 5}},
	}
	w.Restore(ws)

	crate, ok := w.Prop("crate")
	require.True(t, ok)
	assert.True(t, crate.PickedUp)
	assert.Equal(t, 60, crate.Bounds.X)

	_, ok = w.Prop("barrel")
	assert.True(t, ok)
	assert.Len(t, w.Props(), 2)
	assert.Contains(t, buf.String(), "Saved prop could not be placed")
}
