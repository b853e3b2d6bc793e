package behavior

import (
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/jwebster45206/npc-engine/pkg/geom"
)

// StateName identifies a behavior state.
type StateName string

const (
	Idle   StateName = "IdleState"
	Wander StateName = "WanderState"
	Travel StateName = "TravelToSceneState"
)

// State is one behavior of the machine. Enter and Exit bracket each stay in
// the state; Complete is polled after every Update.
type State interface {
	Name() StateName
	Enter()
	Exit()
	Update(dt float64)
	Complete() bool
	Elapsed() float64
}

type timer struct{ elapsed float64 }

func (t *timer) Update(dt float64) { t.elapsed += dt }
func (t *timer) Elapsed() float64  { return t.elapsed }
func (t *timer) reset()            { t.elapsed = 0 }

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + rng.Float64()*(hi-lo)
}

// idleState stands still for a random duration.
type idleState struct {
	timer
	body     Body
	cfg      *Config
	rng      *rand.Rand
	duration float64
}

func (s *idleState) Name() StateName { return Idle }

func (s *idleState) Enter() {
	s.reset()
	s.duration = uniform(s.rng, s.cfg.IdleMin, s.cfg.IdleMax)
	s.body.ClearPath()
}

func (s *idleState) Exit() {}

func (s *idleState) restore() { s.reset(); s.duration = 0 }

func (s *idleState) Complete() bool {
	return s.elapsed >= s.duration
}

// wanderState walks to a random nearby point, or warps there when the
// agent's scene is not loaded.
type wanderState struct {
	timer
	body   Body
	cfg    *Config
	rng    *rand.Rand
	log    *slog.Logger
	target *geom.Point
	warp   float64
	scene  string
	// warping is set for off-screen wanders; the agent is moved on completion.
	warping bool
	done    bool
}

func (s *wanderState) Name() StateName { return Wander }

func (s *wanderState) Enter() {
	s.reset()
	s.target, s.warp, s.warping, s.done = nil, 0, false, false
	s.scene = s.body.Scene()

	m := s.body.Mask()
	if m == nil {
		s.log.Debug("No cached mask, skipping wander", "agent", s.body.ID(), "scene", s.body.Scene())
		s.body.ClearPath()
		s.done = true
		return
	}

	target, ok := s.pickTarget()
	if !ok {
		s.log.Debug("No wander target found", "agent", s.body.ID(), "attempts", wanderAttempts)
		s.body.ClearPath()
		s.done = true
		return
	}
	s.target = &target

	if !s.body.Resident() {
		s.warping = true
		if speed := s.body.Speed(); speed > 0 {
			s.warp = s.body.Feet().Dist(target) / speed
		}
		return
	}
	if !s.body.PathfindTo(target, true) {
		s.done = true
	}
}

func (s *wanderState) pickTarget() (geom.Point, bool) {
	m := s.body.Mask()
	feet := s.body.Feet()
	portals := m.Portals()

	for range wanderAttempts {
		angle := s.rng.Float64() * 2 * math.Pi
		dist := uniform(s.rng, s.cfg.WanderMinDistance, s.cfg.WanderRadius)
		p := geom.Pt(feet.X+dist*math.Cos(angle), feet.Y+dist*math.Sin(angle))

		if !s.body.Walkable(p, true) {
			continue
		}
		tooClose := false
		for _, r := range portals {
			b := r.Bounds
			c := geom.Pt(float64(b.Left()+b.Right())/2, float64(b.Top()+b.Bottom())/2)
			if p.Dist(c) < s.cfg.PortalClearance {
				tooClose = true
				break
			}
		}
		if !tooClose {
			return p, true
		}
	}
	return geom.Point{}, false
}

func (s *wanderState) Exit() {}

func (s *wanderState) restore() {
	s.reset()
	s.target, s.warp, s.warping, s.done = nil, 0, false, false
	s.scene = s.body.Scene()
}

func (s *wanderState) Complete() bool {
	if s.done {
		return true
	}
	if s.warping {
		if s.elapsed < s.warp {
			return false
		}
		// A journey may have carried the agent elsewhere in the meantime.
		if s.body.Scene() == s.scene && !s.body.Resident() {
			s.body.SetFeet(*s.target)
		}
		s.done = true
		return true
	}
	return !s.body.HasPath()
}

// travelState heads for another scene through the scene graph.
type travelState struct {
	timer
	body Body
	cfg  *Config
	rng  *rand.Rand
	log  *slog.Logger
}

func (s *travelState) Name() StateName { return Travel }

func (s *travelState) Enter() {
	s.reset()

	// Keep going toward an unfinished destination instead of re-rolling it.
	if dest, ok := s.body.Journey(); ok {
		if s.body.PathfindToScene(dest, nil) {
			return
		}
	}

	current := s.body.Scene()
	var choices []string
	for _, e := range s.body.Exits() {
		if e.To != "" && e.To != current {
			choices = append(choices, e.To)
		}
	}
	if len(choices) == 0 {
		s.log.Debug("No exits to travel through", "agent", s.body.ID(), "scene", current)
		s.body.ClearPath()
		return
	}
	dest := choices[s.rng.IntN(len(choices))]
	if !s.body.PathfindToScene(dest, nil) {
		s.body.ClearPath()
	}
}

func (s *travelState) restore() { s.reset() }

func (s *travelState) Exit() {
	s.body.SettleInScene()
}

func (s *travelState) Complete() bool {
	if !s.body.HasPath() && !s.body.HasScenePath() {
		return true
	}
	return s.cfg.MaxTravelTime > 0 && s.elapsed >= s.cfg.MaxTravelTime
}
