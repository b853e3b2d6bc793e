package behavior

import (
	"fmt"
	"strings"
)

// Config tunes an agent's autonomous behavior. Durations are in seconds,
// distances in pixels.
type Config struct {
	Name              string  `yaml:"name" json:"name"`
	IdleMin           float64 `yaml:"idle_min" json:"idle_min"`
	IdleMax           float64 `yaml:"idle_max" json:"idle_max"`
	WanderProbability float64 `yaml:"wander_probability" json:"wander_probability"`
	TravelProbability float64 `yaml:"travel_probability" json:"travel_probability"`
	WanderMinDistance float64 `yaml:"wander_min_distance" json:"wander_min_distance"`
	WanderRadius      float64 `yaml:"wander_radius" json:"wander_radius"`
	PortalClearance   float64 `yaml:"portal_clearance" json:"portal_clearance"`
	MaxTravelTime     float64 `yaml:"max_travel_time" json:"max_travel_time"`
	Speed             float64 `yaml:"speed" json:"speed"`
}

const (
	wanderAttempts = 20
	// midTravelWanderScale shrinks the wander share while a journey is unfinished.
	midTravelWanderScale = 0.2
)

// DefaultConfig is the baseline villager profile.
func DefaultConfig() Config {
	return Config{
		Name:              "default",
		IdleMin:           2,
		IdleMax:           5,
		WanderProbability: 0.65,
		TravelProbability: 0.10,
		WanderMinDistance: 50,
		WanderRadius:      200,
		PortalClearance:   50,
		MaxTravelTime:     30,
		Speed:             100,
	}
}

func Henry() Config {
	c := DefaultConfig()
	c.Name = "henry"
	return c
}

// Active wanders often and rarely leaves the scene.
func Active() Config {
	c := DefaultConfig()
	c.Name = "active"
	c.IdleMin, c.IdleMax = 1, 3
	c.WanderProbability, c.TravelProbability = 0.80, 0.05
	c.WanderRadius = 300
	c.Speed = 150
	return c
}

// Lazy mostly stands around.
func Lazy() Config {
	c := DefaultConfig()
	c.Name = "lazy"
	c.IdleMin, c.IdleMax = 5, 10
	c.WanderProbability, c.TravelProbability = 0.30, 0.05
	c.WanderRadius = 100
	c.Speed = 50
	return c
}

// Explorer travels between scenes half the time.
func Explorer() Config {
	c := DefaultConfig()
	c.Name = "explorer"
	c.IdleMin, c.IdleMax = 1, 2
	c.WanderProbability, c.TravelProbability = 0.40, 0.50
	c.WanderRadius = 250
	c.Speed = 120
	return c
}

// Preset returns a named profile. An empty name yields DefaultConfig.
func Preset(name string) (Config, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "default":
		return DefaultConfig(), nil
	case "henry":
		return Henry(), nil
	case "active":
		return Active(), nil
	case "lazy":
		return Lazy(), nil
	case "explorer":
		return Explorer(), nil
	default:
		return DefaultConfig(), fmt.Errorf("unknown behavior preset %q", name)
	}
}

// Validate checks that probabilities and ranges are usable.
func (c Config) Validate() error {
	if c.WanderProbability < 0 || c.TravelProbability < 0 {
		return fmt.Errorf("probabilities must not be negative")
	}
	if c.WanderProbability+c.TravelProbability > 1 {
		return fmt.Errorf("wander (%.2f) + travel (%.2f) probability exceeds 1", c.WanderProbability, c.TravelProbability)
	}
	if c.IdleMin < 0 || c.IdleMax < c.IdleMin {
		return fmt.Errorf("invalid idle range [%.1f, %.1f]", c.IdleMin, c.IdleMax)
	}
	if c.WanderMinDistance < 0 || c.WanderRadius < c.WanderMinDistance {
		return fmt.Errorf("invalid wander range [%.1f, %.1f]", c.WanderMinDistance, c.WanderRadius)
	}
	return nil
}
