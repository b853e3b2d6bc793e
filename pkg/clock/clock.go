// Package clock keeps in-game time of day.
package clock

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const MinutesPerDay = 24 * 60

// Clock tracks the game time of day in minutes. Scale is the number of game
// minutes that pass per real second; zero freezes time.
type Clock struct {
	minutes float64
	Scale   float64
}

// New returns a clock starting at start minutes past midnight.
func New(start int, scale float64) *Clock {
	c := &Clock{Scale: scale}
	c.SetMinute(start)
	return c
}

// Advance moves the clock forward by dt real seconds, wrapping at midnight.
func (c *Clock) Advance(dt float64) {
	if dt <= 0 || c.Scale == 0 {
		return
	}
	c.minutes = math.Mod(c.minutes+dt*c.Scale, MinutesPerDay)
}

// SetMinute sets the time of day; values outside a day are wrapped.
func (c *Clock) SetMinute(m int) {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	c.minutes = float64(m)
}

// Set sets the clock to hour:minute.
func (c *Clock) Set(hour, minute int) {
	c.SetMinute(hour*60 + minute)
}

// Minute returns whole minutes since midnight.
func (c *Clock) Minute() int {
	return int(c.minutes)
}

func (c *Clock) Hour() int { return c.Minute() / 60 }

// String formats the time as HH:MM.
func (c *Clock) String() string {
	return Format(c.Minute())
}

// Format renders minutes since midnight as HH:MM.
func Format(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// Parse converts "HH:MM" into minutes since midnight.
func Parse(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
