// Package activity provides the dashboard's activity log and the freshness
// grading of each agent's last activity.
package activity

import (
	"fmt"
	"time"

	"github.com/agentboard/agentboard/internal/model"
)

// Freshness grades how long ago an agent last did something.
type Freshness string

const (
	Active  Freshness = "active"  // under ActiveWithin
	Stale   Freshness = "stale"   // under StaleWithin
	Stuck   Freshness = "stuck"   // StaleWithin or longer
	Unknown Freshness = "unknown" // never reported
)

const (
	ActiveWithin = 2 * time.Minute
	StaleWithin  = 5 * time.Minute
)

// Age is an agent's time since last activity, ready for display.
type Age struct {
	Elapsed   time.Duration
	Label     string // "<1m", "4m", "2h", "3d" or "unknown"
	Freshness Freshness
}

// AgentAge grades the agent's LastActivity against now.
func AgentAge(a model.Agent, now time.Time) Age {
	return AgeAt(a.LastActivity, now)
}

// AgeAt grades a last-activity timestamp against now. A zero timestamp is
// Unknown; a timestamp ahead of now (clock skew) counts as just now.
func AgeAt(last, now time.Time) Age {
	if last.IsZero() {
		return Age{Label: string(Unknown), Freshness: Unknown}
	}
	d := max(now.Sub(last), 0)
	return Age{Elapsed: d, Label: ageLabel(d), Freshness: grade(d)}
}

func ageLabel(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "<1m"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d/time.Minute))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
}

func grade(d time.Duration) Freshness {
	switch {
	case d < ActiveWithin:
		return Active
	case d < StaleWithin:
		return Stale
	}
	return Stuck
}
