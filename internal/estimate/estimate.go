// Package estimate is the downstream effort-estimation collaborator.
//
// The scope core only gates estimation — it never computes effort
// itself. This package provides the boundary interface the approval gate
// invokes once scope is approved, plus a small velocity-based default.
package estimate

import "math"

// Estimate is the effort figure produced after scope approval.
type Estimate struct {
	StoryPoints float64 `json:"story_points"`
	Sprints     float64 `json:"sprints"`
	Weeks       float64 `json:"weeks"`
	TeamSize    int     `json:"team_size"`
	Velocity    float64 `json:"velocity"`
}

// Estimator produces an effort estimate from an approved complexity
// figure and team parameters.
type Estimator interface {
	Estimate(complexity float64, teamSize int, velocity float64) Estimate
}

// Team parameter defaults when the caller supplies none.
const (
	DefaultTeamSize = 2
	DefaultVelocity = 10 // story points per developer per sprint

	sprintWeeks = 2
)

// VelocityEstimator converts complexity into story points and divides by
// team capacity per sprint.
type VelocityEstimator struct{}

// NewVelocityEstimator creates a VelocityEstimator.
func NewVelocityEstimator() *VelocityEstimator {
	return &VelocityEstimator{}
}

// Estimate maps complexity (0-100) to story points (complexity/2,
// minimum 1) and spreads them over the team's per-sprint capacity.
func (e *VelocityEstimator) Estimate(complexity float64, teamSize int, velocity float64) Estimate {
	if teamSize < 1 {
		teamSize = DefaultTeamSize
	}
	if velocity <= 0 {
		velocity = DefaultVelocity
	}

	points := math.Max(complexity/2.0, 1.0)
	capacity := velocity * float64(teamSize)
	sprints := math.Ceil(points/capacity*10) / 10

	return Estimate{
		StoryPoints: math.Round(points*10) / 10,
		Sprints:     sprints,
		Weeks:       sprints * sprintWeeks,
		TeamSize:    teamSize,
		Velocity:    velocity,
	}
}
