package estimate

import "testing"

func TestEstimate_MidComplexity(t *testing.T) {
	got := NewVelocityEstimator().Estimate(40, 2, 10)
	// 40/2 = 20 points over 20 pts/sprint capacity = 1 sprint.
	if got.StoryPoints != 20 {
		t.Errorf("StoryPoints = %v, want 20", got.StoryPoints)
	}
	if got.Sprints != 1.0 {
		t.Errorf("Sprints = %v, want 1.0", got.Sprints)
	}
	if got.Weeks != 2.0 {
		t.Errorf("Weeks = %v, want 2.0", got.Weeks)
	}
}

func TestEstimate_MinimumOnePoint(t *testing.T) {
	got := NewVelocityEstimator().Estimate(0, 2, 10)
	if got.StoryPoints != 1 {
		t.Errorf("StoryPoints = %v, want 1 (floor)", got.StoryPoints)
	}
}

func TestEstimate_SprintsRoundUpToTenth(t *testing.T) {
	// 100/2 = 50 points over 20 pts/sprint = 2.5 sprints exactly;
	// 42/2 = 21 points over 20 = 1.05 → rounds up to 1.1.
	e := NewVelocityEstimator()
	if got := e.Estimate(100, 2, 10); got.Sprints != 2.5 {
		t.Errorf("Sprints = %v, want 2.5", got.Sprints)
	}
	if got := e.Estimate(42, 2, 10); got.Sprints != 1.1 {
		t.Errorf("Sprints = %v, want 1.1", got.Sprints)
	}
}

func TestEstimate_DefaultsApplied(t *testing.T) {
	got := NewVelocityEstimator().Estimate(40, 0, 0)
	if got.TeamSize != DefaultTeamSize {
		t.Errorf("TeamSize = %d, want %d", got.TeamSize, DefaultTeamSize)
	}
	if got.Velocity != DefaultVelocity {
		t.Errorf("Velocity = %v, want %v", got.Velocity, float64(DefaultVelocity))
	}
}

func TestEstimate_LargerTeamShortensSchedule(t *testing.T) {
	e := NewVelocityEstimator()
	small := e.Estimate(80, 2, 10)
	large := e.Estimate(80, 4, 10)
	if large.Sprints >= small.Sprints {
		t.Errorf("Sprints = %v for team of 4 vs %v for team of 2, want fewer", large.Sprints, small.Sprints)
	}
}
