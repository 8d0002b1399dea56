package crossing

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/anggasct/crossing/pkg/core"
)

// Policy decides whether a waiting car may begin crossing. CanCross must be
// a pure function of the snapshot and the candidate.
type Policy interface {
	Name() string
	CanCross(snap Snapshot, candidate CarView) bool
	// Verify reports a violation of the policy's safety bound in snap.
	Verify(snap Snapshot) error
}

// Spacer is implemented by policies whose decisions depend on how far
// crossing cars have travelled. Crossing cars notify their lane once past
// the clearance so waiters re-evaluate.
type Spacer interface {
	Clearance() float64
}

// StrictExclusion admits a car only when nobody else in the lane is crossing.
type StrictExclusion struct{}

func (StrictExclusion) Name() string {
	return "strict"
}

func (StrictExclusion) CanCross(snap Snapshot, _ CarView) bool {
	return snap.Count(Crossing) == 0
}

func (StrictExclusion) Verify(snap Snapshot) error {
	if n := snap.Count(Crossing); n > 1 {
		return newInvariantError(snap.LaneID, 0, fmt.Sprintf("%d cars crossing under strict exclusion", n), nil)
	}
	return nil
}

// SpacingMode selects which crossing cars the safety distance is measured against.
type SpacingMode string

const (
	// SpacingLeader measures only against the crossing car furthest along.
	// Once the leader is clear, several waiting cars may be admitted moments
	// apart, so the cars behind it are not kept SafetyDistance from each other.
	SpacingLeader SpacingMode = "leader"
	// SpacingAll requires the gap to every crossing car.
	SpacingAll SpacingMode = "all"
)

const spacingTolerance = 1e-9

// BoundedConcurrency admits up to Capacity cars at once, each at least
// SafetyDistance behind the cars ahead of it.
type BoundedConcurrency struct {
	Capacity       int
	SafetyDistance float64
	Spacing        SpacingMode
}

// NewBoundedConcurrency validates and builds a bounded policy. An empty mode
// means SpacingLeader.
func NewBoundedConcurrency(capacity int, safetyDistance float64, mode SpacingMode) (*BoundedConcurrency, error) {
	if capacity < 1 {
		return nil, core.NewConfigurationError("BoundedConcurrency", fmt.Sprintf("capacity must be at least 1, got %d", capacity))
	}
	if safetyDistance <= 0 {
		return nil, core.NewConfigurationError("BoundedConcurrency", fmt.Sprintf("safety distance must be positive, got %g", safetyDistance))
	}
	if mode == "" {
		mode = SpacingLeader
	}
	if mode != SpacingLeader && mode != SpacingAll {
		return nil, core.NewConfigurationError("BoundedConcurrency", fmt.Sprintf("unknown spacing mode %q", mode))
	}
	return &BoundedConcurrency{Capacity: capacity, SafetyDistance: safetyDistance, Spacing: mode}, nil
}

func (b *BoundedConcurrency) Name() string {
	return fmt.Sprintf("bounded(k=%d, s=%g, %s)", b.Capacity, b.SafetyDistance, b.Spacing)
}

func (b *BoundedConcurrency) Clearance() float64 {
	return b.SafetyDistance
}

// CanCross denies a candidate that is not strictly more than SafetyDistance
// behind the cars it is measured against, then admits it only while fewer
// than Capacity cars are crossing.
func (b *BoundedConcurrency) CanCross(snap Snapshot, candidate CarView) bool {
	crossing := snap.Crossing()
	if len(crossing) > 0 {
		ahead := crossing
		if b.Spacing != SpacingAll {
			leader, _ := snap.Leader()
			ahead = []CarView{leader}
		}
		if !lo.EveryBy(ahead, func(c CarView) bool {
			return c.Position-candidate.Position > b.SafetyDistance
		}) {
			return false
		}
	}
	return len(crossing) < b.Capacity
}

// Verify checks the crossing count, and in SpacingAll mode the gap between
// each pair of neighbouring cars still on the lane. In SpacingLeader mode
// only the count is bounded: closely spaced followers are expected there and
// are not reported.
func (b *BoundedConcurrency) Verify(snap Snapshot) error {
	crossing := snap.Crossing()
	if len(crossing) > b.Capacity {
		return newInvariantError(snap.LaneID, 0,
			fmt.Sprintf("%d cars crossing, capacity %d", len(crossing), b.Capacity), nil)
	}
	if b.Spacing != SpacingAll {
		return nil
	}

	positions := lo.FilterMap(crossing, func(c CarView, _ int) (float64, bool) {
		return c.Position, c.Position < 1
	})
	slices.Sort(positions)
	for i := 1; i < len(positions); i++ {
		if gap := positions[i] - positions[i-1]; gap < b.SafetyDistance-spacingTolerance {
			return newInvariantError(snap.LaneID, 0,
				fmt.Sprintf("crossing cars %.4f apart, safety distance %g", gap, b.SafetyDistance), nil)
		}
	}
	return nil
}

// NewPolicy builds the policy selected by cfg.
func NewPolicy(cfg Config) (Policy, error) {
	switch cfg.Policy {
	case PolicyStrict:
		return StrictExclusion{}, nil
	case PolicyBounded:
		return NewBoundedConcurrency(cfg.Capacity, cfg.SafetyDistance, cfg.Spacing)
	default:
		return nil, core.NewConfigurationError("Config", fmt.Sprintf("unknown policy %q", cfg.Policy))
	}
}
