package crossing

import (
	"time"

	"github.com/samber/lo"
)

// CarView is a car as seen in a lane snapshot.
type CarView struct {
	ID        int
	Key       string
	LaneID    int
	State     CarState
	Position  float64
	ArrivedAt time.Time
	EnteredAt time.Time
}

// Snapshot is a consistent copy of one lane taken under the lane mutex.
// Cars are listed in arrival order.
type Snapshot struct {
	LaneID         int
	LaneName       string
	Phase          Phase
	PhaseChangedAt time.Time
	Version        uint64
	TakenAt        time.Time
	Cars           []CarView
}

// Crossing returns the cars currently crossing.
func (s Snapshot) Crossing() []CarView {
	return s.InState(Crossing)
}

// Waiting returns the cars still queued.
func (s Snapshot) Waiting() []CarView {
	return s.InState(Waiting)
}

func (s Snapshot) InState(state CarState) []CarView {
	return lo.Filter(s.Cars, func(c CarView, _ int) bool {
		return c.State == state
	})
}

func (s Snapshot) Count(state CarState) int {
	return lo.CountBy(s.Cars, func(c CarView) bool {
		return c.State == state
	})
}

// Car looks up a car by id.
func (s Snapshot) Car(id int) (CarView, bool) {
	return lo.Find(s.Cars, func(c CarView) bool {
		return c.ID == id
	})
}

// Leader returns the crossing car furthest along the lane.
func (s Snapshot) Leader() (CarView, bool) {
	crossing := s.Crossing()
	if len(crossing) == 0 {
		return CarView{}, false
	}
	return lo.MaxBy(crossing, func(a, b CarView) bool {
		return a.Position > b.Position
	}), true
}
