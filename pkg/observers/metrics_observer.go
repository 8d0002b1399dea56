package observers

import (
	"slices"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/anggasct/crossing"
	"github.com/anggasct/crossing/pkg/core"
)

// LaneMetrics summarizes one lane.
type LaneMetrics struct {
	Arrivals    int
	Admissions  int
	Exits       int
	MaxCrossing int
	TotalWait   time.Duration
	MaxWait     time.Duration
	PhaseTime   map[crossing.Phase]time.Duration
}

// MeanWait is the average time admitted cars spent queued.
func (m LaneMetrics) MeanWait() time.Duration {
	if m.Admissions == 0 {
		return 0
	}
	return m.TotalWait / time.Duration(m.Admissions)
}

// MetricsObserver collects lane and state machine metrics. Lane timings
// come from snapshot timestamps, so they follow whatever clock the lanes use.
type MetricsObserver struct {
	core.BaseObserver

	lanes            map[int]*LaneMetrics
	phaseStarted     map[int]time.Time
	phase            map[int]crossing.Phase
	transitionCounts map[string]int
	errorCount       int
	mutex            sync.RWMutex
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		lanes:            make(map[int]*LaneMetrics),
		phaseStarted:     make(map[int]time.Time),
		phase:            make(map[int]crossing.Phase),
		transitionCounts: make(map[string]int),
	}
}

func (o *MetricsObserver) lane(id int) *LaneMetrics {
	m, ok := o.lanes[id]
	if !ok {
		m = &LaneMetrics{PhaseTime: make(map[crossing.Phase]time.Duration)}
		o.lanes[id] = m
	}
	return m
}

func (o *MetricsObserver) OnLaneChange(change crossing.Change) {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	snap := change.Snapshot
	m := o.lane(snap.LaneID)

	switch change.Kind {
	case crossing.ChangeAttached:
		m.Arrivals++
	case crossing.ChangeEntered:
		m.Admissions++
		wait := change.Car.EnteredAt.Sub(change.Car.ArrivedAt)
		m.TotalWait += wait
		m.MaxWait = max(m.MaxWait, wait)
		m.MaxCrossing = max(m.MaxCrossing, snap.Count(crossing.Crossing))
	case crossing.ChangeExited:
		m.Exits++
	case crossing.ChangePhase:
		if started, ok := o.phaseStarted[snap.LaneID]; ok {
			m.PhaseTime[o.phase[snap.LaneID]] += snap.PhaseChangedAt.Sub(started)
		}
		o.phaseStarted[snap.LaneID] = snap.PhaseChangedAt
		o.phase[snap.LaneID] = snap.Phase
	}
}

// OnTransition records transition metrics
func (o *MetricsObserver) OnTransition(from string, to string, event core.Event, ctx core.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.transitionCounts[from+"->"+to]++
}

// OnError records error metrics
func (o *MetricsObserver) OnError(err error, ctx core.Context) {
	o.mutex.Lock()
	defer o.mutex.Unlock()
	o.errorCount++
}

// Lane returns a copy of the metrics for one lane.
func (o *MetricsObserver) Lane(id int) LaneMetrics {
	o.mutex.RLock()
	defer o.mutex.RUnlock()

	m, ok := o.lanes[id]
	if !ok {
		return LaneMetrics{PhaseTime: map[crossing.Phase]time.Duration{}}
	}
	out := *m
	out.PhaseTime = lo.Assign(m.PhaseTime)
	return out
}

// LaneIDs returns every lane seen so far in ascending order.
func (o *MetricsObserver) LaneIDs() []int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	ids := lo.Keys(o.lanes)
	slices.Sort(ids)
	return ids
}

// GetTransitionCounts returns the number of times each transition occurred
func (o *MetricsObserver) GetTransitionCounts() map[string]int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return lo.Assign(o.transitionCounts)
}

// GetErrorCount returns the number of errors
func (o *MetricsObserver) GetErrorCount() int {
	o.mutex.RLock()
	defer o.mutex.RUnlock()
	return o.errorCount
}

// Reset resets all metrics
func (o *MetricsObserver) Reset() {
	o.mutex.Lock()
	defer o.mutex.Unlock()

	o.lanes = make(map[int]*LaneMetrics)
	o.phaseStarted = make(map[int]time.Time)
	o.phase = make(map[int]crossing.Phase)
	o.transitionCounts = make(map[string]int)
	o.errorCount = 0
}
