package crossing

import (
	"fmt"
	"slices"
	"sync"
	"time"
)

// ChangeKind identifies what moved a lane to a new version.
type ChangeKind int

const (
	ChangeAttached ChangeKind = iota
	ChangePhase
	ChangeEntered
	ChangeExited
	ChangeProgress
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAttached:
		return "attached"
	case ChangePhase:
		return "phase"
	case ChangeEntered:
		return "entered"
	case ChangeExited:
		return "exited"
	case ChangeProgress:
		return "progress"
	default:
		return fmt.Sprintf("ChangeKind(%d)", int(k))
	}
}

// Change describes one lane mutation. Car is nil for phase and progress
// changes. Snapshot is taken right after the mutation.
type Change struct {
	Kind     ChangeKind
	Car      *CarView
	Snapshot Snapshot
}

// LaneObserver receives every lane mutation. It is called with the lane
// mutex held and must not call back into the lane.
type LaneObserver interface {
	OnLaneChange(change Change)
}

// Occupancy records which lane each crossing car occupies across a whole
// intersection. A car may be crossing in at most one lane.
type Occupancy struct {
	mu    sync.Mutex
	lanes map[string]int
}

func NewOccupancy() *Occupancy {
	return &Occupancy{lanes: make(map[string]int)}
}

func (o *Occupancy) claim(car *Car, lane int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if other, ok := o.lanes[car.Key]; ok {
		return newInvariantError(lane, car.ID, fmt.Sprintf("car already crossing lane %d", other), nil)
	}
	o.lanes[car.Key] = lane
	return nil
}

func (o *Occupancy) release(car *Car) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.lanes, car.Key)
}

// Crossing returns how many cars hold a claim.
func (o *Occupancy) Crossing() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.lanes)
}

// LaneOption configures a Lane
type LaneOption func(*Lane)

func WithLaneName(name string) LaneOption {
	return func(l *Lane) { l.name = name }
}

func WithLaneClock(clock Clock) LaneOption {
	return func(l *Lane) { l.clock = clock }
}

func WithOccupancy(o *Occupancy) LaneOption {
	return func(l *Lane) { l.occupancy = o }
}

func WithLaneObservers(observers ...LaneObserver) LaneOption {
	return func(l *Lane) { l.observers = append(l.observers, observers...) }
}

// Lane is the shared state one light governs: the current phase and the
// cars in arrival order. Every mutation bumps the version and wakes all
// waiters so each can re-evaluate against a fresh snapshot.
type Lane struct {
	id        int
	name      string
	clock     Clock
	occupancy *Occupancy

	mu             sync.Mutex
	changed        *sync.Cond
	cars           []*Car
	phase          Phase
	phaseChangedAt time.Time
	version        uint64
	observers      []LaneObserver
}

// NewLane creates a lane showing RED with no cars.
func NewLane(id int, opts ...LaneOption) *Lane {
	l := &Lane{
		id:    id,
		name:  fmt.Sprintf("Lane %d", id),
		clock: RealClock(),
		phase: Red,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.changed = sync.NewCond(&l.mu)
	l.phaseChangedAt = l.clock.Now()
	return l
}

func (l *Lane) ID() int {
	return l.id
}

func (l *Lane) Name() string {
	return l.name
}

// AddObserver registers an observer for subsequent changes.
func (l *Lane) AddObserver(o LaneObserver) {
	if o == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, o)
}

// Phase returns the phase currently shown.
func (l *Lane) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Version returns the current change counter.
func (l *Lane) Version() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.version
}

// Attach appends a freshly arrived car and moves it to waiting.
func (l *Lane) Attach(car *Car) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if car.LaneID != l.id {
		return newInvariantError(l.id, car.ID, fmt.Sprintf("car belongs to lane %d", car.LaneID), nil)
	}
	if l.indexLocked(car) >= 0 {
		return newInvariantError(l.id, car.ID, "car already attached", nil)
	}
	if err := car.advance(eventQueue, l.clock.Now(), l.phase); err != nil {
		return err
	}

	l.cars = append(l.cars, car)
	l.changedLocked(ChangeAttached, car)
	return nil
}

// Detach removes a crossing car and marks it exited.
func (l *Lane) Detach(car *Car) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := l.indexLocked(car)
	if idx < 0 {
		return newInvariantError(l.id, car.ID, "car not attached", nil)
	}
	if err := car.advance(eventLeave, l.clock.Now(), l.phase); err != nil {
		return err
	}

	l.cars = slices.Delete(l.cars, idx, idx+1)
	if l.occupancy != nil {
		l.occupancy.release(car)
	}
	l.changedLocked(ChangeExited, car)
	return nil
}

// BeginCrossing commits an admission decision made against the snapshot
// with the given version. It returns false, leaving the car waiting, when the
// lane changed since that snapshot; the caller re-evaluates.
func (l *Lane) BeginCrossing(car *Car, version uint64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.version != version {
		return false, nil
	}
	if l.indexLocked(car) < 0 {
		return false, newInvariantError(l.id, car.ID, "car not attached", nil)
	}
	if !l.phase.AllowsEntry() {
		return false, newInvariantError(l.id, car.ID, fmt.Sprintf("entry attempted on %s", l.phase), nil)
	}
	if l.occupancy != nil {
		if err := l.occupancy.claim(car, l.id); err != nil {
			return false, err
		}
	}
	if err := car.advance(eventEnter, l.clock.Now(), l.phase); err != nil {
		if l.occupancy != nil {
			l.occupancy.release(car)
		}
		return false, err
	}

	l.changedLocked(ChangeEntered, car)
	return true, nil
}

// SetPhase switches the light and wakes every waiter.
func (l *Lane) SetPhase(phase Phase) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.phase = phase
	l.phaseChangedAt = l.clock.Now()
	l.changedLocked(ChangePhase, nil)
}

// Notify wakes waiters without changing lane membership. Crossing cars use
// it once they have moved far enough to open room behind them.
func (l *Lane) Notify() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.changedLocked(ChangeProgress, nil)
}

// WaitForChange blocks until the lane version differs from version. Passing
// the version of the snapshot a decision was made on means a change between
// that snapshot and this call is never missed.
func (l *Lane) WaitForChange(version uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.version == version {
		l.changed.Wait()
	}
}

// Snapshot returns a consistent copy of the lane.
func (l *Lane) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

func (l *Lane) snapshotLocked() Snapshot {
	now := l.clock.Now()
	cars := make([]CarView, len(l.cars))
	for i, c := range l.cars {
		cars[i] = c.view(now)
	}
	return Snapshot{
		LaneID:         l.id,
		LaneName:       l.name,
		Phase:          l.phase,
		PhaseChangedAt: l.phaseChangedAt,
		Version:        l.version,
		TakenAt:        now,
		Cars:           cars,
	}
}

func (l *Lane) indexLocked(car *Car) int {
	return slices.Index(l.cars, car)
}

func (l *Lane) changedLocked(kind ChangeKind, car *Car) {
	l.version++
	l.changed.Broadcast()

	if len(l.observers) == 0 {
		return
	}
	change := Change{Kind: kind, Snapshot: l.snapshotLocked()}
	if car != nil {
		v := car.view(change.Snapshot.TakenAt)
		change.Car = &v
	}
	for _, o := range l.observers {
		o.OnLaneChange(change)
	}
}
