package crossing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/anggasct/crossing/pkg/core"
)

// Option configures a Simulation
type Option func(*Simulation)

func WithClock(clock Clock) Option {
	return func(s *Simulation) { s.clock = clock }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Simulation) { s.logger = logger }
}

// WithPolicy overrides the policy selected by the configuration.
func WithPolicy(p Policy) Option {
	return func(s *Simulation) { s.policy = p }
}

// WithObservers attaches state machine observers to every light and car.
func WithObservers(observers ...core.Observer) Option {
	return func(s *Simulation) { s.observers = append(s.observers, observers...) }
}

// WithLaneChangeObservers attaches observers to every lane.
func WithLaneChangeObservers(observers ...LaneObserver) Option {
	return func(s *Simulation) { s.laneObservers = append(s.laneObservers, observers...) }
}

// Simulation wires lanes, their lights and a population of car actors.
type Simulation struct {
	id     string
	cfg    Config
	clock  Clock
	logger *slog.Logger
	policy Policy

	observers     []core.Observer
	laneObservers []LaneObserver

	occupancy *Occupancy
	lanes     []*Lane
	lights    []*LightCycle

	running atomic.Bool
	mu      sync.Mutex
	cars    []*Car
	cancel  context.CancelFunc
}

// New validates cfg and builds the lanes and lights. Nothing runs until Run.
func New(cfg Config, opts ...Option) (*Simulation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Simulation{
		id:        uuid.New().String(),
		cfg:       cfg,
		clock:     RealClock(),
		logger:    slog.Default(),
		occupancy: NewOccupancy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.policy == nil {
		p, err := NewPolicy(cfg)
		if err != nil {
			return nil, err
		}
		s.policy = p
	}
	s.logger = s.logger.With("run", s.id)

	timing := cfg.Timing()
	for i := 0; i < cfg.Lanes; i++ {
		lane := NewLane(i+1,
			WithLaneClock(s.clock),
			WithOccupancy(s.occupancy),
			WithLaneObservers(s.laneObservers...),
		)

		var offset time.Duration
		if cfg.Light.Stagger {
			offset = time.Duration(i) * (timing.Green + timing.Yellow)
		}
		light, err := NewLightCycle(lane, timing,
			WithLightClock(s.clock),
			WithOffset(offset),
			WithLightLogger(s.logger),
			WithLightObservers(s.observers...),
		)
		if err != nil {
			return nil, err
		}

		s.lanes = append(s.lanes, lane)
		s.lights = append(s.lights, light)
	}
	return s, nil
}

// ID returns the run identifier attached to every log line.
func (s *Simulation) ID() string {
	return s.id
}

func (s *Simulation) Config() Config {
	return s.cfg
}

func (s *Simulation) Policy() Policy {
	return s.policy
}

func (s *Simulation) Lanes() []*Lane {
	return append([]*Lane(nil), s.lanes...)
}

func (s *Simulation) Lights() []*LightCycle {
	return append([]*LightCycle(nil), s.lights...)
}

// Cars returns every car spawned by the current or most recent run.
func (s *Simulation) Cars() []*Car {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Car(nil), s.cars...)
}

// Snapshots returns a snapshot of every lane. Lanes are read one after the
// other, not atomically as a set.
func (s *Simulation) Snapshots() []Snapshot {
	return lo.Map(s.lanes, func(l *Lane, _ int) Snapshot {
		return l.Snapshot()
	})
}

// Run spawns the configured cars and drives the lights until every spawned
// car has exited. Cancelling ctx stops new arrivals, including during the
// wait between two arrivals; cars already spawned still finish, so lights
// keep cycling for them. Run may be called again once it has returned.
func (s *Simulation) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("simulation %s: %w", s.id, ErrAlreadyRunning)
	}
	defer s.running.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()

	total := s.cfg.TotalCars()
	s.logger.Info("simulation starting",
		"lanes", len(s.lanes), "cars", total, "policy", s.policy.Name())
	if b, ok := s.policy.(*BoundedConcurrency); ok && b.Spacing == SpacingLeader {
		s.logger.Info("safety distance applies to the leader only, followers may cross closer together",
			"capacity", b.Capacity, "safety_distance", b.SafetyDistance)
	}
	start := s.clock.Now()

	lightCtx, stopLights := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLights()
	var lights errgroup.Group
	for _, light := range s.lights {
		lights.Go(func() error {
			return light.Run(lightCtx)
		})
	}

	s.mu.Lock()
	s.cars = nil
	s.mu.Unlock()

	cars, carCtx := errgroup.WithContext(ctx)
	rng := rand.New(rand.NewPCG(s.cfg.Seed, s.cfg.Seed))
	spawned := 0
	for i := 1; i <= total; i++ {
		if i > 1 && s.cfg.ArrivalInterval > 0 {
			_ = sleepContext(carCtx, s.clock, s.cfg.ArrivalInterval, s.cfg.Tick)
		}
		if carCtx.Err() != nil {
			s.logger.Info("arrivals stopped", "spawned", spawned, "planned", total)
			break
		}

		a, err := s.spawn(i, s.assignLane(i, rng))
		if err != nil {
			cars.Go(func() error { return err })
			break
		}
		cars.Go(a.run)
		spawned++
	}
	carErr := cars.Wait()

	for _, light := range s.lights {
		light.Stop()
	}
	stopLights()
	lightErr := lights.Wait()

	err := errors.Join(carErr, lightErr)
	attrs := []any{"spawned", spawned, "elapsed", s.clock.Now().Sub(start)}
	if err != nil {
		s.logger.Error("simulation failed", append(attrs, "error", err)...)
		return err
	}
	s.logger.Info("simulation finished", attrs...)
	return nil
}

// Stop ends arrivals for the current run. Cars already spawned still finish
// and Run returns once they have.
func (s *Simulation) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Simulation) assignLane(i int, rng *rand.Rand) *Lane {
	if s.cfg.CarsPerLane > 0 {
		return s.lanes[(i-1)%len(s.lanes)]
	}
	return s.lanes[rng.IntN(len(s.lanes))]
}

func (s *Simulation) spawn(id int, lane *Lane) (*actor, error) {
	car, err := NewCar(id, lane.ID(), s.cfg.CrossingTime, s.observers...)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cars = append(s.cars, car)
	s.mu.Unlock()

	return &actor{
		car:         car,
		lane:        lane,
		policy:      s.policy,
		clock:       s.clock,
		tick:        s.cfg.Tick,
		waitWarning: s.cfg.WaitWarning,
		logger:      s.logger,
	}, nil
}
