package crossing

import (
	"context"
	"time"
)

// Clock is the time source for lanes, lights and car actors. Tests swap in a
// virtual clock to make phase timing deterministic.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

// RealClock returns a Clock backed by the time package.
func RealClock() Clock {
	return realClock{}
}

func (realClock) Now() time.Time {
	return time.Now()
}

func (realClock) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// sleepContext sleeps for d in slices of at most step and gives up early
// once ctx is done, returning its error.
func sleepContext(ctx context.Context, clock Clock, d, step time.Duration) error {
	for d > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(d, step)
		clock.Sleep(n)
		d -= n
	}
	return ctx.Err()
}
