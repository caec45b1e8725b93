package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Cadence yields the next recheck time after a given instant.
// Any cron.Schedule is a Cadence.
type Cadence interface {
	Next(time.Time) time.Time
}

// DefaultCadenceSpec fires on every wall-clock minute boundary
const DefaultCadenceSpec = "* * * * *"

// fallbackDelay is used when a cadence has no future activation
const fallbackDelay = time.Minute

// ParseCadence accepts a standard five-field cron expression or a
// descriptor such as "@every 1m" or "@hourly".
func ParseCadence(spec string) (Cadence, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cadence %q: %w", spec, err)
	}
	return sched, nil
}

// MinuteCadence returns the minute-aligned default cadence
func MinuteCadence() Cadence {
	sched, err := cron.ParseStandard(DefaultCadenceSpec)
	if err != nil {
		panic(err)
	}
	return sched
}

// EveryCadence returns a fixed-delay cadence that is not aligned to
// wall-clock boundaries
func EveryCadence(d time.Duration) Cadence {
	return cron.Every(d)
}

// delayUntilNext converts a cadence activation into a timer delay
func delayUntilNext(c Cadence, now time.Time) time.Duration {
	next := c.Next(now)
	if next.IsZero() {
		return fallbackDelay
	}
	if d := next.Sub(now); d > 0 {
		return d
	}
	return fallbackDelay
}
