package scheduler

import (
	"sync"
	"time"

	"github.com/shaitools891-svg/ME-Dictionary/internal/errors"
	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
	"github.com/shaitools891-svg/ME-Dictionary/internal/metrics"
)

// Status is the watcher's answer: whether an interval is active and which one.
// Interval is empty when Active is false.
type Status struct {
	Active   bool   `json:"active"`
	Interval string `json:"interval,omitempty"`
}

func (s Status) String() string {
	if !s.Active {
		return "inactive"
	}
	return "active(" + s.Interval + ")"
}

// Option configures a Watcher
type Option func(*Watcher)

// WithClock sets the time source
func WithClock(c Clock) Option {
	return func(w *Watcher) { w.clock = c }
}

// WithCadence sets when rechecks are scheduled
func WithCadence(c Cadence) Option {
	return func(w *Watcher) { w.cadence = c }
}

// WithLocation sets the zone wall-clock times are read in
func WithLocation(loc *time.Location) Option {
	return func(w *Watcher) { w.loc = loc }
}

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(w *Watcher) { w.log = l }
}

// WithMetrics sets the metrics collector
func WithMetrics(c *metrics.Collector) Option {
	return func(w *Watcher) { w.metrics = c }
}

// WithIntervals replaces the initial default intervals
func WithIntervals(intervals []Interval) Option {
	return func(w *Watcher) { w.intervals = cloneIntervals(intervals) }
}

// Watcher rechecks a list of intervals on a cadence and notifies
// subscribers on every change of Status.
//
// UpdateIntervals, Start, Stop, Recheck and timer callbacks are serialized.
// Subscribers run synchronously on the goroutine that caused the change;
// they may call Status, Intervals and Subscribe, but must not call the
// mutating methods of the same Watcher.
type Watcher struct {
	clock   Clock
	cadence Cadence
	loc     *time.Location
	log     logger.Logger
	metrics *metrics.Collector

	// opMu serializes state transitions
	opMu    sync.Mutex
	running bool
	timer   Timer
	gen     uint64
	warned  map[int]bool

	// mu guards the fields read from outside opMu
	mu        sync.RWMutex
	intervals []Interval
	status    Status
	subs      []*subscriber
	nextSubID uint64
}

type subscriber struct {
	id uint64
	fn func(Status)
}

// NewWatcher creates a stopped watcher holding DefaultIntervals
func NewWatcher(opts ...Option) *Watcher {
	w := &Watcher{
		clock:     RealClock(),
		cadence:   MinuteCadence(),
		loc:       time.Local,
		intervals: DefaultIntervals(),
		warned:    map[int]bool{},
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = logger.OrDefault(w.log).WithComponent(logger.ComponentScheduler)
	if w.metrics == nil {
		w.metrics = metrics.Default()
	}
	return w
}

// Status returns the current status
func (w *Watcher) Status() Status {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.status
}

// Intervals returns a copy of the configured intervals
func (w *Watcher) Intervals() []Interval {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return cloneIntervals(w.intervals)
}

// Running reports whether the periodic timer is armed
func (w *Watcher) Running() bool {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	return w.running
}

// UpdateIntervals replaces the whole configuration, rechecks immediately
// and re-arms the timer if running.
func (w *Watcher) UpdateIntervals(intervals []Interval) {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.mu.Lock()
	w.intervals = cloneIntervals(intervals)
	w.mu.Unlock()
	w.warned = map[int]bool{}

	w.log.Debug("Intervals updated", "count", len(intervals))
	w.recheckLocked()
	if w.running {
		w.armLocked()
	}
}

// Start arms the periodic timer and rechecks once. Calling Start while
// running replaces the pending timer; at most one is ever live.
func (w *Watcher) Start() {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	if w.running {
		w.log.Debug("Watcher already running, re-arming")
	} else {
		w.running = true
		w.metrics.WatcherStarted()
		w.log.Info("Watcher started")
	}
	w.recheckLocked()
	w.armLocked()
}

// Stop cancels the timer, forces the inactive status and notifies every
// subscriber, whether or not the status was already inactive. Safe to call
// before Start and repeatedly.
func (w *Watcher) Stop() {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	w.disarmLocked()
	if w.running {
		w.running = false
		w.metrics.WatcherStopped()
		w.log.Info("Watcher stopped")
	}

	w.mu.Lock()
	w.status = Status{}
	w.mu.Unlock()
	w.notify(Status{})
}

// Recheck evaluates the intervals against the clock now
func (w *Watcher) Recheck() Status {
	w.opMu.Lock()
	defer w.opMu.Unlock()
	return w.recheckLocked()
}

// Subscribe registers fn for future changes. The current status is not
// replayed. Subscribers are called in registration order.
func (w *Watcher) Subscribe(fn func(Status)) *Subscription {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.nextSubID++
	id := w.nextSubID
	// Copy on write so a notification in flight keeps its own slice
	subs := make([]*subscriber, len(w.subs), len(w.subs)+1)
	copy(subs, w.subs)
	w.subs = append(subs, &subscriber{id: id, fn: fn})

	return &Subscription{w: w, id: id}
}

// OnStatusChange is Subscribe with the status split into its fields
func (w *Watcher) OnStatusChange(fn func(active bool, interval string)) *Subscription {
	return w.Subscribe(func(s Status) { fn(s.Active, s.Interval) })
}

func (w *Watcher) unsubscribe(id uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()

	subs := make([]*subscriber, 0, len(w.subs))
	for _, s := range w.subs {
		if s.id != id {
			subs = append(subs, s)
		}
	}
	w.subs = subs
}

// Subscription detaches a subscriber
type Subscription struct {
	w    *Watcher
	id   uint64
	once sync.Once
}

// Unsubscribe stops future deliveries. It is idempotent.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.w.unsubscribe(s.id) })
}

func (w *Watcher) recheckLocked() Status {
	w.metrics.RecordRecheck()

	w.mu.RLock()
	intervals := w.intervals
	prev := w.status
	w.mu.RUnlock()

	next := w.match(intervals, MinuteOfDay(w.clock.Now().In(w.loc)))
	if next == prev {
		return prev
	}

	w.mu.Lock()
	w.status = next
	w.mu.Unlock()

	w.metrics.RecordTransition(next.Active)
	if next.Active {
		w.log.Info("Quiet period started", "interval", next.Interval)
	} else {
		w.log.Info("Quiet period ended", "interval", prev.Interval)
	}
	w.notify(next)
	return next
}

// match returns the first enabled interval containing minute
func (w *Watcher) match(intervals []Interval, minute int) Status {
	for i, iv := range intervals {
		if !iv.Enabled {
			continue
		}

		var hit bool
		var parseErr error
		if err := errors.Safely(func() { hit, parseErr = iv.Contains(minute) }); err != nil {
			w.metrics.RecordMatchPanic()
			w.log.Error("Interval match panicked", "interval", iv.Name, "error", err)
			continue
		}
		if parseErr != nil {
			w.metrics.RecordMalformedInterval()
			// Warn once per configuration, the same data fails every tick
			if !w.warned[i] {
				w.warned[i] = true
				w.log.Warn("Skipping malformed interval", "interval", iv.Name, "error", parseErr)
			} else {
				w.log.Debug("Skipping malformed interval", "interval", iv.Name)
			}
			continue
		}
		if hit {
			return Status{Active: true, Interval: iv.Name}
		}
	}
	return Status{}
}

func (w *Watcher) notify(s Status) {
	w.mu.RLock()
	subs := w.subs
	w.mu.RUnlock()

	for _, sub := range subs {
		w.metrics.RecordNotification()
		fn := sub.fn
		if err := errors.Safely(func() { fn(s) }); err != nil {
			w.metrics.RecordSubscriberFailure()
			fields := []interface{}{"status", s.String(), "error", err}
			if pe, ok := err.(*errors.PanicError); ok {
				fields = append(fields, "stack", pe.Stacktrace)
			}
			w.log.Error("Subscriber panicked", fields...)
		}
	}
}

// armLocked replaces any pending timer with one for the next cadence tick
func (w *Watcher) armLocked() {
	w.disarmLocked()

	gen := w.gen
	delay := delayUntilNext(w.cadence, w.clock.Now().In(w.loc))
	w.timer = w.clock.AfterFunc(delay, func() { w.fire(gen) })
}

func (w *Watcher) disarmLocked() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	// Invalidates a callback that already left the timer but has not
	// acquired opMu yet
	w.gen++
}

func (w *Watcher) fire(gen uint64) {
	w.opMu.Lock()
	defer w.opMu.Unlock()

	if !w.running || gen != w.gen {
		return
	}
	w.timer = nil
	w.recheckLocked()
	w.armLocked()
}
