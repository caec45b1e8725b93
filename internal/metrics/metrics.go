package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector is the global metrics collector instance
var (
	globalCollector *Collector
	once            sync.Once
)

// Collector tracks quiet-period scheduler and HTTP metrics in memory
type Collector struct {
	// Counters (atomic for thread-safety)
	rechecks           atomic.Int64
	activations        atomic.Int64
	deactivations      atomic.Int64
	notifications      atomic.Int64
	subscriberFailures atomic.Int64
	malformedIntervals atomic.Int64
	matchPanics        atomic.Int64
	publishFailures    atomic.Int64
	publishDropped     atomic.Int64
	activeWatchers     atomic.Int64

	// HTTP tracking by route (protected by mutex)
	mu              sync.RWMutex
	requestsByRoute map[string]int64
	responsesByCode map[int]int64
	httpRequests    int64
	httpErrors      int64
	totalDuration   time.Duration
	startTime       time.Time
}

// Metrics represents a snapshot of current system metrics
type Metrics struct {
	Rechecks           int64            `json:"rechecks"`
	Activations        int64            `json:"activations"`
	Deactivations      int64            `json:"deactivations"`
	Notifications      int64            `json:"notifications"`
	SubscriberFailures int64            `json:"subscriber_failures"`
	MalformedIntervals int64            `json:"malformed_intervals"`
	MatchPanics        int64            `json:"match_panics"`
	PublishFailures    int64            `json:"publish_failures"`
	PublishDropped     int64            `json:"publish_dropped"`
	ActiveWatchers     int64            `json:"active_watchers"`
	HTTPRequests       int64            `json:"http_requests"`
	HTTPErrors         int64            `json:"http_errors"`
	RequestsByRoute    map[string]int64 `json:"requests_by_route"`
	ResponsesByCode    map[int]int64    `json:"responses_by_code"`
	AvgRequestDuration time.Duration    `json:"avg_request_duration"`
	ErrorRate          float64          `json:"error_rate"`
	Uptime             time.Duration    `json:"uptime"`
}

// Default returns the global metrics collector instance
func Default() *Collector {
	once.Do(func() {
		globalCollector = NewCollector()
	})
	return globalCollector
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		requestsByRoute: make(map[string]int64),
		responsesByCode: make(map[int]int64),
		startTime:       time.Now(),
	}
}

// RecordRecheck counts one evaluation of a watcher's intervals
func (c *Collector) RecordRecheck() {
	c.rechecks.Add(1)
}

// RecordTransition counts a status change in either direction
func (c *Collector) RecordTransition(active bool) {
	if active {
		c.activations.Add(1)
		return
	}
	c.deactivations.Add(1)
}

// RecordNotification counts one subscriber invocation
func (c *Collector) RecordNotification() {
	c.notifications.Add(1)
}

// RecordSubscriberFailure counts a subscriber that panicked
func (c *Collector) RecordSubscriberFailure() {
	c.subscriberFailures.Add(1)
}

// RecordMalformedInterval counts an interval skipped for an unparsable time
func (c *Collector) RecordMalformedInterval() {
	c.malformedIntervals.Add(1)
}

// RecordMatchPanic counts a recovered panic in interval matching
func (c *Collector) RecordMatchPanic() {
	c.matchPanics.Add(1)
}

// RecordPublishFailure counts a status event that could not be published
func (c *Collector) RecordPublishFailure() {
	c.publishFailures.Add(1)
}

// RecordPublishDropped counts a transition discarded from a full publish queue
func (c *Collector) RecordPublishDropped() {
	c.publishDropped.Add(1)
}

// WatcherStarted increments the running watcher gauge
func (c *Collector) WatcherStarted() {
	c.activeWatchers.Add(1)
}

// WatcherStopped decrements the running watcher gauge
func (c *Collector) WatcherStopped() {
	c.activeWatchers.Add(-1)
}

// RecordRequest records one served HTTP request
func (c *Collector) RecordRequest(route string, status int, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.httpRequests++
	c.requestsByRoute[route]++
	c.responsesByCode[status]++
	c.totalDuration += duration
	if status >= 500 {
		c.httpErrors++
	}
}

// GetMetrics returns a snapshot of current metrics
func (c *Collector) GetMetrics() Metrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	requestsByRoute := make(map[string]int64, len(c.requestsByRoute))
	for k, v := range c.requestsByRoute {
		requestsByRoute[k] = v
	}
	responsesByCode := make(map[int]int64, len(c.responsesByCode))
	for k, v := range c.responsesByCode {
		responsesByCode[k] = v
	}

	var avgDuration time.Duration
	var errorRate float64
	if c.httpRequests > 0 {
		avgDuration = c.totalDuration / time.Duration(c.httpRequests)
		errorRate = float64(c.httpErrors) / float64(c.httpRequests) * 100
	}

	return Metrics{
		Rechecks:           c.rechecks.Load(),
		Activations:        c.activations.Load(),
		Deactivations:      c.deactivations.Load(),
		Notifications:      c.notifications.Load(),
		SubscriberFailures: c.subscriberFailures.Load(),
		MalformedIntervals: c.malformedIntervals.Load(),
		MatchPanics:        c.matchPanics.Load(),
		PublishFailures:    c.publishFailures.Load(),
		PublishDropped:     c.publishDropped.Load(),
		ActiveWatchers:     c.activeWatchers.Load(),
		HTTPRequests:       c.httpRequests,
		HTTPErrors:         c.httpErrors,
		RequestsByRoute:    requestsByRoute,
		ResponsesByCode:    responsesByCode,
		AvgRequestDuration: avgDuration,
		ErrorRate:          errorRate,
		Uptime:             time.Since(c.startTime),
	}
}

// Reset clears all metrics (useful for testing)
func (c *Collector) Reset() {
	c.rechecks.Store(0)
	c.activations.Store(0)
	c.deactivations.Store(0)
	c.notifications.Store(0)
	c.subscriberFailures.Store(0)
	c.malformedIntervals.Store(0)
	c.matchPanics.Store(0)
	c.publishFailures.Store(0)
	c.publishDropped.Store(0)
	c.activeWatchers.Store(0)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.requestsByRoute = make(map[string]int64)
	c.responsesByCode = make(map[int]int64)
	c.httpRequests = 0
	c.httpErrors = 0
	c.totalDuration = 0
	c.startTime = time.Now()
}

// GetMetrics returns metrics from the global collector
func GetMetrics() Metrics {
	return Default().GetMetrics()
}

// ResetMetrics resets the global collector
func ResetMetrics() {
	Default().Reset()
}
