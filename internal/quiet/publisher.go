package quiet

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
	"github.com/shaitools891-svg/ME-Dictionary/internal/metrics"
	"github.com/shaitools891-svg/ME-Dictionary/internal/scheduler"
	"github.com/shaitools891-svg/ME-Dictionary/internal/serialization"
)

// ErrNoStatus is returned by Latest when nothing was published for a user
var ErrNoStatus = errors.New("no published status")

const (
	defaultPublishTimeout = 5 * time.Second
	defaultQueueSize      = 16
	lockRetryDelay        = 20 * time.Millisecond
)

func statusKey(userID string) string     { return "medict:quiet:" + userID }
func eventsChannel(userID string) string { return "medict:quiet:events:" + userID }
func lockKey(userID string) string       { return "medict:lock:quiet:" + userID }

// stateField is the compact form of a status stored next to the event
func stateField(s scheduler.Status) string {
	return strconv.FormatBool(s.Active) + ":" + s.Interval
}

// PublisherConfig configures a Publisher
type PublisherConfig struct {
	// Source identifies this replica in events
	Source string
	// LockTTL bounds how long a user's publish lock survives a crashed holder
	LockTTL time.Duration
	// Timeout bounds each queued publish; 5s when zero
	Timeout time.Duration
	// QueueSize is the per-user backlog of unpublished transitions; 16 when zero
	QueueSize int
	// Serializer encodes events; protobuf when nil
	Serializer *serialization.Serializer
	// Now defaults to time.Now
	Now func() time.Time
}

// Publisher stores each user's latest status in Redis and publishes every
// change on a per-user channel. Replicas watching the same user serialize
// on a per-user lock and skip a status that is already stored, so each
// change is published once.
type Publisher struct {
	client    *redis.Client
	ser       *serialization.Serializer
	source    string
	lockTTL   time.Duration
	timeout   time.Duration
	queueSize int
	now       func() time.Time
	log       logger.Logger
	metrics   *metrics.Collector

	mu     sync.Mutex
	queues map[string]chan scheduler.Status
	closed bool
	wg     sync.WaitGroup
}

// NewPublisher creates a publisher
func NewPublisher(client *redis.Client, cfg PublisherConfig, log logger.Logger, m *metrics.Collector) *Publisher {
	p := &Publisher{
		client:    client,
		ser:       cfg.Serializer,
		source:    cfg.Source,
		lockTTL:   cfg.LockTTL,
		timeout:   cfg.Timeout,
		queueSize: cfg.QueueSize,
		now:       cfg.Now,
		log:       logger.OrDefault(log).WithComponent(logger.ComponentRedis),
		metrics:   m,
		queues:    make(map[string]chan scheduler.Status),
	}
	if p.ser == nil {
		p.ser = serialization.NewProtobufSerializer()
	}
	if p.lockTTL <= 0 {
		p.lockTTL = 30 * time.Second
	}
	if p.timeout <= 0 {
		p.timeout = defaultPublishTimeout
	}
	if p.queueSize <= 0 {
		p.queueSize = defaultQueueSize
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.metrics == nil {
		p.metrics = metrics.Default()
	}
	return p
}

// claim takes the user's publish lock, waiting while another replica holds it
func (p *Publisher) claim(ctx context.Context, userID string) (*scheduler.Lock, error) {
	for {
		lock, err := scheduler.TryLock(ctx, p.client, lockKey(userID), p.lockTTL)
		if !errors.Is(err, scheduler.ErrLockHeld) {
			return lock, err
		}

		t := time.NewTimer(lockRetryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, fmt.Errorf("waiting for publish lock: %w", ctx.Err())
		case <-t.C:
		}
	}
}

// Publish records s for userID. It returns published=false when s is
// already the stored status, e.g. because another replica published it.
func (p *Publisher) Publish(ctx context.Context, userID string, s scheduler.Status) (bool, error) {
	lock, err := p.claim(ctx, userID)
	if err != nil {
		return false, err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, scheduler.ErrLockLost) {
			p.log.Warn("Failed to release publish lock", "user_id", userID, "error", err)
		}
	}()

	current, err := p.client.HGet(ctx, statusKey(userID), "state").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("failed to read status: %w", err)
	}
	if current == stateField(s) {
		p.log.Debug("Status already published", "user_id", userID, "status", s.String())
		return false, nil
	}

	now := p.now()
	event := serialization.StatusEvent{
		ID:        uuid.NewString(),
		UserID:    userID,
		Active:    s.Active,
		Interval:  s.Interval,
		ChangedAt: now,
		Source:    p.source,
	}
	payload, err := p.ser.EncodeStatusEvent(event)
	if err != nil {
		return false, fmt.Errorf("failed to encode status event: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.HSet(ctx, statusKey(userID), map[string]interface{}{
		"state":      stateField(s),
		"active":     strconv.FormatBool(s.Active),
		"interval":   s.Interval,
		"changed_at": now.UTC().Format(time.RFC3339),
		"event_id":   event.ID,
		"payload":    payload,
	})
	pipe.Publish(ctx, eventsChannel(userID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to publish status: %w", err)
	}

	p.log.Debug("Status published", "user_id", userID, "status", s.String(), "event_id", event.ID)
	return true, nil
}

// Latest returns the last event published for userID
func (p *Publisher) Latest(ctx context.Context, userID string) (serialization.StatusEvent, error) {
	raw, err := p.client.HGet(ctx, statusKey(userID), "payload").Bytes()
	if errors.Is(err, redis.Nil) {
		return serialization.StatusEvent{}, ErrNoStatus
	}
	if err != nil {
		return serialization.StatusEvent{}, fmt.Errorf("failed to read status: %w", err)
	}
	return p.ser.DecodeStatusEvent(raw)
}

// Subscribe listens for userID's events until ctx is done
func (p *Publisher) Subscribe(ctx context.Context, userID string) (<-chan serialization.StatusEvent, error) {
	sub := p.client.Subscribe(ctx, eventsChannel(userID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	out := make(chan serialization.StatusEvent)
	go func() {
		defer close(out)
		defer sub.Close()
		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				event, err := p.ser.DecodeStatusEvent([]byte(msg.Payload))
				if err != nil {
					p.log.Warn("Dropping undecodable status event", "user_id", userID, "error", err)
					continue
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Subscriber returns a watcher subscriber that queues userID's transitions
// for a background publish. It never blocks: when the backlog is full the
// oldest queued transition is dropped and counted.
func (p *Publisher) Subscriber(userID string) func(scheduler.Status) {
	return func(s scheduler.Status) { p.enqueue(userID, s) }
}

func (p *Publisher) enqueue(userID string, s scheduler.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		p.metrics.RecordPublishDropped()
		p.log.Warn("Publisher closed, dropping transition", "user_id", userID, "status", s.String())
		return
	}
	q, ok := p.queues[userID]
	if !ok {
		q = make(chan scheduler.Status, p.queueSize)
		p.queues[userID] = q
		p.wg.Add(1)
		go p.drain(userID, q)
	}

	for {
		select {
		case q <- s:
			return
		default:
		}
		select {
		case old := <-q:
			p.metrics.RecordPublishDropped()
			p.log.Warn("Publish queue full, dropping oldest transition", "user_id", userID, "status", old.String())
		default:
		}
	}
}

// drain publishes userID's queued transitions in order
func (p *Publisher) drain(userID string, q <-chan scheduler.Status) {
	defer p.wg.Done()

	for s := range q {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		_, err := p.Publish(ctx, userID, s)
		cancel()
		if err != nil {
			p.metrics.RecordPublishFailure()
			p.log.Error("Failed to publish status", "user_id", userID, "status", s.String(), "error", err)
		}
	}
}

// Close stops accepting transitions and waits until every queued one has
// been published or has failed.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	for _, q := range p.queues {
		close(q)
	}
	p.mu.Unlock()

	p.wg.Wait()
}
