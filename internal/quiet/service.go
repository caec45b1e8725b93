package quiet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
	"github.com/shaitools891-svg/ME-Dictionary/internal/metrics"
	"github.com/shaitools891-svg/ME-Dictionary/internal/scheduler"
	"github.com/shaitools891-svg/ME-Dictionary/internal/settings"
)

// ErrClosed is returned after Close
var ErrClosed = errors.New("quiet service closed")

// ServiceConfig wires a Service
type ServiceConfig struct {
	Repo settings.Repo
	// Devices defaults to LogDevices
	Devices DeviceFactory
	// Publisher is optional
	Publisher *Publisher
	// WatcherOptions are applied to every watcher (clock, cadence, location)
	WatcherOptions []scheduler.Option
	Logger         logger.Logger
	Metrics        *metrics.Collector
}

// View is what the API reports for a user
type View struct {
	UserID         string               `json:"userId"`
	Status         scheduler.Status     `json:"status"`
	IndicatorShown bool                 `json:"indicatorShown"`
	Intervals      []scheduler.Interval `json:"intervals"`
}

type userWatch struct {
	watcher   *scheduler.Watcher
	presenter *Presenter
	subs      []*scheduler.Subscription
}

// Service owns one running watcher per user and keeps it in step with the
// user's stored settings.
type Service struct {
	repo      settings.Repo
	devices   DeviceFactory
	publisher *Publisher
	wopts     []scheduler.Option
	log       logger.Logger
	metrics   *metrics.Collector

	mu     sync.Mutex
	users  map[string]*userWatch
	closed bool
}

// NewService creates a service with no watchers
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		repo:      cfg.Repo,
		devices:   cfg.Devices,
		publisher: cfg.Publisher,
		wopts:     cfg.WatcherOptions,
		log:       logger.OrDefault(cfg.Logger).WithComponent(logger.ComponentQuiet),
		metrics:   cfg.Metrics,
		users:     make(map[string]*userWatch),
	}
	if s.devices == nil {
		s.devices = LogDevices(cfg.Logger)
	}
	if s.metrics == nil {
		s.metrics = metrics.Default()
	}
	return s
}

// load reads the user's settings, falling back to defaults on any error
func (s *Service) load(ctx context.Context, userID string) *settings.Settings {
	cfg, err := settings.GetOrDefaults(ctx, s.repo, userID)
	if err != nil {
		s.log.Warn("Failed to load settings, using defaults", "user_id", userID, "error", err)
	}
	return cfg
}

// Ensure starts a watcher for userID if none is running and returns its status
func (s *Service) Ensure(ctx context.Context, userID string) (scheduler.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	uw, err := s.ensureLocked(ctx, userID)
	if err != nil {
		return scheduler.Status{}, err
	}
	return uw.watcher.Status(), nil
}

func (s *Service) ensureLocked(ctx context.Context, userID string) (*userWatch, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if uw, ok := s.users[userID]; ok {
		return uw, nil
	}

	cfg := s.load(ctx, userID)
	userLog := s.log.WithFields(map[string]interface{}{"user_id": userID})

	opts := append([]scheduler.Option{
		scheduler.WithLogger(userLog),
		scheduler.WithMetrics(s.metrics),
	}, s.wopts...)
	opts = append(opts, scheduler.WithIntervals(cfg.Intervals()))

	uw := &userWatch{
		watcher:   scheduler.NewWatcher(opts...),
		presenter: NewPresenter(s.devices(userID), userLog),
	}
	uw.subs = append(uw.subs, uw.watcher.Subscribe(uw.presenter.Handle))
	if s.publisher != nil {
		uw.subs = append(uw.subs, uw.watcher.Subscribe(s.publisher.Subscriber(userID)))
	}
	uw.watcher.Start()

	s.users[userID] = uw
	s.log.Info("Quiet watcher attached", "user_id", userID, "enabled", cfg.Enabled)
	return uw, nil
}

// Apply persists patch and pushes the stored result to the user's watcher
func (s *Service) Apply(ctx context.Context, userID string, patch settings.Patch) (*settings.Settings, error) {
	updated, err := s.repo.Update(ctx, userID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}
	for _, invalid := range updated.Invalid() {
		s.log.Warn("Stored interval will never match", "user_id", userID, "error", invalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	uw, ok := s.users[userID]
	if !ok {
		// A fresh watcher reads the stored settings itself
		if _, err := s.ensureLocked(ctx, userID); err != nil {
			return nil, err
		}
		return updated, nil
	}
	uw.watcher.UpdateIntervals(updated.Intervals())
	return updated, nil
}

// Reload re-reads stored settings into a running watcher
func (s *Service) Reload(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	uw, ok := s.users[userID]
	if !ok {
		_, err := s.ensureLocked(ctx, userID)
		return err
	}
	uw.watcher.UpdateIntervals(s.load(ctx, userID).Intervals())
	return nil
}

// Status returns the user's status; ok is false when no watcher runs
func (s *Service) Status(userID string) (scheduler.Status, bool) {
	s.mu.Lock()
	uw, ok := s.users[userID]
	s.mu.Unlock()
	if !ok {
		return scheduler.Status{}, false
	}
	return uw.watcher.Status(), true
}

// View starts the user's watcher if needed and reports its state
func (s *Service) View(ctx context.Context, userID string) (View, error) {
	s.mu.Lock()
	uw, err := s.ensureLocked(ctx, userID)
	s.mu.Unlock()
	if err != nil {
		return View{}, err
	}

	shown, _ := uw.presenter.Indicator()
	return View{
		UserID:         userID,
		Status:         uw.watcher.Status(),
		IndicatorShown: shown,
		Intervals:      uw.watcher.Intervals(),
	}, nil
}

// Dismiss hides the user's indicator
func (s *Service) Dismiss(userID string) bool {
	s.mu.Lock()
	uw, ok := s.users[userID]
	s.mu.Unlock()
	if ok {
		uw.presenter.Dismiss()
	}
	return ok
}

// Users lists users with a running watcher
func (s *Service) Users() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Detach stops the user's watcher. Subscribers see the final inactive
// status before they are removed.
func (s *Service) Detach(userID string) bool {
	s.mu.Lock()
	uw, ok := s.users[userID]
	delete(s.users, userID)
	s.mu.Unlock()

	if !ok {
		return false
	}
	uw.stop()
	s.log.Info("Quiet watcher detached", "user_id", userID)
	return true
}

// Close stops every watcher. Later Ensure calls fail with ErrClosed.
func (s *Service) Close() {
	s.mu.Lock()
	users := s.users
	s.users = make(map[string]*userWatch)
	s.closed = true
	s.mu.Unlock()

	for _, uw := range users {
		uw.stop()
	}
	s.log.Info("Quiet service closed", "watchers", len(users))
}

func (uw *userWatch) stop() {
	uw.watcher.Stop()
	for _, sub := range uw.subs {
		sub.Unsubscribe()
	}
}
