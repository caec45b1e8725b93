// Package quiet runs one quiet-period watcher per user and turns its status
// changes into device effects and published events.
package quiet

import (
	"sync"
	"time"

	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
)

// Vibration patterns alternate on/off durations
var (
	StartPattern = []time.Duration{200 * time.Millisecond, 100 * time.Millisecond, 200 * time.Millisecond}
	EndPattern   = []time.Duration{100 * time.Millisecond, 50 * time.Millisecond, 100 * time.Millisecond}
)

// Device is the handset a user's quiet mode acts on
type Device interface {
	Vibrate(pattern []time.Duration) error
	SetSilent(on bool) error
	Notify(title, body string) error
}

// DeviceFactory returns the device for a user
type DeviceFactory func(userID string) Device

// LogDevice records device effects in the log. It is the server-side
// stand-in for a handset.
type LogDevice struct {
	log    logger.Logger
	mu     sync.Mutex
	silent bool
}

// NewLogDevice creates a LogDevice for userID
func NewLogDevice(log logger.Logger, userID string) *LogDevice {
	return &LogDevice{
		log: logger.OrDefault(log).WithComponent(logger.ComponentQuiet).
			WithFields(map[string]interface{}{"user_id": userID}),
	}
}

// LogDevices returns a DeviceFactory producing LogDevices
func LogDevices(log logger.Logger) DeviceFactory {
	return func(userID string) Device { return NewLogDevice(log, userID) }
}

func (d *LogDevice) Vibrate(pattern []time.Duration) error {
	ms := make([]int64, len(pattern))
	for i, p := range pattern {
		ms[i] = p.Milliseconds()
	}
	d.log.Info("Vibrate", "pattern_ms", ms)
	return nil
}

func (d *LogDevice) SetSilent(on bool) error {
	d.mu.Lock()
	d.silent = on
	d.mu.Unlock()
	d.log.Info("Silent mode", "enabled", on)
	return nil
}

func (d *LogDevice) Notify(title, body string) error {
	d.log.Info("Notification", "title", title, "body", body)
	return nil
}

// Silent reports the last value passed to SetSilent
func (d *LogDevice) Silent() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.silent
}
