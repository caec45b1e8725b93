package quiet

import (
	"sync"

	"github.com/shaitools891-svg/ME-Dictionary/internal/logger"
	"github.com/shaitools891-svg/ME-Dictionary/internal/scheduler"
)

// Presenter maps watcher status onto a Device. Entering quiet mode shows
// the indicator, vibrates and mutes. Leaving it unmutes, and if the
// indicator was showing, vibrates once more and hides it.
type Presenter struct {
	device Device
	log    logger.Logger

	mu       sync.Mutex
	shown    bool
	interval string
}

// NewPresenter creates a presenter driving device
func NewPresenter(device Device, log logger.Logger) *Presenter {
	return &Presenter{
		device: device,
		log:    logger.OrDefault(log).WithComponent(logger.ComponentQuiet),
	}
}

// Handle is the watcher subscriber
func (p *Presenter) Handle(s scheduler.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if s.Active && s.Interval != "" {
		p.shown = true
		p.interval = s.Interval
		p.check("vibrate", p.device.Vibrate(StartPattern))
		p.check("set silent", p.device.SetSilent(true))
		p.check("notify", p.device.Notify(s.Interval+" Prayer Time", "Device has been set to silent mode"))
		return
	}
	if s.Active {
		return
	}

	p.check("set silent", p.device.SetSilent(false))
	if p.shown {
		p.check("vibrate", p.device.Vibrate(EndPattern))
		p.check("notify", p.device.Notify("Prayer Time Ended", "Silent mode has been disabled"))
		p.shown = false
		p.interval = ""
	}
}

// Dismiss hides the indicator without leaving quiet mode
func (p *Presenter) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shown = false
	p.interval = ""
}

// Indicator reports whether the indicator is showing and for which interval
func (p *Presenter) Indicator() (bool, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown, p.interval
}

func (p *Presenter) check(op string, err error) {
	if err != nil {
		p.log.Warn("Device operation failed", "op", op, "error", err)
	}
}
