// Package settings stores each user's quiet-period configuration: a master
// switch plus an enabled flag and start/end time for every daily prayer.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shaitools891-svg/ME-Dictionary/internal/scheduler"
)

var (
	// ErrNotFound is returned when a user has no stored settings
	ErrNotFound = errors.New("settings not found")

	// ErrUnknownPrayer is returned by Apply for a key outside PrayerKeys
	ErrUnknownPrayer = errors.New("unknown prayer")
)

// PrayerKeys lists the prayers in display and match order
var PrayerKeys = []string{"fajr", "dhuhr", "asr", "maghrib", "isha"}

var prayerNames = map[string]string{
	"fajr":    "Fajr",
	"dhuhr":   "Dhuhr",
	"asr":     "Asr",
	"maghrib": "Maghrib",
	"isha":    "Isha",
}

// Prayer is one configurable window
type Prayer struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

// Settings is the stored configuration for one user
type Settings struct {
	UserID  string   `json:"userId"`
	Enabled bool     `json:"enabled"`
	Prayers []Prayer `json:"prayers"`
}

// Defaults returns every prayer present and disabled, with default times
func Defaults(userID string) *Settings {
	s := &Settings{UserID: userID, Prayers: make([]Prayer, 0, len(PrayerKeys))}
	byName := make(map[string]scheduler.Interval)
	for _, iv := range scheduler.DefaultIntervals() {
		byName[iv.Name] = iv
	}
	for _, key := range PrayerKeys {
		iv := byName[prayerNames[key]]
		s.Prayers = append(s.Prayers, Prayer{Key: key, Name: iv.Name, Start: iv.Start, End: iv.End})
	}
	return s
}

// Prayer returns the entry for key, or nil
func (s *Settings) Prayer(key string) *Prayer {
	for i := range s.Prayers {
		if s.Prayers[i].Key == key {
			return &s.Prayers[i]
		}
	}
	return nil
}

// Clone returns a deep copy
func (s *Settings) Clone() *Settings {
	c := *s
	c.Prayers = append([]Prayer(nil), s.Prayers...)
	return &c
}

// Intervals converts the settings into watcher intervals. With the master
// switch off every interval is disabled.
func (s *Settings) Intervals() []scheduler.Interval {
	out := make([]scheduler.Interval, 0, len(s.Prayers))
	for _, p := range s.Prayers {
		out = append(out, scheduler.Interval{
			Name:    p.Name,
			Start:   p.Start,
			End:     p.End,
			Enabled: s.Enabled && p.Enabled,
		})
	}
	return out
}

// PrayerPatch holds optional changes to one prayer
type PrayerPatch struct {
	Enabled *bool   `json:"enabled,omitempty"`
	Start   *string `json:"start,omitempty"`
	End     *string `json:"end,omitempty"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Enabled *bool                  `json:"enabled,omitempty"`
	Prayers map[string]PrayerPatch `json:"prayers,omitempty"`
}

// Empty reports whether the patch changes nothing
func (p Patch) Empty() bool {
	return p.Enabled == nil && len(p.Prayers) == 0
}

// UnmarshalJSON accepts the nested form {"enabled":..,"prayers":{"fajr":{..}}}
// as well as the flat column form {"fajrEnabled":..,"fajrStart":..}.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Patch{}
	for field, value := range raw {
		switch {
		case field == "enabled":
			if err := json.Unmarshal(value, &p.Enabled); err != nil {
				return fmt.Errorf("enabled: %w", err)
			}
		case field == "prayers":
			var nested map[string]PrayerPatch
			if err := json.Unmarshal(value, &nested); err != nil {
				return fmt.Errorf("prayers: %w", err)
			}
			for key, pp := range nested {
				p.mergePrayer(strings.ToLower(key), pp)
			}
		default:
			key, attr, ok := splitFlatField(field)
			if !ok {
				// Unknown columns such as id/userId are ignored
				continue
			}
			var pp PrayerPatch
			var err error
			switch attr {
			case "Enabled":
				err = json.Unmarshal(value, &pp.Enabled)
			case "Start":
				err = json.Unmarshal(value, &pp.Start)
			case "End":
				err = json.Unmarshal(value, &pp.End)
			}
			if err != nil {
				return fmt.Errorf("%s: %w", field, err)
			}
			p.mergePrayer(key, pp)
		}
	}
	return nil
}

func (p *Patch) mergePrayer(key string, pp PrayerPatch) {
	if p.Prayers == nil {
		p.Prayers = map[string]PrayerPatch{}
	}
	cur := p.Prayers[key]
	if pp.Enabled != nil {
		cur.Enabled = pp.Enabled
	}
	if pp.Start != nil {
		cur.Start = pp.Start
	}
	if pp.End != nil {
		cur.End = pp.End
	}
	p.Prayers[key] = cur
}

// splitFlatField turns "maghribStart" into ("maghrib", "Start")
func splitFlatField(field string) (string, string, bool) {
	for _, key := range PrayerKeys {
		if !strings.HasPrefix(field, key) {
			continue
		}
		switch attr := strings.TrimPrefix(field, key); attr {
		case "Enabled", "Start", "End":
			return key, attr, true
		}
	}
	return "", "", false
}

// Apply merges the patch in place. Time strings are stored as given; the
// watcher skips windows whose times do not parse.
func (s *Settings) Apply(p Patch) error {
	for key := range p.Prayers {
		if s.Prayer(key) == nil {
			return fmt.Errorf("%w: %q", ErrUnknownPrayer, key)
		}
	}

	if p.Enabled != nil {
		s.Enabled = *p.Enabled
	}
	for key, pp := range p.Prayers {
		prayer := s.Prayer(key)
		if pp.Enabled != nil {
			prayer.Enabled = *pp.Enabled
		}
		if pp.Start != nil {
			prayer.Start = strings.TrimSpace(*pp.Start)
		}
		if pp.End != nil {
			prayer.End = strings.TrimSpace(*pp.End)
		}
	}
	return nil
}

// Invalid returns the validation error of every prayer whose times do not parse
func (s *Settings) Invalid() []error {
	var errs []error
	for _, iv := range s.Intervals() {
		if err := iv.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
