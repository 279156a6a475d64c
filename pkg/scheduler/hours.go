package scheduler

import (
	"fmt"
	"time"

	"github.com/nitroxinteligence/sdr-ia-solarprime-sub004/pkg/config"
)

// businessHours is the send window: Monday to Friday between start and end
// in the configured timezone.
type businessHours struct {
	startHour, startMin int
	endHour, endMin     int
	loc                 *time.Location
}

func newBusinessHours(cfg *config.FollowUpConfig) (*businessHours, error) {
	loc, err := time.LoadLocation(cfg.BusinessTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.BusinessTZ, err)
	}
	h := &businessHours{loc: loc}
	if h.startHour, h.startMin, err = parseClock(cfg.BusinessHoursStart); err != nil {
		return nil, err
	}
	if h.endHour, h.endMin, err = parseClock(cfg.BusinessHoursEnd); err != nil {
		return nil, err
	}
	return h, nil
}

func parseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock time %q: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

func (h *businessHours) contains(t time.Time) bool {
	local := t.In(h.loc)
	if wd := local.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= h.startHour*60+h.startMin && minutes < h.endHour*60+h.endMin
}

// nextWindowStart returns the next business-day opening at or after t.
func (h *businessHours) nextWindowStart(t time.Time) time.Time {
	local := t.In(h.loc)
	for day := 0; day < 8; day++ {
		candidate := time.Date(local.Year(), local.Month(), local.Day()+day,
			h.startHour, h.startMin, 0, 0, h.loc)
		wd := candidate.Weekday()
		if wd == time.Saturday || wd == time.Sunday {
			continue
		}
		if candidate.After(local) {
			return candidate
		}
	}
	// Unreachable with a sane config; fall back to tomorrow's opening.
	return time.Date(local.Year(), local.Month(), local.Day()+1,
		h.startHour, h.startMin, 0, 0, h.loc)
}
