package core

import (
	"fmt"
	"time"
)

// DefaultTimezone is the zone the ledger derives "this month" in when none is
// configured.
const DefaultTimezone = "America/Campo_Grande"

// Clock supplies the current month to callers that need a default listing
// month. Nothing in the confirmation engine reads it.
type Clock interface {
	CurrentMonth() Month
}

// ZoneClock derives the current month in a fixed location.
type ZoneClock struct {
	Location *time.Location
	Now      func() time.Time
}

// NewZoneClock loads the named IANA zone. An empty name selects
// DefaultTimezone.
func NewZoneClock(name string) (*ZoneClock, error) {
	if name == "" {
		name = DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return &ZoneClock{Location: loc, Now: time.Now}, nil
}

func (c *ZoneClock) CurrentMonth() Month {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return MonthIn(now(), c.Location)
}

// FixedClock always reports the same month.
type FixedClock Month

func (c FixedClock) CurrentMonth() Month { return Month(c) }
