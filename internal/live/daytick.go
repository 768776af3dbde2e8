package live

import (
	"time"

	"github.com/robfig/cron/v3"
)

// midnightSpec fires at 00:00:00 every day (seconds-enabled cron format).
const midnightSpec = "0 0 0 * * *"

// DayTicker signals at local midnight so date-relative views ("today",
// "before today") re-render even when no record changed.
type DayTicker struct {
	cron    *cron.Cron
	signals chan struct{}
}

func NewDayTicker(loc *time.Location) (*DayTicker, error) {
	if loc == nil {
		loc = time.Local
	}
	t := &DayTicker{
		cron:    cron.New(cron.WithLocation(loc), cron.WithSeconds()),
		signals: make(chan struct{}, 1),
	}
	if _, err := t.cron.AddFunc(midnightSpec, t.fire); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *DayTicker) fire() {
	select {
	case t.signals <- struct{}{}:
	default:
	}
}

func (t *DayTicker) Signals() <-chan struct{} {
	return t.signals
}

// Next reports when the ticker fires next; zero before Start.
func (t *DayTicker) Next() time.Time {
	entries := t.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (t *DayTicker) Start() {
	t.cron.Start()
}

func (t *DayTicker) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
}
