// Package schedule computes the lookahead windows used to select reminders
// that are due for a notification stage.
//
// A stage fires when the event falls inside (now, now+lead+margin]. The
// margin must be at least the poll interval so that an event never slips
// between two consecutive polls.
package schedule

import (
	"fmt"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/model"
)

const (
	DefaultMargin    = 5 * time.Minute
	DefaultRetention = 7 * 24 * time.Hour
)

type Policy struct {
	Margin    time.Duration
	Retention time.Duration
}

func DefaultPolicy() Policy {
	return Policy{Margin: DefaultMargin, Retention: DefaultRetention}
}

// Validate checks the policy against the poll interval it will run under.
func (p Policy) Validate(pollInterval time.Duration) error {
	if p.Margin < pollInterval {
		return fmt.Errorf("lookahead margin %s is shorter than poll interval %s", p.Margin, pollInterval)
	}
	if p.Retention <= 0 {
		return fmt.Errorf("retention must be > 0, got %s", p.Retention)
	}
	return nil
}

// Lookahead is the span past now that is scanned for the stage.
func (p Policy) Lookahead(s model.Stage) time.Duration {
	return s.LeadTime() + p.Margin
}

// Window returns the half-open interval (from, to] for the stage at now.
func (p Policy) Window(s model.Stage, now time.Time) (from, to time.Time) {
	return now, now.Add(p.Lookahead(s))
}

// Due reports whether r would be selected for stage s at now.
func (p Policy) Due(r model.Reminder, s model.Stage, now time.Time) bool {
	if r.Sent(s) {
		return false
	}
	from, to := p.Window(s, now)
	return r.EventTime.After(from) && !r.EventTime.After(to)
}

// PurgeBefore is the cutoff below which records are deleted.
func (p Policy) PurgeBefore(now time.Time) time.Time {
	return now.Add(-p.Retention)
}

type StageTime struct {
	Stage model.Stage
	At    time.Time
}

// Upcoming lists the stage fire times for an event that are still ahead of now.
func Upcoming(eventTime, now time.Time) []StageTime {
	var out []StageTime
	for _, s := range model.Stages {
		at := eventTime.Add(-s.LeadTime())
		if at.After(now) {
			out = append(out, StageTime{Stage: s, At: at})
		}
	}
	return out
}
