package timeparse

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	"github.com/LeventeLantos/reminderbot/internal/apperr"
)

// Parser extracts an absolute time from free text. ok is false when nothing
// recognisable was found.
type Parser interface {
	Parse(text string, ref time.Time) (t time.Time, ok bool)
}

// clockOnly matches inputs that name a time of day and nothing else, e.g.
// "9am", "at 14:30", "3 PM".
var clockOnly = regexp.MustCompile(`(?i)^\s*(?:at\s+)?\d{1,2}(?::\d{2})?\s*(?:[ap]\.?m\.?)?\s*$`)

type Resolver struct {
	parser Parser
}

func NewResolver(p Parser) *Resolver {
	return &Resolver{parser: p}
}

// Resolve turns text into an absolute time strictly after now.
func (r *Resolver) Resolve(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, apperr.ErrUnparseableTime
	}

	t, ok := r.parser.Parse(text, now)
	if !ok {
		return time.Time{}, apperr.ErrUnparseableTime
	}

	// A bare clock time that already passed today means the next occurrence.
	if !t.After(now) && clockOnly.MatchString(text) && now.Sub(t) < 24*time.Hour {
		t = t.AddDate(0, 0, 1)
	}

	if !t.After(now) {
		return time.Time{}, fmt.Errorf("%w (got %s)", apperr.ErrPastTime, t.Format(time.DateTime))
	}
	return t, nil
}

// FuzzyParser tries strict absolute layouts first and falls back to English
// natural-language rules ("tomorrow 9am", "next monday 10:00", "in 2 hours").
type FuzzyParser struct {
	loc *time.Location
	w   *when.Parser
}

func NewFuzzyParser(loc *time.Location) *FuzzyParser {
	if loc == nil {
		loc = time.Local
	}
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &FuzzyParser{loc: loc, w: w}
}

func (p *FuzzyParser) Parse(text string, ref time.Time) (time.Time, bool) {
	ref = ref.In(p.loc)

	if t, err := dateparse.ParseIn(text, p.loc); err == nil {
		return withYear(t, ref), true
	}

	res, err := p.w.Parse(text, ref)
	if err != nil || res == nil {
		return time.Time{}, false
	}
	return res.Time.In(p.loc), true
}

// withYear fills in the year for dates written without one ("July 20 3PM"),
// choosing the next occurrence after ref.
func withYear(t, ref time.Time) time.Time {
	if t.Year() != 0 {
		return t
	}
	t = time.Date(ref.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	if !t.After(ref) {
		t = t.AddDate(1, 0, 0)
	}
	return t
}
