package schedule

import (
	"testing"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/model"
)

var base = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

func TestPolicy_Window(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()

	from, to := p.Window(model.OneDay, base)
	if !from.Equal(base) {
		t.Fatalf("expected from=%v, got %v", base, from)
	}
	if want := base.Add(24*time.Hour + 5*time.Minute); !to.Equal(want) {
		t.Fatalf("OneDay: expected to=%v, got %v", want, to)
	}

	_, to = p.Window(model.ThirtyMin, base)
	if want := base.Add(35 * time.Minute); !to.Equal(want) {
		t.Fatalf("ThirtyMin: expected to=%v, got %v", want, to)
	}
}

func TestPolicy_Due_Bounds(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()

	cases := []struct {
		name  string
		event time.Time
		stage model.Stage
		want  bool
	}{
		{"exactly now is excluded", base, model.ThirtyMin, false},
		{"just after now", base.Add(time.Second), model.ThirtyMin, true},
		{"upper bound inclusive", base.Add(35 * time.Minute), model.ThirtyMin, true},
		{"past upper bound", base.Add(35*time.Minute + time.Second), model.ThirtyMin, false},
		{"one day inside", base.Add(24 * time.Hour), model.OneDay, true},
		{"one day outside", base.Add(25 * time.Hour), model.OneDay, false},
		{"past event", base.Add(-time.Minute), model.OneDay, false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := model.Reminder{EventTime: tc.event}
			if got := p.Due(r, tc.stage, base); got != tc.want {
				t.Fatalf("Due = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPolicy_Due_SentStageNeverDue(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	r := model.Reminder{EventTime: base.Add(10 * time.Minute), Reminder30MinSent: true}

	if p.Due(r, model.ThirtyMin, base) {
		t.Fatalf("expected sent stage not to be due")
	}
	if !p.Due(r, model.OneDay, base) {
		t.Fatalf("expected the other stage to remain due")
	}
}

// Once a record enters a window it stays selectable on every following poll
// until the event passes, as long as the clock advances by <= margin per tick.
func TestPolicy_Due_MonotonicAcrossTicks(t *testing.T) {
	t.Parallel()

	p := DefaultPolicy()
	poll := time.Minute
	event := base.Add(24*time.Hour + 30*time.Minute)
	r := model.Reminder{EventTime: event}

	entered := false
	for now := base; now.Before(event); now = now.Add(poll) {
		due := p.Due(r, model.OneDay, now)
		if entered && !due {
			t.Fatalf("record left the OneDay window at %v", now)
		}
		entered = entered || due
	}
	if !entered {
		t.Fatalf("record never entered the OneDay window")
	}
}

func TestPolicy_Validate(t *testing.T) {
	t.Parallel()

	if err := DefaultPolicy().Validate(time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := DefaultPolicy().Validate(10 * time.Minute); err == nil {
		t.Fatalf("expected error when margin < poll interval")
	}
	if err := (Policy{Margin: time.Hour}).Validate(time.Minute); err == nil {
		t.Fatalf("expected error for zero retention")
	}
}

func TestPolicy_PurgeBefore(t *testing.T) {
	t.Parallel()

	got := DefaultPolicy().PurgeBefore(base)
	if want := base.Add(-7 * 24 * time.Hour); !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestUpcoming(t *testing.T) {
	t.Parallel()

	got := Upcoming(base.Add(48*time.Hour), base)
	if len(got) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(got))
	}
	if got[0].Stage != model.OneDay || !got[0].At.Equal(base.Add(24*time.Hour)) {
		t.Fatalf("unexpected first stage: %+v", got[0])
	}

	got = Upcoming(base.Add(2*time.Hour), base)
	if len(got) != 1 || got[0].Stage != model.ThirtyMin {
		t.Fatalf("expected only ThirtyMin, got %+v", got)
	}

	if got := Upcoming(base.Add(10*time.Minute), base); len(got) != 0 {
		t.Fatalf("expected no stages, got %+v", got)
	}
}
