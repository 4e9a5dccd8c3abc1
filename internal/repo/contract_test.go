package repo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/model"
)

var t0 = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

type repoFactory func(t *testing.T) ReminderRepository

func newReminder(user string, event time.Time) model.Reminder {
	return model.Reminder{
		UserID:    user,
		ChannelID: "chan-1",
		Content:   "content for " + user,
		EventTime: event,
		CreatedAt: t0.Add(-time.Hour),
	}
}

func mustInsert(t *testing.T, r ReminderRepository, rem model.Reminder) int64 {
	t.Helper()
	id, err := r.Insert(context.Background(), rem)
	if err != nil {
		t.Fatalf("Insert() error: %v", err)
	}
	return id
}

func runReminderRepoContract(t *testing.T, newRepo repoFactory) {
	ctx := context.Background()

	t.Run("insert assigns increasing ids and default flags", func(t *testing.T) {
		r := newRepo(t)
		guild := "guild-9"

		rem := newReminder("u1", t0.Add(25*time.Hour))
		rem.GuildID = &guild
		rem.Reminder1DaySent = true // ignored on insert

		id1 := mustInsert(t, r, rem)
		id2 := mustInsert(t, r, newReminder("u1", t0.Add(26*time.Hour)))
		if id2 <= id1 {
			t.Fatalf("expected increasing ids, got %d then %d", id1, id2)
		}

		got, err := r.ListActive(ctx, "u1", t0)
		if err != nil {
			t.Fatalf("ListActive() error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 reminders, got %d", len(got))
		}
		first := got[0]
		if first.ID != id1 || first.Reminder1DaySent || first.Reminder30MinSent {
			t.Fatalf("unexpected stored record: %+v", first)
		}
		if first.GuildID == nil || *first.GuildID != guild {
			t.Fatalf("expected guild %q, got %v", guild, first.GuildID)
		}
		if !first.EventTime.Equal(rem.EventTime) || !first.CreatedAt.Equal(rem.CreatedAt) {
			t.Fatalf("times not preserved: %+v", first)
		}
		if got[1].GuildID != nil {
			t.Fatalf("expected nil guild for direct message, got %q", *got[1].GuildID)
		}
	})

	t.Run("list active is per user, future only and ordered", func(t *testing.T) {
		r := newRepo(t)

		mustInsert(t, r, newReminder("u1", t0.Add(48*time.Hour)))
		mustInsert(t, r, newReminder("u1", t0.Add(-time.Hour)))
		mustInsert(t, r, newReminder("u1", t0.Add(time.Hour)))
		mustInsert(t, r, newReminder("u2", t0.Add(2*time.Hour)))

		got, err := r.ListActive(ctx, "u1", t0)
		if err != nil {
			t.Fatalf("ListActive() error: %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("expected 2 reminders, got %d: %+v", len(got), got)
		}
		if !got[0].EventTime.Equal(t0.Add(time.Hour)) || !got[1].EventTime.Equal(t0.Add(48*time.Hour)) {
			t.Fatalf("unexpected order: %v, %v", got[0].EventTime, got[1].EventTime)
		}
	})

	t.Run("due for stage respects window and flag", func(t *testing.T) {
		r := newRepo(t)
		lookahead := 24*time.Hour + 5*time.Minute

		inside := mustInsert(t, r, newReminder("u1", t0.Add(24*time.Hour)))
		mustInsert(t, r, newReminder("u1", t0.Add(lookahead+time.Second)))
		mustInsert(t, r, newReminder("u1", t0))
		edge := mustInsert(t, r, newReminder("u1", t0.Add(lookahead)))

		got, err := r.DueForStage(ctx, model.OneDay, t0, lookahead)
		if err != nil {
			t.Fatalf("DueForStage() error: %v", err)
		}
		if len(got) != 2 || got[0].ID != inside || got[1].ID != edge {
			t.Fatalf("unexpected due set: %+v", got)
		}

		if err := r.MarkSent(ctx, inside, model.OneDay); err != nil {
			t.Fatalf("MarkSent() error: %v", err)
		}
		got, err = r.DueForStage(ctx, model.OneDay, t0, lookahead)
		if err != nil {
			t.Fatalf("DueForStage() error: %v", err)
		}
		if len(got) != 1 || got[0].ID != edge {
			t.Fatalf("expected only edge record after MarkSent, got %+v", got)
		}

		// The other stage is tracked independently.
		got, err = r.DueForStage(ctx, model.ThirtyMin, t0.Add(23*time.Hour+30*time.Minute), 30*time.Minute)
		if err != nil {
			t.Fatalf("DueForStage() error: %v", err)
		}
		if len(got) != 1 || got[0].ID != inside {
			t.Fatalf("expected ThirtyMin to still select %d, got %+v", inside, got)
		}
	})

	t.Run("due record stays selectable across ticks until marked", func(t *testing.T) {
		r := newRepo(t)
		id := mustInsert(t, r, newReminder("u1", t0.Add(30*time.Minute)))

		for i := 0; i < 3; i++ {
			now := t0.Add(time.Duration(i) * time.Minute)
			got, err := r.DueForStage(ctx, model.ThirtyMin, now, 35*time.Minute)
			if err != nil {
				t.Fatalf("DueForStage() error: %v", err)
			}
			if len(got) != 1 || got[0].ID != id {
				t.Fatalf("tick %d: expected record %d, got %+v", i, id, got)
			}
		}
	})

	t.Run("mark sent is idempotent", func(t *testing.T) {
		r := newRepo(t)
		id := mustInsert(t, r, newReminder("u1", t0.Add(time.Hour)))

		for i := 0; i < 3; i++ {
			if err := r.MarkSent(ctx, id, model.ThirtyMin); err != nil {
				t.Fatalf("MarkSent() call %d error: %v", i, err)
			}
		}

		got, err := r.ListActive(ctx, "u1", t0)
		if err != nil {
			t.Fatalf("ListActive() error: %v", err)
		}
		if len(got) != 1 || !got[0].Reminder30MinSent || got[0].Reminder1DaySent {
			t.Fatalf("unexpected flags after repeated MarkSent: %+v", got)
		}
	})

	t.Run("unknown stage is rejected", func(t *testing.T) {
		r := newRepo(t)

		var stageErr *UnknownStageError
		if err := r.MarkSent(ctx, 1, model.Stage("1week")); !errors.As(err, &stageErr) {
			t.Fatalf("expected UnknownStageError, got %v", err)
		}
		if _, err := r.DueForStage(ctx, model.Stage(""), t0, time.Hour); !errors.As(err, &stageErr) {
			t.Fatalf("expected UnknownStageError, got %v", err)
		}
	})

	t.Run("delete expired ignores flags", func(t *testing.T) {
		r := newRepo(t)
		week := 7 * 24 * time.Hour

		mustInsert(t, r, newReminder("u1", t0.Add(-8*24*time.Hour)))
		oldSent := mustInsert(t, r, newReminder("u1", t0.Add(-9*24*time.Hour)))
		mustInsert(t, r, newReminder("u1", t0.Add(-6*24*time.Hour)))

		if err := r.MarkSent(ctx, oldSent, model.OneDay); err != nil {
			t.Fatalf("MarkSent() error: %v", err)
		}
		if err := r.MarkSent(ctx, oldSent, model.ThirtyMin); err != nil {
			t.Fatalf("MarkSent() error: %v", err)
		}

		n, err := r.DeleteExpired(ctx, t0, week)
		if err != nil {
			t.Fatalf("DeleteExpired() error: %v", err)
		}
		if n != 2 {
			t.Fatalf("expected 2 deleted rows, got %d", n)
		}

		remaining, err := r.ListActive(ctx, "u1", t0.Add(-30*24*time.Hour))
		if err != nil {
			t.Fatalf("ListActive() error: %v", err)
		}
		if len(remaining) != 1 || !remaining[0].EventTime.Equal(t0.Add(-6*24*time.Hour)) {
			t.Fatalf("expected only the 6-day-old record to remain, got %+v", remaining)
		}
	})

	t.Run("concurrent inserts get distinct ids", func(t *testing.T) {
		r := newRepo(t)
		const perUser = 20

		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			ids = map[int64]string{}
		)
		for _, user := range []string{"alice", "bob"} {
			user := user
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < perUser; i++ {
					rem := newReminder(user, t0.Add(time.Duration(i+1)*time.Hour))
					rem.Content = fmt.Sprintf("%s-%d", user, i)
					id, err := r.Insert(ctx, rem)
					if err != nil {
						t.Errorf("Insert(%s) error: %v", user, err)
						return
					}
					mu.Lock()
					ids[id] = rem.Content
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		if len(ids) != 2*perUser {
			t.Fatalf("expected %d distinct ids, got %d", 2*perUser, len(ids))
		}

		for _, user := range []string{"alice", "bob"} {
			got, err := r.ListActive(ctx, user, t0)
			if err != nil {
				t.Fatalf("ListActive(%s) error: %v", user, err)
			}
			if len(got) != perUser {
				t.Fatalf("expected %d reminders for %s, got %d", perUser, user, len(got))
			}
			for _, rem := range got {
				if ids[rem.ID] != rem.Content {
					t.Fatalf("record %d content %q does not match inserted %q", rem.ID, rem.Content, ids[rem.ID])
				}
				if rem.UserID != user {
					t.Fatalf("record %d has user %q, want %q", rem.ID, rem.UserID, user)
				}
			}
		}
	})
}
