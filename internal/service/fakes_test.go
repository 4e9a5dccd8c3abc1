package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/model"
)

// memStore is an in-memory reminder store with switchable failures.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]model.Reminder

	failDue    bool
	failMark   bool
	failDelete bool
	failInsert bool

	markCalls int
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]model.Reminder{}}
}

var errStorage = errors.New("disk on fire")

func (s *memStore) Insert(_ context.Context, r model.Reminder) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsert {
		return 0, errStorage
	}
	s.nextID++
	r.ID = s.nextID
	r.Reminder1DaySent, r.Reminder30MinSent = false, false
	s.rows[r.ID] = r
	return r.ID, nil
}

func (s *memStore) ListActive(_ context.Context, userID string, now time.Time) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Reminder
	for _, r := range s.rows {
		if r.UserID == userID && r.EventTime.After(now) {
			out = append(out, r)
		}
	}
	sortByEvent(out)
	return out, nil
}

func (s *memStore) DueForStage(_ context.Context, stage model.Stage, now time.Time, lookahead time.Duration) ([]model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDue {
		return nil, errStorage
	}
	var out []model.Reminder
	for _, r := range s.rows {
		if !r.Sent(stage) && r.EventTime.After(now) && !r.EventTime.After(now.Add(lookahead)) {
			out = append(out, r)
		}
	}
	sortByEvent(out)
	return out, nil
}

func (s *memStore) MarkSent(ctx context.Context, id int64, stage model.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.failMark {
		return errStorage
	}
	r, ok := s.rows[id]
	if !ok {
		return nil
	}
	switch stage {
	case model.OneDay:
		r.Reminder1DaySent = true
	case model.ThirtyMin:
		r.Reminder30MinSent = true
	}
	s.rows[id] = r
	return nil
}

func (s *memStore) DeleteExpired(_ context.Context, now time.Time, retention time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return 0, errStorage
	}
	var n int64
	for id, r := range s.rows {
		if r.EventTime.Before(now.Add(-retention)) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) get(id int64) (model.Reminder, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	return r, ok
}

func sortByEvent(rs []model.Reminder) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].EventTime.Equal(rs[j].EventTime) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].EventTime.Before(rs[j].EventTime)
	})
}

// fakeClient records notifications and fails for the configured channels.
type fakeClient struct {
	mu        sync.Mutex
	sent      []model.Notification
	failFor   map[string]bool
	block     bool
	deadlines int

	// afterSend runs once a notification was accepted.
	afterSend func()
}

func (f *fakeClient) Send(ctx context.Context, n model.Notification) (string, error) {
	if f.block {
		<-ctx.Done()
		f.mu.Lock()
		f.deadlines++
		f.mu.Unlock()
		return "", ctx.Err()
	}

	f.mu.Lock()
	if f.failFor[n.ChannelID] {
		f.mu.Unlock()
		return "", errors.New("unknown channel")
	}
	f.sent = append(f.sent, n)
	f.mu.Unlock()

	if f.afterSend != nil {
		f.afterSend()
	}
	return "remote", nil
}

func (f *fakeClient) notifications() []model.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Notification(nil), f.sent...)
}

// memDeliveryLog is an in-memory cache.DeliveryLog.
type memDeliveryLog struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newMemDeliveryLog() *memDeliveryLog {
	return &memDeliveryLog{seen: map[string]bool{}}
}

func deliveryKey(id int64, stage model.Stage) string {
	return fmt.Sprintf("%d:%s", id, stage)
}

func (l *memDeliveryLog) RecordDelivered(_ context.Context, id int64, stage model.Stage, _ time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[deliveryKey(id, stage)] = true
	return nil
}

func (l *memDeliveryLog) WasDelivered(_ context.Context, id int64, stage model.Stage) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seen[deliveryKey(id, stage)], nil
}
