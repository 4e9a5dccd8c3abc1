package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/apperr"
	"github.com/LeventeLantos/reminderbot/internal/cache"
	"github.com/LeventeLantos/reminderbot/internal/model"
	"github.com/LeventeLantos/reminderbot/internal/schedule"
)

type SendClient interface {
	Send(ctx context.Context, n model.Notification) (remoteMessageID string, err error)
}

// DispatchStore is the part of the reminder store the dispatcher writes to.
type DispatchStore interface {
	DueForStage(ctx context.Context, stage model.Stage, now time.Time, lookahead time.Duration) ([]model.Reminder, error)
	MarkSent(ctx context.Context, id int64, stage model.Stage) error
	DeleteExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
}

const DefaultDeliveryTimeout = 10 * time.Second

// Dispatcher performs one sweep per Tick: deliver due stage notifications,
// mark them sent, purge expired records. A stage is marked sent even when the
// delivery fails; there is exactly one attempt per stage.
type Dispatcher struct {
	store  DispatchStore
	client SendClient
	policy schedule.Policy

	deliveries      cache.DeliveryLog
	deliveryTimeout time.Duration
	loc             *time.Location
	now             func() time.Time
}

type TickResult struct {
	Sent    int
	Failed  int
	Skipped int
	Purged  int64
	Errors  int
}

func NewDispatcher(store DispatchStore, client SendClient, policy schedule.Policy) *Dispatcher {
	return &Dispatcher{
		store:           store,
		client:          client,
		policy:          policy,
		deliveryTimeout: DefaultDeliveryTimeout,
		loc:             time.Local,
		now:             time.Now,
	}
}

func (d *Dispatcher) WithDeliveryLog(l cache.DeliveryLog) *Dispatcher {
	d.deliveries = l
	return d
}

func (d *Dispatcher) WithDeliveryTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.deliveryTimeout = timeout
	}
	return d
}

func (d *Dispatcher) WithLocation(loc *time.Location) *Dispatcher {
	if loc != nil {
		d.loc = loc
	}
	return d
}

func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	if now != nil {
		d.now = now
	}
	return d
}

func (d *Dispatcher) Tick(ctx context.Context) TickResult {
	now := d.now()
	var res TickResult

	for _, stage := range model.Stages {
		if ctx.Err() != nil {
			return res
		}
		d.dispatchStage(ctx, stage, now, &res)
	}

	if ctx.Err() != nil {
		return res
	}

	purged, err := d.store.DeleteExpired(ctx, now, d.policy.Retention)
	if err != nil {
		res.Errors++
		slog.Error("purge expired reminders failed", "err", err)
	} else {
		res.Purged = purged
		if purged > 0 {
			slog.Info("purged expired reminders", "count", purged, "before", d.policy.PurgeBefore(now))
		}
	}

	return res
}

func (d *Dispatcher) dispatchStage(ctx context.Context, stage model.Stage, now time.Time, res *TickResult) {
	due, err := d.store.DueForStage(ctx, stage, now, d.policy.Lookahead(stage))
	if err != nil {
		res.Errors++
		slog.Error("load due reminders failed", "stage", stage, "err", err)
		return
	}

	for _, r := range due {
		if ctx.Err() != nil {
			return
		}
		if !d.policy.Due(r, stage, now) {
			continue
		}

		delivered, err := d.deliver(ctx, r, stage, now)
		switch {
		case err != nil:
			res.Failed++
			slog.Warn("reminder delivery failed",
				"id", r.ID, "stage", stage, "channel", r.ChannelID, "user", r.UserID, "err", err)
		case delivered:
			res.Sent++
		default:
			res.Skipped++
		}

		// The attempt already happened; a canceled tick must still record it.
		if err := d.store.MarkSent(context.WithoutCancel(ctx), r.ID, stage); err != nil {
			res.Errors++
			slog.Error("mark reminder sent failed", "id", r.ID, "stage", stage, "err", err)
		}
	}
}

// deliver sends the stage notification. delivered is false with a nil error
// when the delivery log shows the notification already went out.
func (d *Dispatcher) deliver(ctx context.Context, r model.Reminder, stage model.Stage, now time.Time) (delivered bool, err error) {
	if d.deliveries != nil {
		done, err := d.deliveries.WasDelivered(ctx, r.ID, stage)
		if err != nil {
			slog.Warn("delivery log lookup failed", "id", r.ID, "stage", stage, "err", err)
		} else if done {
			slog.Info("reminder already delivered, marking sent", "id", r.ID, "stage", stage)
			return false, nil
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.deliveryTimeout)
	defer cancel()

	remoteID, err := d.client.Send(sendCtx, renderNotification(stage, r, d.loc))
	if err != nil {
		return false, apperr.DeliveryFailure(err)
	}

	if d.deliveries != nil {
		if err := d.deliveries.RecordDelivered(ctx, r.ID, stage, now); err != nil {
			slog.Warn("delivery log write failed", "id", r.ID, "stage", stage, "err", err)
		}
	}

	slog.Info("reminder delivered", "id", r.ID, "stage", stage, "remote_id", remoteID)
	return true, nil
}
