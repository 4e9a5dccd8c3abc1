package cache

import (
	"context"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/model"
)

// DeliveryLog remembers which (reminder, stage) notifications went out, so a
// crash between delivery and MarkSent does not notify the user twice.
type DeliveryLog interface {
	RecordDelivered(ctx context.Context, reminderID int64, stage model.Stage, sentAt time.Time) error
	WasDelivered(ctx context.Context, reminderID int64, stage model.Stage) (bool, error)
}
