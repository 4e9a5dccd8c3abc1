package repo

import (
	"context"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/model"
)

type ReminderRepository interface {
	Insert(ctx context.Context, r model.Reminder) (int64, error)
	ListActive(ctx context.Context, userID string, now time.Time) ([]model.Reminder, error)
	DueForStage(ctx context.Context, stage model.Stage, now time.Time, lookahead time.Duration) ([]model.Reminder, error)
	MarkSent(ctx context.Context, id int64, stage model.Stage) error
	DeleteExpired(ctx context.Context, now time.Time, retention time.Duration) (int64, error)
	Close() error
}

// stageColumn maps a stage to its flag column. Only fixed names are ever
// interpolated into SQL.
func stageColumn(s model.Stage) (string, error) {
	switch s {
	case model.OneDay:
		return "reminder_1day", nil
	case model.ThirtyMin:
		return "reminder_30min", nil
	default:
		return "", &UnknownStageError{Stage: s}
	}
}

type UnknownStageError struct {
	Stage model.Stage
}

func (e *UnknownStageError) Error() string {
	return "unknown reminder stage " + string(e.Stage)
}
