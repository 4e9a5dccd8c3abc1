package service

import (
	"context"
	"strings"
	"time"

	"github.com/LeventeLantos/reminderbot/internal/apperr"
	"github.com/LeventeLantos/reminderbot/internal/model"
)

type TimeResolver interface {
	Resolve(text string, now time.Time) (time.Time, error)
}

type ReminderStore interface {
	Insert(ctx context.Context, r model.Reminder) (int64, error)
	ListActive(ctx context.Context, userID string, now time.Time) ([]model.Reminder, error)
}

// CreateRequest identifies who asked for a reminder, where, and about what.
type CreateRequest struct {
	UserID    string  `json:"userId"`
	ChannelID string  `json:"channelId"`
	GuildID   *string `json:"guildId,omitempty"`
	Content   string  `json:"content"`
}

func (r CreateRequest) validate() error {
	if strings.TrimSpace(r.UserID) == "" || strings.TrimSpace(r.ChannelID) == "" || strings.TrimSpace(r.Content) == "" {
		return apperr.ErrInvalidReminder
	}
	return nil
}

// Reminders is the entry point for user commands: create and list.
type Reminders struct {
	store    ReminderStore
	resolver TimeResolver
}

func NewReminders(store ReminderStore, resolver TimeResolver) *Reminders {
	return &Reminders{store: store, resolver: resolver}
}

// Create resolves rawTime and persists a new reminder. Nothing is written
// when validation or time resolution fails.
func (s *Reminders) Create(ctx context.Context, req CreateRequest, rawTime string, now time.Time) (model.Reminder, error) {
	if err := req.validate(); err != nil {
		return model.Reminder{}, err
	}

	eventTime, err := s.resolver.Resolve(rawTime, now)
	if err != nil {
		return model.Reminder{}, err
	}

	rem := model.Reminder{
		UserID:    req.UserID,
		ChannelID: req.ChannelID,
		GuildID:   req.GuildID,
		Content:   strings.TrimSpace(req.Content),
		EventTime: eventTime,
		CreatedAt: now,
	}

	id, err := s.store.Insert(ctx, rem)
	if err != nil {
		return model.Reminder{}, apperr.StorageUnavailable(err)
	}
	rem.ID = id
	return rem, nil
}

func (s *Reminders) ListActive(ctx context.Context, userID string, now time.Time) ([]model.Reminder, error) {
	rems, err := s.store.ListActive(ctx, userID, now)
	if err != nil {
		return nil, apperr.StorageUnavailable(err)
	}
	return rems, nil
}
