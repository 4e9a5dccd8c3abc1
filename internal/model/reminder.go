package model

import "time"

type Stage string

const (
	OneDay    Stage = "1day"
	ThirtyMin Stage = "30min"
)

// Stages lists the reminder stages in dispatch order.
var Stages = []Stage{OneDay, ThirtyMin}

// LeadTime is how long before the event the stage fires.
func (s Stage) LeadTime() time.Duration {
	switch s {
	case OneDay:
		return 24 * time.Hour
	case ThirtyMin:
		return 30 * time.Minute
	default:
		return 0
	}
}

func (s Stage) Valid() bool {
	return s == OneDay || s == ThirtyMin
}

type Reminder struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"userId"`
	ChannelID string    `json:"channelId"`
	GuildID   *string   `json:"guildId,omitempty"`
	Content   string    `json:"content"`
	EventTime time.Time `json:"eventTime"`

	Reminder1DaySent  bool `json:"reminder1DaySent"`
	Reminder30MinSent bool `json:"reminder30MinSent"`

	CreatedAt time.Time `json:"createdAt"`
}

// Sent reports whether the given stage has already been marked sent.
func (r Reminder) Sent(s Stage) bool {
	switch s {
	case OneDay:
		return r.Reminder1DaySent
	case ThirtyMin:
		return r.Reminder30MinSent
	default:
		return false
	}
}
