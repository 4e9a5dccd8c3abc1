package model

// Notification is one message addressed to a user in a channel.
type Notification struct {
	ChannelID string
	UserID    string
	Title     string
	Body      string
	Color     int
}
