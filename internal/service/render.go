package service

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LeventeLantos/reminderbot/internal/model"
	"github.com/LeventeLantos/reminderbot/internal/schedule"
)

const (
	notifyLayout  = "Monday, January 02 at 03:04 PM"
	confirmLayout = "Monday, January 02, 2006 at 03:04 PM"
	listLayout    = "01/02/2006 at 03:04 PM"

	// ListContentMax is how many runes of content a listing shows.
	ListContentMax = 50

	// NotificationBodyMax is Discord's limit for an embed description.
	NotificationBodyMax = 4096
)

const (
	ColorCreated   = 0x00ff00
	ColorListing   = 0x0099ff
	ColorOneDay    = 0xffaa00
	ColorThirtyMin = 0xff4444
)

func renderNotification(stage model.Stage, r model.Reminder, loc *time.Location) model.Notification {
	n := model.Notification{
		ChannelID: r.ChannelID,
		UserID:    r.UserID,
	}
	when := r.EventTime.In(loc).Format(notifyLayout)

	var format string
	switch stage {
	case model.ThirtyMin:
		n.Title = "⏰ 30-Minute Reminder"
		format = "**%s**\n\nScheduled for: %s\n\n*This is your final reminder!*"
		n.Color = ColorThirtyMin
	default:
		n.Title = "📅 1-Day Reminder"
		format = "**%s**\n\nScheduled for: %s"
		n.Color = ColorOneDay
	}

	content := r.Content
	if over := utf8.RuneCountInString(fmt.Sprintf(format, content, when)) - NotificationBodyMax; over > 0 {
		content = TruncateContent(content, max(utf8.RuneCountInString(content)-over-len("..."), 0))
	}
	n.Body = fmt.Sprintf(format, content, when)
	return n
}

// Confirmation is what a user sees after a reminder was created.
type Confirmation struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Stages      []string `json:"stages,omitempty"`
	Note        string   `json:"note,omitempty"`
	Color       int      `json:"color"`
}

func RenderConfirmation(r model.Reminder, now time.Time, loc *time.Location) Confirmation {
	c := Confirmation{
		Title:       "✅ Work Reminder Created!",
		Description: fmt.Sprintf("**Content:** %s\n**Event Time:** %s", r.Content, r.EventTime.In(loc).Format(confirmLayout)),
		Color:       ColorCreated,
	}

	for _, st := range schedule.Upcoming(r.EventTime, now) {
		at := st.At.In(loc).Format(notifyLayout)
		switch st.Stage {
		case model.OneDay:
			c.Stages = append(c.Stages, "📅 1 day before: "+at)
		case model.ThirtyMin:
			c.Stages = append(c.Stages, "⏰ 30 minutes before: "+at)
		}
	}
	if len(c.Stages) == 0 {
		c.Note = "Event is too soon for advance reminders"
	}
	return c
}

// ListingEntry is one line of a user's active reminder list.
type ListingEntry struct {
	Title string `json:"title"`
	When  string `json:"when"`
	Until string `json:"until"`
}

func RenderListing(rems []model.Reminder, now time.Time, loc *time.Location) []ListingEntry {
	out := make([]ListingEntry, 0, len(rems))
	for i, r := range rems {
		out = append(out, ListingEntry{
			Title: fmt.Sprintf("%d. %s", i+1, TruncateContent(r.Content, ListContentMax)),
			When:  r.EventTime.In(loc).Format(listLayout),
			Until: TimeUntil(r.EventTime, now),
		})
	}
	return out
}

// TruncateContent cuts s to max runes and marks the cut with "...".
func TruncateContent(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "..."
}

// TimeUntil renders the coarsest non-zero unit between now and event:
// whole days, else hours when more than one hour remains, else minutes.
func TimeUntil(event, now time.Time) string {
	d := event.Sub(now)
	days := int(d / (24 * time.Hour))
	rest := d - time.Duration(days)*24*time.Hour

	switch {
	case days > 0:
		return "in " + plural(days, "day")
	case rest > time.Hour:
		return "in " + plural(int(rest/time.Hour), "hour")
	default:
		return "in " + plural(int(rest/time.Minute), "minute")
	}
}

func plural(n int, unit string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d %s", n, unit)
	if n != 1 {
		b.WriteByte('s')
	}
	return b.String()
}
