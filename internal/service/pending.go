package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/LeventeLantos/reminderbot/internal/apperr"
	"github.com/LeventeLantos/reminderbot/internal/model"
)

const DefaultPromptTimeout = 60 * time.Second

// Ticket is handed to the user when a reminder is waiting for its time.
type Ticket struct {
	Token    string    `json:"token"`
	Deadline time.Time `json:"deadline"`
}

// Reply is the follow-up message that completes a pending reminder.
type Reply struct {
	UserID    string `json:"userId"`
	ChannelID string `json:"channelId"`
	Text      string `json:"text"`
}

type pendingRequest struct {
	req      CreateRequest
	deadline time.Time
}

// Pending holds reminders whose content is known but whose time the user has
// not sent yet. Each token resolves at most once; nothing is persisted until
// it does.
type Pending struct {
	reminders *Reminders
	ttl       time.Duration

	mu    sync.Mutex
	items map[string]pendingRequest
}

func NewPending(reminders *Reminders, ttl time.Duration) *Pending {
	if ttl <= 0 {
		ttl = DefaultPromptTimeout
	}
	return &Pending{
		reminders: reminders,
		ttl:       ttl,
		items:     make(map[string]pendingRequest),
	}
}

func (p *Pending) Begin(req CreateRequest, now time.Time) (Ticket, error) {
	if err := req.validate(); err != nil {
		return Ticket{}, err
	}

	t := Ticket{Token: uuid.NewString(), Deadline: now.Add(p.ttl)}

	p.mu.Lock()
	p.items[t.Token] = pendingRequest{req: req, deadline: t.Deadline}
	p.mu.Unlock()

	return t, nil
}

// Resolve completes the pending reminder with the reply's time text. The
// token is consumed on every outcome except a reply from the wrong user or
// channel.
func (p *Pending) Resolve(ctx context.Context, token string, reply Reply, now time.Time) (model.Reminder, error) {
	p.mu.Lock()
	pr, ok := p.items[token]
	if !ok || pr.req.UserID != reply.UserID || pr.req.ChannelID != reply.ChannelID {
		p.mu.Unlock()
		return model.Reminder{}, apperr.ErrPendingNotFound
	}
	delete(p.items, token)
	p.mu.Unlock()

	if now.After(pr.deadline) {
		return model.Reminder{}, apperr.ErrInteractionTimeout
	}
	return p.reminders.Create(ctx, pr.req, reply.Text, now)
}

// Expire drops a pending request without creating anything. It reports
// whether the token existed.
func (p *Pending) Expire(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.items[token]
	delete(p.items, token)
	return ok
}

// Sweep removes every request whose deadline has passed.
func (p *Pending) Sweep(now time.Time) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for token, pr := range p.items {
		if now.After(pr.deadline) {
			delete(p.items, token)
			n++
		}
	}
	return n
}

func (p *Pending) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
