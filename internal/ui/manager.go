// Package ui keeps each user's chat down to one authoritative screen. Durable
// sends replace the previous durable message; transient sends delete
// themselves after a delay. Deletions are best-effort everywhere.
package ui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/rs/zerolog"
)

const (
	// DefaultTTL is how long a transient notification stays visible.
	DefaultTTL = 50 * time.Second

	deleteTimeout = 10 * time.Second
)

// Sender is the part of the chat transport the manager needs. *telego.Bot
// satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error
}

// Inbound identifies the user event being answered. MessageID is zero when
// there is no deletable triggering message.
type Inbound struct {
	UserID    int64
	ChatID    int64
	MessageID int
}

// Message is outbound text with optional controls.
type Message struct {
	Text     string
	Markup   telego.ReplyMarkup
	Markdown bool
}

func (m Message) Params(chatID int64) *telego.SendMessageParams {
	p := tu.Message(tu.ID(chatID), m.Text)
	if m.Markup != nil {
		p = p.WithReplyMarkup(m.Markup)
	}
	if m.Markdown {
		p = p.WithParseMode(telego.ModeMarkdown)
	}
	return p
}

type Manager struct {
	sender Sender
	log    zerolog.Logger

	mu      sync.Mutex
	durable map[int64]int
}

func NewManager(sender Sender, log zerolog.Logger) *Manager {
	return &Manager{
		sender:  sender,
		log:     log,
		durable: make(map[int64]int),
	}
}

// SendTransient sends msg and schedules its deletion after ttl.
func (m *Manager) SendTransient(ctx context.Context, in Inbound, msg Message, ttl time.Duration) (int, error) {
	sent, err := m.sender.SendMessage(ctx, msg.Params(in.ChatID))
	if err != nil {
		return 0, fmt.Errorf("send transient message: %w", err)
	}

	m.ExpireAfter(in.ChatID, sent.MessageID, ttl)
	m.deleteInbound(ctx, in)
	return sent.MessageID, nil
}

// SendDurable replaces the user's durable message with msg. Handlers for one
// user never run concurrently, so the read-delete-send-store sequence is not
// interleaved for the same user.
func (m *Manager) SendDurable(ctx context.Context, in Inbound, msg Message) (int, error) {
	if prev, ok := m.DurableMessage(in.UserID); ok {
		m.delete(ctx, in.ChatID, prev)
	}

	sent, err := m.sender.SendMessage(ctx, msg.Params(in.ChatID))
	if err != nil {
		return 0, fmt.Errorf("send durable message: %w", err)
	}

	m.mu.Lock()
	m.durable[in.UserID] = sent.MessageID
	m.mu.Unlock()

	m.deleteInbound(ctx, in)
	return sent.MessageID, nil
}

// DurableMessage returns the tracked durable message of a user.
func (m *Manager) DurableMessage(userID int64) (int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.durable[userID]
	return id, ok
}

// ExpireAfter deletes a message once delay has passed. The task is detached:
// it is not cancellable and a failed deletion is ignored.
func (m *Manager) ExpireAfter(chatID int64, messageID int, delay time.Duration) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				m.log.Error().Interface("panic", r).Int("message_id", messageID).Msg("Message expiry task panicked")
			}
		}()

		if delay > 0 {
			timer := time.NewTimer(delay)
			<-timer.C
		}

		ctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()
		m.delete(ctx, chatID, messageID)
	}()
}

func (m *Manager) deleteInbound(ctx context.Context, in Inbound) {
	if in.MessageID == 0 {
		return
	}
	m.delete(ctx, in.ChatID, in.MessageID)
}

func (m *Manager) delete(ctx context.Context, chatID int64, messageID int) {
	if err := m.sender.DeleteMessage(ctx, tu.Delete(tu.ID(chatID), messageID)); err != nil {
		m.log.Debug().Err(err).Int64("chat_id", chatID).Int("message_id", messageID).Msg("Message deletion skipped")
	}
}
