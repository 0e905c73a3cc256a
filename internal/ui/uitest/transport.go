// Package uitest provides a recording Telegram transport for tests.
package uitest

import (
	"context"
	"errors"
	"sync"

	"github.com/mymmrac/telego"
)

// ErrMessageGone mimics Telegram's "message to delete not found".
var ErrMessageGone = errors.New("telego: deleteMessage: api: 400 \"Bad Request: message to delete not found\"")

type Sent struct {
	ChatID    int64
	MessageID int
	Text      string
	Markup    telego.ReplyMarkup
	ParseMode string
}

type Deleted struct {
	ChatID    int64
	MessageID int
}

// Transport records sends, deletions, invoices and pre-checkout answers.
type Transport struct {
	mu     sync.Mutex
	nextID int

	Sent      []Sent
	Deleted   []Deleted
	Invoices  []*telego.SendInvoiceParams
	Answers   []*telego.AnswerPreCheckoutQueryParams
	deleteErr func(messageID int) error

	// SendErr fails every SendMessage call while set.
	SendErr error
}

func NewTransport() *Transport {
	return &Transport{nextID: 1000}
}

// FailDeletes makes DeleteMessage return fn's result.
func (t *Transport) FailDeletes(fn func(messageID int) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deleteErr = fn
}

func (t *Transport) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.SendErr != nil {
		return nil, t.SendErr
	}
	t.nextID++
	t.Sent = append(t.Sent, Sent{
		ChatID:    params.ChatID.ID,
		MessageID: t.nextID,
		Text:      params.Text,
		Markup:    params.ReplyMarkup,
		ParseMode: params.ParseMode,
	})
	return &telego.Message{MessageID: t.nextID, Chat: telego.Chat{ID: params.ChatID.ID}, Text: params.Text}, nil
}

func (t *Transport) DeleteMessage(_ context.Context, params *telego.DeleteMessageParams) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Deleted = append(t.Deleted, Deleted{ChatID: params.ChatID.ID, MessageID: params.MessageID})
	if t.deleteErr != nil {
		if err := t.deleteErr(params.MessageID); err != nil {
			return err
		}
	}
	return nil
}

func (t *Transport) SendInvoice(_ context.Context, params *telego.SendInvoiceParams) (*telego.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextID++
	t.Invoices = append(t.Invoices, params)
	return &telego.Message{MessageID: t.nextID, Chat: telego.Chat{ID: params.ChatID.ID}}, nil
}

func (t *Transport) AnswerPreCheckoutQuery(_ context.Context, params *telego.AnswerPreCheckoutQueryParams) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Answers = append(t.Answers, params)
	return nil
}

// Texts returns the text of every sent message in order.
func (t *Transport) Texts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.Sent))
	for _, s := range t.Sent {
		out = append(out, s.Text)
	}
	return out
}

// LastSent returns the most recent message, or the zero value.
func (t *Transport) LastSent() Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.Sent) == 0 {
		return Sent{}
	}
	return t.Sent[len(t.Sent)-1]
}

// DeleteAttempts counts deletions of one message id.
func (t *Transport) DeleteAttempts(messageID int) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, d := range t.Deleted {
		if d.MessageID == messageID {
			n++
		}
	}
	return n
}

// Snapshot returns copies of the recorded slices.
func (t *Transport) Snapshot() (sent []Sent, deleted []Deleted, invoices []*telego.SendInvoiceParams) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sent(nil), t.Sent...), append([]Deleted(nil), t.Deleted...), append([]*telego.SendInvoiceParams(nil), t.Invoices...)
}
