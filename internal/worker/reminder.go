package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"fitdew-bot/internal/metrics"
	"fitdew-bot/internal/models"
	"fitdew-bot/internal/storage"
	"fitdew-bot/internal/tariff"
	"fitdew-bot/internal/ui"
)

var ErrAlreadyRunning = errors.New("worker: reminder already running")

// sendRate stays under Telegram's broadcast limit of about 30 messages per second.
const sendRate = 25

type ReminderStore interface {
	FindExpiring(ctx context.Context, from, to time.Time) ([]models.User, error)
	MarkReminded(ctx context.Context, telegramID int64, expiresAt time.Time) error
}

// Sender delivers reminders. *telego.Bot satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Locker makes sure only one replica runs a cycle.
type Locker interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// Reminder notifies users whose tier expires within the lead time, once per
// distinct expiry.
type Reminder struct {
	store    ReminderStore
	sender   Sender
	locker   Locker
	lead     time.Duration
	interval time.Duration
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
	limiter  *rate.Limiter

	running atomic.Bool
}

func NewReminder(store ReminderStore, sender Sender, lead, interval time.Duration, m *metrics.Metrics, log zerolog.Logger) *Reminder {
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Reminder{
		store:    store,
		sender:   sender,
		lead:     lead,
		interval: interval,
		metrics:  m,
		log:      log,
		now:      time.Now,
		limiter:  rate.NewLimiter(sendRate, 1),
	}
}

// WithLocker guards every cycle with l.
func (r *Reminder) WithLocker(l Locker) *Reminder {
	r.locker = l
	return r
}

func (r *Reminder) Running() bool {
	return r.running.Load()
}

// Run executes a cycle immediately and then on every interval until ctx is
// done. A failing cycle never stops the loop.
func (r *Reminder) Run(ctx context.Context) error {
	if !r.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer r.running.Store(false)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Dur("lead", r.lead).Msg("Reminder scheduler started")
	r.cycle(ctx)

	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("Reminder scheduler stopped")
			return nil
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

func (r *Reminder) cycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			r.metrics.ReminderFailed("panic")
			r.log.Error().Interface("panic", rec).Msg("Reminder cycle panicked")
		}
		r.metrics.ObserveReminderCycle(time.Since(start))
	}()

	if r.locker != nil {
		ok, err := r.locker.TryLock(ctx)
		if err != nil {
			r.log.Warn().Err(err).Msg("Failed to acquire reminder lock, skipping cycle")
			return
		}
		if !ok {
			r.log.Debug().Msg("Reminder cycle running elsewhere, skipping")
			return
		}
		defer func() {
			if err := r.locker.Unlock(context.WithoutCancel(ctx)); err != nil {
				r.log.Warn().Err(err).Msg("Failed to release reminder lock")
			}
		}()
	}

	sent, err := r.RunOnce(ctx)
	if err != nil {
		r.log.Error().Err(err).Msg("Reminder cycle failed")
		return
	}
	r.log.Debug().Int("sent", sent).Msg("Reminder cycle finished")
}

// RunOnce runs a single cycle and returns the number of reminders delivered.
func (r *Reminder) RunOnce(ctx context.Context) (int, error) {
	if r.lead <= 0 {
		return 0, nil
	}

	now := r.now()
	candidates, err := r.store.FindExpiring(ctx, now, now.Add(r.lead))
	if err != nil {
		r.metrics.ReminderFailed("query")
		return 0, fmt.Errorf("find expiring tariffs: %w", err)
	}

	sent := 0
	for i := range candidates {
		if r.remind(ctx, &candidates[i], now) {
			sent++
		}
	}
	return sent, nil
}

func (r *Reminder) remind(ctx context.Context, u *models.User, now time.Time) bool {
	if u.IsStaff() || u.TariffExpiresAt == nil {
		return false
	}
	expiresAt := *u.TariffExpiresAt
	if u.TariffRemindedFor != nil && u.TariffRemindedFor.Equal(expiresAt) {
		return false
	}

	days := tariff.RemainingDays(expiresAt.Sub(now))
	if days <= 0 {
		return false
	}

	if err := r.limiter.Wait(ctx); err != nil {
		r.log.Debug().Err(err).Int64("user_id", u.TelegramID).Msg("Reminder cycle interrupted")
		return false
	}

	msg := ui.ReminderMessage(u.Tier(), expiresAt, days)
	if _, err := r.sender.SendMessage(ctx, msg.Params(u.TelegramID)); err != nil {
		r.metrics.ReminderFailed("send")
		r.log.Warn().Err(err).Int64("user_id", u.TelegramID).Msg("Failed to send tariff reminder")
		return false
	}
	r.metrics.ReminderSent()

	// A lost mark means one duplicate reminder next cycle.
	err := r.store.MarkReminded(ctx, u.TelegramID, expiresAt)
	switch {
	case errors.Is(err, storage.ErrExpiryChanged):
		r.log.Debug().Int64("user_id", u.TelegramID).Msg("Tariff changed while reminding, not marking")
	case err != nil:
		r.metrics.ReminderFailed("persist")
		r.log.Error().Err(err).Int64("user_id", u.TelegramID).Msg("Failed to record tariff reminder")
	default:
		r.log.Info().Int64("user_id", u.TelegramID).Int("days", days).Msg("Tariff reminder sent")
	}
	return true
}
