package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	"github.com/rs/zerolog"

	"fitdew-bot/internal/metrics"
	"fitdew-bot/internal/models"
	"fitdew-bot/internal/storage"
	"fitdew-bot/internal/tariff"
	"fitdew-bot/internal/ui"
)

type GrantStore interface {
	ApplyGrant(ctx context.Context, g storage.Grant) (*models.User, error)
}

// Answerer acknowledges pre-checkout queries. *telego.Bot satisfies it.
type Answerer interface {
	AnswerPreCheckoutQuery(ctx context.Context, params *telego.AnswerPreCheckoutQueryParams) error
}

// Handler reconciles Telegram Payments events with subscription records.
type Handler struct {
	users    GrantStore
	answerer Answerer
	ui       *ui.Manager
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewHandler(users GrantStore, answerer Answerer, manager *ui.Manager, m *metrics.Metrics, log zerolog.Logger) *Handler {
	return &Handler{
		users:    users,
		answerer: answerer,
		ui:       manager,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// HandlePreCheckout always approves; there is no stock to check.
func (h *Handler) HandlePreCheckout(ctx context.Context, query telego.PreCheckoutQuery) error {
	err := h.answerer.AnswerPreCheckoutQuery(ctx, &telego.AnswerPreCheckoutQueryParams{
		PreCheckoutQueryID: query.ID,
		Ok:                 true,
	})
	if err != nil {
		return fmt.Errorf("answer pre-checkout %s: %w", query.ID, err)
	}
	h.log.Debug().Int64("user_id", query.From.ID).Str("payload", query.InvoicePayload).Msg("Pre-checkout approved")
	return nil
}

// HandleSuccessfulPayment grants the paid tier for a full period from now.
// Redelivery of the same event grants again and moves the expiry forward.
func (h *Handler) HandleSuccessfulPayment(ctx context.Context, in ui.Inbound, from telego.User, sp *telego.SuccessfulPayment) error {
	if sp == nil {
		return nil
	}

	payload, err := tariff.DecodePayload(sp.InvoicePayload)
	if err != nil {
		h.log.Warn().Err(err).Int64("user_id", in.UserID).Msg("Malformed checkout payload, granting the base tier")
	}
	if payload.UserID != 0 && payload.UserID != in.UserID {
		h.log.Warn().
			Int64("user_id", in.UserID).
			Int64("payload_user_id", payload.UserID).
			Msg("Checkout payload issued for another user, granting to the payer")
	}

	mode := tariff.ModeNone
	if payload.Tier.RequiresMode() {
		mode = payload.Mode
	}

	now := h.now()
	u, err := h.users.ApplyGrant(ctx, storage.Grant{
		TelegramID: in.UserID,
		Username:   from.Username,
		FirstName:  from.FirstName,
		Tier:       payload.Tier,
		Mode:       mode,
		ExpiresAt:  now.Add(tariff.Period),
	})
	if err != nil {
		return fmt.Errorf("apply grant for %d: %w", in.UserID, err)
	}
	if u == nil {
		return fmt.Errorf("apply grant for %d: %w", in.UserID, storage.ErrUserVanished)
	}

	h.metrics.PaymentReconciled(string(payload.Tier))
	h.log.Info().
		Int64("user_id", in.UserID).
		Str("tier", string(payload.Tier)).
		Str("mode", string(mode)).
		Int("amount", sp.TotalAmount).
		Str("currency", sp.Currency).
		Str("charge_id", sp.TelegramPaymentChargeID).
		Msg("Payment reconciled")

	// The receipt stays in the chat.
	notify := ui.Inbound{UserID: in.UserID, ChatID: in.ChatID}
	expiresAt := now.Add(tariff.Period)
	if u.TariffExpiresAt != nil {
		expiresAt = *u.TariffExpiresAt
	}
	if _, err := h.ui.SendTransient(ctx, notify, ui.PaymentConfirmed(payload.Tier, expiresAt), ui.DefaultTTL); err != nil {
		h.log.Warn().Err(err).Int64("user_id", in.UserID).Msg("Failed to send payment confirmation")
	}

	if payload.Tier.Rank() > tariff.Base.Rank() && !u.IsStaff() {
		if _, err := h.ui.SendTransient(ctx, notify, ui.CuratorFollowUp(u), ui.DefaultTTL); err != nil {
			h.log.Warn().Err(err).Int64("user_id", in.UserID).Msg("Failed to send curator follow-up")
		}
	}

	if _, err := h.ui.SendDurable(ctx, notify, ui.HomeScreen(u, now)); err != nil {
		return fmt.Errorf("render home after payment: %w", err)
	}
	return nil
}
