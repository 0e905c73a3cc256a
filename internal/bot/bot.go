package bot

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"
	"github.com/rs/zerolog"

	"fitdew-bot/internal/ui"
)

// Payments reconciles checkout events.
type Payments interface {
	HandlePreCheckout(ctx context.Context, query telego.PreCheckoutQuery) error
	HandleSuccessfulPayment(ctx context.Context, in ui.Inbound, from telego.User, sp *telego.SuccessfulPayment) error
}

// Bot routes Telegram updates to the tariff flow and payment reconciliation.
type Bot struct {
	api      *telego.Bot
	flow     *Flow
	payments Payments
	locks    *userLocks
	log      zerolog.Logger
}

func New(api *telego.Bot, flow *Flow, payments Payments, log zerolog.Logger) *Bot {
	return &Bot{
		api:      api,
		flow:     flow,
		payments: payments,
		locks:    newUserLocks(),
		log:      log,
	}
}

// Run long-polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	updates, err := b.api.UpdatesViaLongPolling(ctx, nil)
	if err != nil {
		return fmt.Errorf("start long polling: %w", err)
	}

	handler, err := th.NewBotHandler(b.api, updates)
	if err != nil {
		return fmt.Errorf("create bot handler: %w", err)
	}
	b.register(handler)

	b.log.Info().Msg("Bot started")
	if err := handler.Start(); err != nil {
		return fmt.Errorf("bot handler: %w", err)
	}
	return nil
}

// register wires handlers in priority order; telego runs the first match.
func (b *Bot) register(bh *th.BotHandler) {
	bh.Use(b.serializePerUser)

	bh.HandleMessage(func(ctx *th.Context, msg telego.Message) error {
		in, ok := inbound(msg)
		if !ok {
			return nil
		}
		b.logFailure(b.flow.HandleStart(ctx, in), in, "start")
		return nil
	}, th.CommandEqual("start"))

	bh.HandleMessage(func(ctx *th.Context, msg telego.Message) error {
		in, ok := inbound(msg)
		if !ok {
			return nil
		}
		b.logFailure(b.payments.HandleSuccessfulPayment(ctx, in, *msg.From, msg.SuccessfulPayment), in, "successful_payment")
		return nil
	}, successfulPayment)

	bh.HandlePreCheckoutQuery(func(ctx *th.Context, query telego.PreCheckoutQuery) error {
		if err := b.payments.HandlePreCheckout(ctx, query); err != nil {
			b.log.Error().Err(err).Int64("user_id", query.From.ID).Msg("Failed to answer pre-checkout query")
		}
		return nil
	}, th.AnyPreCheckoutQuery())

	bh.HandleMessage(func(ctx *th.Context, msg telego.Message) error {
		in, ok := inbound(msg)
		if !ok {
			return nil
		}
		b.logFailure(b.flow.HandleText(ctx, in, msg.Text), in, "text")
		return nil
	}, th.AnyMessageWithText())
}

// serializePerUser keeps one sender's updates from running concurrently;
// telego dispatches every update on its own goroutine.
func (b *Bot) serializePerUser(ctx *th.Context, update telego.Update) error {
	userID, ok := senderID(update)
	if !ok {
		return ctx.Next(update)
	}
	unlock := b.locks.lock(userID)
	defer unlock()
	return ctx.Next(update)
}

func (b *Bot) logFailure(err error, in ui.Inbound, event string) {
	if err == nil {
		return
	}
	b.log.Error().Err(err).Int64("user_id", in.UserID).Str("event", event).Msg("Update handling failed")
}

func successfulPayment(_ context.Context, update telego.Update) bool {
	return update.Message != nil && update.Message.SuccessfulPayment != nil
}

func inbound(msg telego.Message) (ui.Inbound, bool) {
	if msg.From == nil {
		return ui.Inbound{}, false
	}
	return ui.Inbound{UserID: msg.From.ID, ChatID: msg.Chat.ID, MessageID: msg.MessageID}, true
}

func senderID(update telego.Update) (int64, bool) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		return update.Message.From.ID, true
	case update.PreCheckoutQuery != nil:
		return update.PreCheckoutQuery.From.ID, true
	case update.CallbackQuery != nil:
		return update.CallbackQuery.From.ID, true
	}
	return 0, false
}
