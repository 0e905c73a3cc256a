package payment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitdew-bot/internal/metrics"
	"fitdew-bot/internal/models"
	"fitdew-bot/internal/storage"
	"fitdew-bot/internal/storage/storagetest"
	"fitdew-bot/internal/tariff"
	"fitdew-bot/internal/ui"
	"fitdew-bot/internal/ui/uitest"
)

var fixedNow = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func newHandler(t *testing.T) (*Handler, *storagetest.Memory, *uitest.Transport) {
	t.Helper()
	users := storagetest.NewMemory()
	tr := uitest.NewTransport()
	h := NewHandler(users, tr, ui.NewManager(tr, zerolog.Nop()), metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	h.now = func() time.Time { return fixedNow }
	return h, users, tr
}

func pay(t *testing.T, h *Handler, userID int64, payload string) {
	t.Helper()
	in := ui.Inbound{UserID: userID, ChatID: userID, MessageID: 55}
	err := h.HandleSuccessfulPayment(context.Background(), in, telego.User{ID: userID, Username: "anna", FirstName: "Анна"},
		&telego.SuccessfulPayment{Currency: "RUB", TotalAmount: 1500000, InvoicePayload: payload})
	require.NoError(t, err)
}

func TestPreCheckoutIsApproved(t *testing.T) {
	h, _, tr := newHandler(t)

	require.NoError(t, h.HandlePreCheckout(context.Background(), telego.PreCheckoutQuery{ID: "q1", From: telego.User{ID: 1}}))

	require.Len(t, tr.Answers, 1)
	assert.Equal(t, "q1", tr.Answers[0].PreCheckoutQueryID)
	assert.True(t, tr.Answers[0].Ok)
}

func TestPaymentGrantsMaximumWithoutMode(t *testing.T) {
	h, users, tr := newHandler(t)

	pay(t, h, 10, tariff.NewPayload(tariff.Maximum, tariff.ModeNone, 10).Encode())

	u, ok := users.Get(10)
	require.True(t, ok)
	assert.Equal(t, "maximum", u.TariffName)
	assert.Empty(t, u.TrainingMode)
	require.NotNil(t, u.TariffExpiresAt)
	assert.True(t, fixedNow.Add(30*24*time.Hour).Equal(*u.TariffExpiresAt))
	assert.Nil(t, u.TariffRemindedFor)
	assert.Equal(t, "anna", u.Username)

	texts := tr.Texts()
	require.Len(t, texts, 3)
	assert.Contains(t, texts[0], "Максимум")
	assert.Contains(t, texts[1], "Куратор")
	assert.Equal(t, ui.ClientKeyboard(true, false), tr.LastSent().Markup)
	assert.Zero(t, tr.DeleteAttempts(55), "the payment receipt is kept")
}

func TestPaymentPersistsBaseMode(t *testing.T) {
	h, users, tr := newHandler(t)

	pay(t, h, 11, tariff.NewPayload(tariff.Base, tariff.ModeGym, 11).Encode())

	u, _ := users.Get(11)
	assert.Equal(t, "base", u.TariffName)
	assert.Equal(t, "gym", u.TrainingMode)
	assert.Len(t, tr.Texts(), 2, "no curator follow-up for the entry tier")
}

func TestPaymentClearsReminderGuard(t *testing.T) {
	h, users, _ := newHandler(t)
	old := fixedNow.Add(24 * time.Hour)
	users.Put(models.User{TelegramID: 12, TariffName: "base", TariffExpiresAt: &old, TariffRemindedFor: &old})

	pay(t, h, 12, tariff.NewPayload(tariff.Optimal, tariff.ModeNone, 12).Encode())

	u, _ := users.Get(12)
	assert.Equal(t, "optimal", u.TariffName)
	assert.Nil(t, u.TariffRemindedFor)
}

func TestMalformedPayloadFallsBackToBase(t *testing.T) {
	h, users, _ := newHandler(t)

	pay(t, h, 13, "garbage")

	u, ok := users.Get(13)
	require.True(t, ok)
	assert.Equal(t, "base", u.TariffName)
	assert.Empty(t, u.TrainingMode)
}

func TestCuratorFollowUpNamesAssignedCurator(t *testing.T) {
	h, users, tr := newHandler(t)
	trainer := uint(99)
	users.Put(models.User{TelegramID: 14, TrainerID: &trainer})

	pay(t, h, 14, tariff.NewPayload(tariff.Optimal, tariff.ModeNone, 14).Encode())

	assert.Contains(t, tr.Texts()[1], "уже доступен")
}

func TestStaffGetsNoCuratorFollowUp(t *testing.T) {
	h, users, tr := newHandler(t)
	users.Put(models.User{TelegramID: 15, Role: models.RoleAdmin})

	pay(t, h, 15, tariff.NewPayload(tariff.Maximum, tariff.ModeNone, 15).Encode())

	assert.Len(t, tr.Texts(), 2)
}

func TestRedeliveryIsIdempotentInTier(t *testing.T) {
	h, users, _ := newHandler(t)
	payload := tariff.NewPayload(tariff.Optimal, tariff.ModeNone, 16).Encode()

	pay(t, h, 16, payload)
	first, _ := users.Get(16)
	pay(t, h, 16, payload)
	second, _ := users.Get(16)

	assert.Equal(t, first.TariffName, second.TariffName)
	assert.Equal(t, first.TariffExpiresAt, second.TariffExpiresAt)
}

func TestGrantFailurePropagates(t *testing.T) {
	h, users, tr := newHandler(t)
	users.ApplyErr = errors.New("db down")

	err := h.HandleSuccessfulPayment(context.Background(), ui.Inbound{UserID: 1, ChatID: 1}, telego.User{ID: 1},
		&telego.SuccessfulPayment{InvoicePayload: tariff.NewPayload(tariff.Base, tariff.ModeGym, 1).Encode()})

	require.Error(t, err)
	assert.Empty(t, tr.Texts())
}

type lostGrantStore struct{}

func (lostGrantStore) ApplyGrant(context.Context, storage.Grant) (*models.User, error) {
	return nil, nil
}

func TestGrantWithoutRecordFails(t *testing.T) {
	tr := uitest.NewTransport()
	h := NewHandler(lostGrantStore{}, tr, ui.NewManager(tr, zerolog.Nop()), nil, zerolog.Nop())

	err := h.HandleSuccessfulPayment(context.Background(), ui.Inbound{UserID: 3, ChatID: 3}, telego.User{ID: 3},
		&telego.SuccessfulPayment{InvoicePayload: tariff.NewPayload(tariff.Maximum, tariff.ModeNone, 3).Encode()})

	require.ErrorIs(t, err, storage.ErrUserVanished)
	assert.Empty(t, tr.Texts())
}
