package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/rs/zerolog"

	"fitdew-bot/internal/metrics"
	"fitdew-bot/internal/models"
	"fitdew-bot/internal/session"
	"fitdew-bot/internal/tariff"
	"fitdew-bot/internal/ui"
)

// invoiceTTL keeps the checkout prompt around long enough to pay.
const invoiceTTL = 2 * time.Hour

type UserStore interface {
	Find(ctx context.Context, telegramID int64) (*models.User, error)
}

// Checkout issues payment requests. *telego.Bot satisfies it.
type Checkout interface {
	SendInvoice(ctx context.Context, params *telego.SendInvoiceParams) (*telego.Message, error)
}

type FlowConfig struct {
	Prices        tariff.Prices
	ProviderToken string
	Currency      string
	AppURL        string
	AdminURL      string
}

// Flow is the per-user tariff conversation: menus, tier and mode selection,
// and purchase confirmation with proration.
type Flow struct {
	users    UserStore
	sessions *session.Store
	ui       *ui.Manager
	checkout Checkout
	cfg      FlowConfig
	metrics  *metrics.Metrics
	log      zerolog.Logger
	now      func() time.Time
}

func NewFlow(users UserStore, sessions *session.Store, manager *ui.Manager, checkout Checkout, cfg FlowConfig, m *metrics.Metrics, log zerolog.Logger) *Flow {
	if cfg.Prices == nil {
		cfg.Prices = tariff.DefaultPrices()
	}
	return &Flow{
		users:    users,
		sessions: sessions,
		ui:       manager,
		checkout: checkout,
		cfg:      cfg,
		metrics:  m,
		log:      log,
		now:      time.Now,
	}
}

// HandleStart greets new users with a durable welcome and returning users
// with their home menu.
func (f *Flow) HandleStart(ctx context.Context, in ui.Inbound) error {
	f.clearSession(ctx, in.UserID)

	u, err := f.users.Find(ctx, in.UserID)
	if err != nil {
		return f.unavailable(ctx, in, err)
	}
	if u == nil {
		_, err = f.ui.SendDurable(ctx, in, ui.WelcomeScreen())
		return err
	}
	_, err = f.ui.SendTransient(ctx, in, ui.HomeScreen(u, f.now()), ui.DefaultTTL)
	return err
}

// HandleText routes a text message. Unrecognized text is ignored.
func (f *Flow) HandleText(ctx context.Context, in ui.Inbound, text string) error {
	switch text {
	case ui.BtnTariff:
		return f.showTariffs(ctx, in)
	case ui.BtnProfile:
		return f.showProfile(ctx, in)
	case ui.BtnMenu, ui.BtnHome, ui.BtnBack:
		return f.showHome(ctx, in)
	case ui.BtnChange:
		return f.changeTariff(ctx, in)
	case ui.BtnBuy:
		return f.ConfirmPurchase(ctx, in)
	case ui.BtnDetails:
		_, err := f.ui.SendDurable(ctx, in, ui.DetailsScreen(f.cfg.Prices))
		return err
	case ui.BtnConsult:
		_, err := f.ui.SendTransient(ctx, in, ui.ConsultScreen(), ui.DefaultTTL)
		return err
	case ui.BtnApp:
		_, err := f.ui.SendTransient(ctx, in, ui.LinkScreen("Открыть приложение", f.cfg.AppURL), ui.DefaultTTL)
		return err
	case ui.BtnAdmin:
		return f.openAdmin(ctx, in)
	}

	if tier, ok := ui.TierFromButton(text); ok {
		return f.selectTier(ctx, in, tier)
	}
	if mode, ok := ui.ModeFromButton(text); ok {
		return f.selectMode(ctx, in, mode)
	}
	return nil
}

func (f *Flow) showHome(ctx context.Context, in ui.Inbound) error {
	f.clearSession(ctx, in.UserID)

	u, err := f.users.Find(ctx, in.UserID)
	if err != nil {
		return f.unavailable(ctx, in, err)
	}
	_, err = f.ui.SendDurable(ctx, in, ui.HomeScreen(u, f.now()))
	return err
}

func (f *Flow) showProfile(ctx context.Context, in ui.Inbound) error {
	f.clearSession(ctx, in.UserID)

	u, err := f.users.Find(ctx, in.UserID)
	if err != nil {
		return f.unavailable(ctx, in, err)
	}
	_, err = f.ui.SendDurable(ctx, in, ui.ProfileScreen(u, f.now()))
	return err
}

// showTariffs renders staff, status or the tier list, depending on the record.
func (f *Flow) showTariffs(ctx context.Context, in ui.Inbound) error {
	f.clearSession(ctx, in.UserID)

	u, err := f.users.Find(ctx, in.UserID)
	if err != nil {
		return f.unavailable(ctx, in, err)
	}

	var msg ui.Message
	switch {
	case u.IsStaff():
		msg = ui.StaffTariffScreen(u)
	case u.IsActive(f.now()):
		msg = ui.TariffStatusScreen(u, f.now())
	default:
		msg = ui.TariffListScreen(false)
	}
	_, err = f.ui.SendDurable(ctx, in, msg)
	return err
}

func (f *Flow) changeTariff(ctx context.Context, in ui.Inbound) error {
	f.clearSession(ctx, in.UserID)

	u, err := f.users.Find(ctx, in.UserID)
	if err != nil {
		return f.unavailable(ctx, in, err)
	}
	msg := ui.TariffListScreen(true)
	if u.IsStaff() {
		msg = ui.StaffTariffScreen(u)
	}
	_, err = f.ui.SendDurable(ctx, in, msg)
	return err
}

func (f *Flow) openAdmin(ctx context.Context, in ui.Inbound) error {
	u, err := f.users.Find(ctx, in.UserID)
	if err != nil {
		return f.unavailable(ctx, in, err)
	}
	if !u.IsAdmin() {
		return nil
	}
	_, err = f.ui.SendTransient(ctx, in, ui.LinkScreen(ui.BtnAdmin, f.cfg.AdminURL), ui.DefaultTTL)
	return err
}

func (f *Flow) selectTier(ctx context.Context, in ui.Inbound, tier tariff.Tier) error {
	if err := f.sessions.SelectTier(ctx, in.UserID, tier); err != nil {
		return f.unavailable(ctx, in, err)
	}
	_, err := f.ui.SendDurable(ctx, in, ui.TierScreen(tier, tariff.ModeNone, f.cfg.Prices))
	return err
}

// selectMode only applies inside a base tier selection; anything else is
// stray text and gets no reply.
func (f *Flow) selectMode(ctx context.Context, in ui.Inbound, mode tariff.Mode) error {
	st, err := f.sessions.Get(ctx, in.UserID)
	if err != nil {
		return f.unavailable(ctx, in, err)
	}
	if !st.Tier.RequiresMode() {
		f.log.Debug().Int64("user_id", in.UserID).Str("mode", string(mode)).Msg("Mode selected outside of a base tier flow, ignoring")
		return nil
	}

	if err := f.sessions.SelectMode(ctx, in.UserID, mode); err != nil {
		return f.unavailable(ctx, in, err)
	}
	_, err = f.ui.SendDurable(ctx, in, ui.TierScreen(st.Tier, mode, f.cfg.Prices))
	return err
}

// ConfirmPurchase checks the purchase preconditions in order, prices the
// selection and issues a checkout request.
func (f *Flow) ConfirmPurchase(ctx context.Context, in ui.Inbound) error {
	u, err := f.users.Find(ctx, in.UserID)
	if err != nil {
		return f.unavailable(ctx, in, err)
	}
	now := f.now()

	if u.IsStaff() {
		f.metrics.PurchaseRejected("staff")
		f.clearSession(ctx, in.UserID)
		_, err = f.ui.SendDurable(ctx, in, ui.StaffTariffScreen(u))
		return err
	}

	st, err := f.sessions.Get(ctx, in.UserID)
	if err != nil {
		return f.unavailable(ctx, in, err)
	}
	if st.Idle() {
		f.metrics.PurchaseRejected("no_selection")
		_, err = f.ui.SendDurable(ctx, in, ui.ChooseTierFirst())
		return err
	}

	if !st.ModeComplete() {
		f.metrics.PurchaseRejected("mode_required")
		_, err = f.ui.SendDurable(ctx, in, ui.TierScreen(st.Tier, tariff.ModeNone, f.cfg.Prices))
		return err
	}

	if f.cfg.ProviderToken == "" {
		f.metrics.PurchaseRejected("not_configured")
		f.clearSession(ctx, in.UserID)
		f.log.Warn().Int64("user_id", in.UserID).Msg("Purchase attempted without a payment provider token")
		_, err = f.ui.SendTransient(ctx, in, ui.PaymentsUnavailable(), ui.DefaultTTL)
		return err
	}

	quote, err := tariff.QuotePurchase(st.Tier, u.Holding(now), f.cfg.Prices, now)
	if errors.Is(err, tariff.ErrAlreadyAtTier) {
		f.metrics.PurchaseRejected("already_at_tier")
		f.clearSession(ctx, in.UserID)
		_, err = f.ui.SendTransient(ctx, in, ui.AlreadyAtTier(u.Tier()), ui.DefaultTTL)
		return err
	}
	if err != nil {
		f.clearSession(ctx, in.UserID)
		return f.unavailable(ctx, in, err)
	}

	mode := tariff.ModeNone
	if st.Tier.RequiresMode() {
		mode = st.Mode
	}
	payload := tariff.NewPayload(st.Tier, mode, in.UserID)
	title, description, label := ui.InvoiceText(quote)

	invoice, err := f.checkout.SendInvoice(ctx, &telego.SendInvoiceParams{
		ChatID:        tu.ID(in.ChatID),
		Title:         title,
		Description:   description,
		Payload:       payload.Encode(),
		ProviderToken: f.cfg.ProviderToken,
		Currency:      f.cfg.Currency,
		Prices:        []telego.LabeledPrice{{Label: label, Amount: tariff.SubunitAmount(quote.Price)}},
	})
	if err != nil {
		return fmt.Errorf("send invoice: %w", err)
	}
	f.ui.ExpireAfter(in.ChatID, invoice.MessageID, invoiceTTL)
	f.clearSession(ctx, in.UserID)

	f.metrics.CheckoutIssued(string(quote.Target), quote.IsUpgrade())
	f.log.Info().
		Int64("user_id", in.UserID).
		Str("tier", string(quote.Target)).
		Str("current", string(quote.Current)).
		Int("price", quote.Price).
		Int("credit", quote.Credit).
		Msg("Checkout issued")
	return nil
}

func (f *Flow) clearSession(ctx context.Context, userID int64) {
	if err := f.sessions.Clear(ctx, userID); err != nil {
		f.log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to clear session")
	}
}

// unavailable logs a store failure and tells the user to retry later.
func (f *Flow) unavailable(ctx context.Context, in ui.Inbound, cause error) error {
	f.log.Error().Err(cause).Int64("user_id", in.UserID).Msg("Tariff flow failed")
	_, err := f.ui.SendTransient(ctx, in, ui.ServiceUnavailable(), ui.DefaultTTL)
	return err
}
