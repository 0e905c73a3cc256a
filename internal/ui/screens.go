package ui

import (
	"fmt"
	"strings"
	"time"

	"fitdew-bot/internal/models"
	"fitdew-bot/internal/tariff"
)

const dateLayout = "02.01.2006"

func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func HomeScreen(u *models.User, now time.Time) Message {
	return Message{
		Text:   "🏠 Главное меню клиента",
		Markup: ClientKeyboard(u.IsActive(now), u.IsAdmin()),
	}
}

func WelcomeScreen() Message {
	return Message{
		Text:   "👋 Добро пожаловать!\nВыберите тариф, чтобы начать тренировки с нами 🚀",
		Markup: ClientKeyboard(false, false),
	}
}

func TariffListScreen(change bool) Message {
	text := "Выберите подходящий тариф:"
	if change {
		text = "Выберите новый тариф:"
	}
	return Message{Text: text, Markup: TariffsKeyboard()}
}

func TariffStatusScreen(u *models.User, now time.Time) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "У вас куплен тариф: *%s*", u.Tier().Name())
	if mode := u.TierMode(); mode.Valid() {
		fmt.Fprintf(&b, "\nРежим тренировок: %s", mode.Name())
	}
	b.WriteString("\n" + expiryLine(u, now))
	return Message{Text: b.String(), Markup: StatusKeyboard(), Markdown: true}
}

func StaffTariffScreen(u *models.User) Message {
	return Message{
		Text:   "ℹ️ Для вашей роли покупка тарифа не требуется.",
		Markup: ClientKeyboard(true, u.IsAdmin()),
	}
}

func TierScreen(tier tariff.Tier, mode tariff.Mode, prices tariff.Prices) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "🧾 *%s*\n\nСтоимость: %d ₽ за %d дней.", tier.Name(), prices.Of(tier), tariff.PeriodDays)
	if tier.HasCuratorChat() {
		b.WriteString("\nВключает чат с персональным куратором.")
	}
	if tier.RequiresMode() {
		if mode.Valid() {
			fmt.Fprintf(&b, "\n\nРежим тренировок: *%s*. Нажмите «Купить», чтобы оформить.", mode.Name())
		} else {
			b.WriteString("\n\nВыберите режим тренировок: Зал или Кроссфит.")
		}
	}
	return Message{Text: b.String(), Markup: TierKeyboard(tier), Markdown: true}
}

func ProfileScreen(u *models.User, now time.Time) Message {
	if u == nil {
		return Message{
			Text:   "👤 Профиль не найден. Выберите тариф, чтобы начать.",
			Markup: ClientKeyboard(false, false),
		}
	}

	var b strings.Builder
	b.WriteString("👤 Профиль\n")
	if name := u.DisplayName(); name != "" {
		fmt.Fprintf(&b, "\nИмя: %s", name)
	}
	switch {
	case u.IsStaff():
		b.WriteString("\nРоль: сотрудник")
	case u.IsActive(now):
		fmt.Fprintf(&b, "\nТариф: %s", u.Tier().Name())
		if mode := u.TierMode(); mode.Valid() {
			fmt.Fprintf(&b, "\nРежим: %s", mode.Name())
		}
		b.WriteString("\n" + expiryLine(u, now))
		if u.Tier().HasCuratorChat() {
			b.WriteString("\n" + curatorLine(u))
		}
	default:
		b.WriteString("\nТариф: нет активного тарифа")
	}

	return Message{Text: b.String(), Markup: ClientKeyboard(u.IsActive(now) || u.IsStaff(), u.IsAdmin())}
}

// CuratorFollowUp is sent after a chat tier has been paid for.
func CuratorFollowUp(u *models.User) Message {
	if u.HasCurator() {
		return Message{Text: "🤝 " + curatorLine(u) + " Чат с куратором уже доступен."}
	}
	return Message{Text: "🤝 Куратор будет назначен в ближайшее время, мы пришлём уведомление."}
}

func PaymentConfirmed(tier tariff.Tier, expiresAt time.Time) Message {
	return Message{
		Text:     fmt.Sprintf("✅ Поздравляем! Вы оформили тариф *%s* до %s.", tier.Name(), FormatDate(expiresAt)),
		Markdown: true,
	}
}

func ReminderMessage(tier tariff.Tier, expiresAt time.Time, days int) Message {
	return Message{
		Text: fmt.Sprintf("⏳ Ваш тариф *%s* заканчивается через %d дн. (%s).\nПродлите его в разделе «Тариф», чтобы не потерять доступ.",
			tier.Name(), days, FormatDate(expiresAt)),
		Markdown: true,
	}
}

func expiryLine(u *models.User, now time.Time) string {
	if u.TariffExpiresAt == nil {
		return "Срок действия: без ограничения"
	}
	days := tariff.RemainingDays(u.TariffExpiresAt.Sub(now))
	return fmt.Sprintf("Действует до: %s (осталось %d дн.)", FormatDate(*u.TariffExpiresAt), days)
}

func curatorLine(u *models.User) string {
	if u.Trainer != nil {
		if name := u.Trainer.DisplayName(); name != "" {
			return fmt.Sprintf("Ваш куратор: %s.", name)
		}
	}
	if u.HasCurator() {
		return "Куратор назначен."
	}
	return "Куратор ещё не назначен."
}

func DetailsScreen(prices tariff.Prices) Message {
	var b strings.Builder
	b.WriteString("📋 *Тарифы*\n")
	for _, tier := range tariff.Tiers {
		fmt.Fprintf(&b, "\n• %s: %d ₽ / %d дней", tier.Name(), prices.Of(tier), tariff.PeriodDays)
		if tier.RequiresMode() {
			b.WriteString(", режим Зал или Кроссфит")
		}
		if tier.HasCuratorChat() {
			b.WriteString(", чат с куратором")
		}
	}
	return Message{Text: b.String(), Markdown: true}
}

func ConsultScreen() Message {
	return Message{Text: "📞 Оставьте заявку в приложении, и куратор свяжется с вами для бесплатной консультации."}
}

// LinkScreen opens a web app. An empty url means the link is not configured.
func LinkScreen(label, url string) Message {
	if url == "" {
		return Message{Text: "⚠️ Ссылка пока недоступна."}
	}
	return Message{Text: "👇 " + label, Markup: WebAppKeyboard(label, url)}
}

func ChooseTierFirst() Message {
	return Message{Text: "Сначала выберите тариф.", Markup: TariffsKeyboard()}
}

func AlreadyAtTier(current tariff.Tier) Message {
	return Message{Text: fmt.Sprintf("ℹ️ У вас уже есть тариф «%s» того же или более высокого уровня.", current.Name())}
}

func PaymentsUnavailable() Message {
	return Message{Text: "⚠️ Оплата временно недоступна: платёжный провайдер не настроен."}
}

func ServiceUnavailable() Message {
	return Message{Text: "⚠️ Сервис временно недоступен, попробуйте позже."}
}

// InvoiceText returns the checkout title, description and line item label.
func InvoiceText(q tariff.Quote) (title, description, label string) {
	title = fmt.Sprintf("Тариф «%s»", q.Target.Name())
	label = fmt.Sprintf("%s, %d дней", q.Target.Name(), tariff.PeriodDays)
	if q.IsUpgrade() {
		description = fmt.Sprintf("Повышение с «%s» до «%s». Учтён остаток текущего тарифа: %d ₽ (%d дн.).",
			q.Current.Name(), q.Target.Name(), q.Credit, q.RemainingDays)
		return title, description, label
	}
	description = fmt.Sprintf("Доступ к тарифу «%s» на %d дней.", q.Target.Name(), tariff.PeriodDays)
	return title, description, label
}
