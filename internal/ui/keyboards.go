package ui

import (
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"fitdew-bot/internal/tariff"
)

// Reply keyboard labels. Inbound text is matched against these.
const (
	BtnTariff  = "Тариф"
	BtnProfile = "Профиль"
	BtnMenu    = "Меню"
	BtnHome    = "🏠 На главную"
	BtnBack    = "⬅️ Назад"
	BtnChange  = "✏️ Изменить"
	BtnBuy     = "💳 Купить"
	BtnApp     = "Приложение"
	BtnAdmin   = "Управление программами"
	BtnDetails = "Подробное описание"
	BtnConsult = "Бесплатная консультация"

	btnLegacyOptimal = "🤑 Выгодный"
)

var tierButtons = map[tariff.Tier]string{
	tariff.Base:    "💼 Базовый",
	tariff.Optimal: "🤑 Оптимальный",
	tariff.Maximum: "💎 Максимум",
}

var modeButtons = map[tariff.Mode]string{
	tariff.ModeGym:      "🏋️ Зал",
	tariff.ModeCrossfit: "🤸 Кроссфит",
}

// TierFromButton maps a tier button label to its tier.
func TierFromButton(text string) (tariff.Tier, bool) {
	if text == btnLegacyOptimal {
		return tariff.Optimal, true
	}
	for tier, label := range tierButtons {
		if label == text {
			return tier, true
		}
	}
	return tariff.None, false
}

// ModeFromButton maps a mode button label to its mode.
func ModeFromButton(text string) (tariff.Mode, bool) {
	for mode, label := range modeButtons {
		if label == text {
			return mode, true
		}
	}
	return tariff.ModeNone, false
}

func replyKeyboard(rows ...[]telego.KeyboardButton) *telego.ReplyKeyboardMarkup {
	return tu.Keyboard(rows...).WithResizeKeyboard().WithIsPersistent()
}

// ClientKeyboard is the home menu; it changes once the user holds a tier.
func ClientKeyboard(hasTariff, isAdmin bool) *telego.ReplyKeyboardMarkup {
	var rows [][]telego.KeyboardButton
	if hasTariff {
		rows = [][]telego.KeyboardButton{
			tu.KeyboardRow(tu.KeyboardButton(BtnTariff), tu.KeyboardButton(BtnProfile)),
			tu.KeyboardRow(tu.KeyboardButton(BtnApp)),
		}
	} else {
		rows = [][]telego.KeyboardButton{
			tu.KeyboardRow(tu.KeyboardButton(BtnDetails)),
			tu.KeyboardRow(tu.KeyboardButton(BtnTariff), tu.KeyboardButton(BtnProfile)),
			tu.KeyboardRow(tu.KeyboardButton(BtnConsult)),
		}
	}
	if isAdmin {
		rows = append(rows, tu.KeyboardRow(tu.KeyboardButton(BtnAdmin)))
	}
	return replyKeyboard(rows...)
}

func TariffsKeyboard() *telego.ReplyKeyboardMarkup {
	return replyKeyboard(
		tu.KeyboardRow(tu.KeyboardButton(tierButtons[tariff.Base])),
		tu.KeyboardRow(tu.KeyboardButton(tierButtons[tariff.Optimal])),
		tu.KeyboardRow(tu.KeyboardButton(tierButtons[tariff.Maximum])),
		tu.KeyboardRow(tu.KeyboardButton(BtnBack)),
	)
}

// TierKeyboard offers the mode choice for tiers that need one.
func TierKeyboard(tier tariff.Tier) *telego.ReplyKeyboardMarkup {
	if tier.RequiresMode() {
		return replyKeyboard(
			tu.KeyboardRow(
				tu.KeyboardButton(modeButtons[tariff.ModeGym]),
				tu.KeyboardButton(modeButtons[tariff.ModeCrossfit]),
			),
			tu.KeyboardRow(tu.KeyboardButton(BtnBuy)),
			tu.KeyboardRow(tu.KeyboardButton(BtnBack)),
		)
	}
	return replyKeyboard(
		tu.KeyboardRow(tu.KeyboardButton(BtnBuy)),
		tu.KeyboardRow(tu.KeyboardButton(BtnBack)),
	)
}

func StatusKeyboard() *telego.ReplyKeyboardMarkup {
	return replyKeyboard(
		tu.KeyboardRow(tu.KeyboardButton(BtnChange)),
		tu.KeyboardRow(tu.KeyboardButton(BtnHome)),
	)
}

// WebAppKeyboard is an inline button opening a web app.
func WebAppKeyboard(label, url string) *telego.InlineKeyboardMarkup {
	return tu.InlineKeyboard(
		tu.InlineKeyboardRow(
			tu.InlineKeyboardButton(label).WithWebApp(&telego.WebAppInfo{URL: url}),
		),
	)
}
