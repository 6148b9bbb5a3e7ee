package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"economy-bot/internal/models"
)

const (
	buttonProfile  = "👤 Профиль"
	buttonDeposit  = "💰 Пополнить"
	buttonWithdraw = "💸 Вывод"
	buttonSupport  = "🤝 Поддержать"
	buttonNewCheck = "🎫 Создать чек"
	buttonEditDB   = "🗃️ Редактировать БД"
)

func mainKeyboard(isAdmin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonProfile),
			tgbotapi.NewKeyboardButton(buttonDeposit),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonWithdraw),
			tgbotapi.NewKeyboardButton(buttonSupport),
		),
	}

	if isAdmin {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(buttonNewCheck),
			tgbotapi.NewKeyboardButton(buttonEditDB),
		))
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func currencyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍌 Бананы", "currency_bananas"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Звезды", "currency_stars"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎂 Торты", "currency_cakes"),
		),
	)
}

func editCurrencyKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🍌 Бананы", "edit_bananas"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Звезды", "edit_stars"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎂 Торты", "edit_cakes"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Личные звезды", "edit_personal_stars"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🌟 Звезды бота", "edit_bot_stars"),
		),
	)
}

func activateCheckKeyboard(code string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 Получить награду", "activate_"+code),
		),
	)
}

func supportKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Поддержать 2000 звезд", "support_2000"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Поддержать 70000 звезд", "support_70000"),
		),
	)
}

var currencyTitles = map[models.Currency]string{
	models.CurrencyBananas:       "🍌 Бананы",
	models.CurrencyStars:         "⭐ Звезды",
	models.CurrencyCakes:         "🎂 Торты",
	models.CurrencyPersonalStars: "⭐ Личные звезды",
	models.CurrencyBotStars:      "🌟 Звезды бота",
}

var currencyRewards = map[models.Currency]string{
	models.CurrencyBananas: "🍌 бананов",
	models.CurrencyStars:   "⭐ звезд",
	models.CurrencyCakes:   "🎂 тортов",
}

func formatProfile(user *models.User) string {
	return fmt.Sprintf(
		"👤 *Ваш профиль*\n\n"+
			"🆔 ID: `%d`\n"+
			"👤 Username: @%s\n"+
			"🔑 Код: `%s`\n\n"+
			"💰 *Баланс:*\n"+
			"🍌 Бананы: %d\n"+
			"⭐ Звезды: %d\n"+
			"🎂 Торты: %d\n"+
			"⭐ Личные звезды: %d\n"+
			"🌟 Звезды бота: %d",
		user.UserID, user.Username, user.QKCode,
		user.Bananas, user.Stars, user.Cakes,
		user.PersonalStars, user.BotStars,
	)
}

func formatStats(stats *models.Stats) string {
	return fmt.Sprintf(
		"📊 *Статистика бота:*\n"+
			"👥 Пользователей: %d\n"+
			"🍌 Всего бананов: %d\n"+
			"⭐ Всего звезд: %d\n"+
			"🎂 Всего тортов: %d\n"+
			"⭐ Личных звезд: %d\n"+
			"🌟 Звезд бота: %d\n"+
			"🎫 Всего чеков: %d\n"+
			"🎯 Всего активаций: %d\n"+
			"💸 Заявок на вывод: %d",
		stats.TotalUsers, stats.TotalBananas, stats.TotalStars,
		stats.TotalCakes, stats.TotalPersonalStars, stats.TotalBotStars,
		stats.TotalChecks, stats.TotalActivations, stats.TotalWithdrawals,
	)
}
