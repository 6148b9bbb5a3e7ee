package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"economy-bot/internal/checks"
	"economy-bot/internal/models"
	"economy-bot/internal/payment"
	"economy-bot/internal/users"
	"economy-bot/internal/withdraw"
)

// --- deposit flow ---

func (b *Bot) startDepositFlow(message *tgbotapi.Message) {
	b.states.set(message.From.ID, &Conversation{Flow: FlowDeposit})

	b.send(tgbotapi.NewMessage(message.Chat.ID, fmt.Sprintf(
		"💰 На сколько?\n\nВведите количество звезд для пополнения (минимум %d):",
		payment.MinDeposit)))
}

func (b *Bot) handleDepositAmount(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	amount, err := parsePositiveInt(message.Text)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "❌ Введите корректное число"))
		return
	}

	b.sendInvoice(ctx, chatID, message.From.ID, amount, models.PaymentDeposit)
}

// sendInvoice creates the pending transaction and delivers the payment link.
func (b *Bot) sendInvoice(ctx context.Context, chatID, userID, amount int64, paymentType models.PaymentType) {
	invoice, err := b.payments.CreateInvoice(ctx, userID, amount, paymentType)
	switch {
	case errors.Is(err, payment.ErrBelowMinimum):
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"❌ Минимальная сумма пополнения: %d звезд", payment.MinDeposit)))
		return
	case errors.Is(err, payment.ErrProvider):
		b.logger.Error("Invoice issuance failed", "error", err, "user_id", userID)
		b.send(tgbotapi.NewMessage(chatID, "❌ Ошибка создания платежа. Попробуйте позже."))
		return
	case err != nil:
		b.logger.Error("Failed to create invoice", "error", err, "user_id", userID)
		b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
		return
	}

	b.states.clear(userID)

	title := "Пополнение баланса"
	target := "ваш баланс"
	if paymentType == models.PaymentSupport {
		title = "Поддержка бота"
		target = "поддержку бота"
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"💰 *%s*\n\n"+
			"💫 Сумма: %d звезд\n\n"+
			"🔗 Нажмите на ссылку ниже для оплаты:\n"+
			"[Оплатить %d звезд](%s)\n\n"+
			"После успешной оплаты звезды поступят на %s.",
		title, amount, amount, invoice.Link, target))
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}

// --- withdraw flow ---

func (b *Bot) startWithdrawFlow(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	user, err := b.users.Profile(ctx, userID)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "❌ Ошибка: профиль не найден"))
		return
	}

	if user.PersonalStars < withdraw.MinWithdrawal {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"❌ *Недостаточно средств для вывода*\n\n"+
				"💰 Ваш баланс: %d звезд\n"+
				"📝 Минимальная сумма вывода: %d звезд",
			user.PersonalStars, withdraw.MinWithdrawal))
		msg.ParseMode = tgbotapi.ModeMarkdown
		b.send(msg)
		return
	}

	b.states.set(userID, &Conversation{Flow: FlowWithdraw})

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"💸 *Вывод средств*\n\n"+
			"💰 Ваш баланс: %d звезд\n"+
			"📝 Минимальная сумма вывода: %d звезд\n"+
			"🎯 Максимальная сумма вывода: %d звезд\n\n"+
			"Введите сумму для вывода:",
		user.PersonalStars, withdraw.MinWithdrawal, user.PersonalStars))
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}

func (b *Bot) handleWithdrawAmount(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	amount, err := parsePositiveInt(message.Text)
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "❌ Введите корректное число"))
		return
	}

	w, err := b.withdrawals.Request(ctx, userID, amount)
	switch {
	case errors.Is(err, withdraw.ErrBelowMinimum):
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"❌ Минимальная сумма вывода: %d звезд", withdraw.MinWithdrawal)))
		return
	case errors.Is(err, withdraw.ErrInsufficientBalance):
		b.send(tgbotapi.NewMessage(chatID, "❌ Недостаточно средств на балансе"))
		return
	case err != nil:
		b.logger.Error("Failed to create withdrawal", "error", err, "user_id", userID)
		b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
		return
	}

	b.states.clear(userID)

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"✅ *Заявка на вывод создана!*\n\n"+
			"💰 Сумма: %d звезд\n"+
			"🆔 ID транзакции: `%s`\n\n"+
			"📋 Ваша заявка отправлена на обработку администратору.\n"+
			"⏰ Обработка заявок происходит в течение 24 часов.\n"+
			"✉️ Вы получите уведомление о статусе заявки.",
		w.Amount, w.WithdrawalID))
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)

	b.notifyAdmin(fmt.Sprintf(
		"💸 *Новая заявка на вывод!*\n\n"+
			"👤 Пользователь: @%s (ID: %d)\n"+
			"💰 Сумма: %d звезд\n"+
			"🆔 ID транзакции: `%s`\n\n"+
			"🔥 Средства списаны с баланса пользователя.\n"+
			"Обработка: /approve %s или /reject %s",
		displayName(message.From), userID, w.Amount, w.WithdrawalID, w.WithdrawalID, w.WithdrawalID))
}

// --- support flow ---

func (b *Bot) handleSupportCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, rawAmount string) {
	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil || amount <= 0 {
		b.answerCallback(callback.ID, "")
		return
	}

	b.sendInvoice(ctx, callback.Message.Chat.ID, callback.From.ID, amount, models.PaymentSupport)
	b.answerCallback(callback.ID, "")
}

// --- check redemption ---

func (b *Bot) handleActivateCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, code string) {
	userID := callback.From.ID
	username := displayName(callback.From)

	check, err := b.checks.Redeem(ctx, code, userID)
	switch {
	case errors.Is(err, checks.ErrNotFound), errors.Is(err, checks.ErrInactive):
		b.alertCallback(callback.ID, "❌ Чек недействителен")
		return
	case errors.Is(err, checks.ErrAlreadyActivated):
		b.alertCallback(callback.ID, "❌ Вы уже активировали этот чек")
		return
	case errors.Is(err, checks.ErrLimitReached):
		b.alertCallback(callback.ID, "❌ Лимит активаций исчерпан")
		return
	case err != nil:
		b.logger.Error("Failed to redeem check", "error", err, "code", code, "user_id", userID)
		b.alertCallback(callback.ID, "❌ Произошла ошибка. Попробуйте позже.")
		return
	}

	edit := tgbotapi.NewEditMessageText(
		callback.Message.Chat.ID, callback.Message.MessageID,
		fmt.Sprintf(
			"🎉 *Поздравляем!*\n\n"+
				"Вы получили %d %s!\n"+
				"Награда добавлена в ваш профиль.",
			check.Amount, currencyRewards[check.Currency]))
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("Failed to edit message", "error", err)
	}

	b.notifyAdmin(fmt.Sprintf(
		"🎫 *Чек активирован!*\n\n"+
			"👤 Пользователь: @%s (ID: %d)\n"+
			"🎫 Код чека: `%s`\n"+
			"💰 Награда: %d %s\n"+
			"🎯 Активаций: %d/%d",
		username, userID, code, check.Amount, currencyRewards[check.Currency],
		check.Activations, check.MaxActivations))

	if !check.IsActive {
		b.notifyAdmin(fmt.Sprintf(
			"🔚 *Чек использован!*\n\nЧек `%s` достиг лимита активаций и деактивирован.", code))
	}

	b.answerCallback(callback.ID, "")
}

// --- check creation flow (admin) ---

func (b *Bot) startCreateCheckFlow(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	if !b.isAdmin(userID) {
		b.send(tgbotapi.NewMessage(chatID, "❌ У вас нет доступа к этой функции"))
		return
	}

	stats, err := b.users.Stats(ctx)
	if err != nil {
		b.logger.Error("Failed to load stats", "error", err)
		b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
		return
	}

	b.states.set(userID, &Conversation{Flow: FlowCreateCheck, Step: StepCheckCurrency})

	msg := tgbotapi.NewMessage(chatID, formatStats(stats)+"\n\n💰 Выберите валюту для чека:")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = currencyKeyboard()
	b.send(msg)
}

func (b *Bot) handleCheckCurrencyCallback(callback *tgbotapi.CallbackQuery, rawCurrency string) {
	userID := callback.From.ID

	conv, ok := b.states.get(userID)
	if !ok || conv.Flow != FlowCreateCheck || conv.Step != StepCheckCurrency {
		b.answerCallback(callback.ID, "")
		return
	}

	currency := models.Currency(rawCurrency)
	if !currency.Redeemable() {
		b.answerCallback(callback.ID, "")
		return
	}

	conv.CheckCurrency = currency
	conv.Step = StepCheckActivations
	b.states.set(userID, conv)

	edit := tgbotapi.NewEditMessageText(
		callback.Message.Chat.ID, callback.Message.MessageID,
		fmt.Sprintf("✅ Выбрана валюта: %s\n\nВведите количество активаций чека:",
			currencyTitles[currency]))
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("Failed to edit message", "error", err)
	}
	b.answerCallback(callback.ID, "")
}

func (b *Bot) handleCreateCheckInput(ctx context.Context, message *tgbotapi.Message, conv *Conversation) {
	userID := message.From.ID
	chatID := message.Chat.ID

	switch conv.Step {
	case StepCheckActivations:
		activations, err := parsePositiveInt(message.Text)
		if err != nil {
			b.send(tgbotapi.NewMessage(chatID, "❌ Количество активаций должно быть больше 0"))
			return
		}
		conv.CheckActivations = int(activations)
		conv.Step = StepCheckAmount
		b.states.set(userID, conv)
		b.send(tgbotapi.NewMessage(chatID, "💰 Введите количество валюты:"))

	case StepCheckAmount:
		amount, err := parsePositiveInt(message.Text)
		if err != nil {
			b.send(tgbotapi.NewMessage(chatID, "❌ Количество валюты должно быть больше 0"))
			return
		}
		conv.CheckAmount = amount
		conv.Step = StepCheckCode
		b.states.set(userID, conv)
		b.send(tgbotapi.NewMessage(chatID, "🏷️ Введите код для чека (без пробелов):"))

	case StepCheckCode:
		code := message.Text

		check, err := b.checks.Create(ctx, conv.CheckCurrency, conv.CheckAmount, conv.CheckActivations, userID, code)
		switch {
		case errors.Is(err, checks.ErrInvalidInput):
			b.send(tgbotapi.NewMessage(chatID, "❌ Код должен содержать минимум 3 символа"))
			return
		case errors.Is(err, checks.ErrDuplicateCode):
			b.send(tgbotapi.NewMessage(chatID, "❌ Чек с таким кодом уже существует"))
			return
		case err != nil:
			b.logger.Error("Failed to create check", "error", err)
			b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
			return
		}

		b.states.clear(userID)

		link := fmt.Sprintf("https://t.me/%s?start=%s", b.api.Self.UserName, check.Code)
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"✅ *Ваш чек готов!*\n\n"+
				"🎫 Код: `%s`\n"+
				"💰 Награда: %d %s\n"+
				"🎯 Активаций: %d\n\n"+
				"🔗 *Ссылка на чек:*\n`%s`",
			check.Code, check.Amount, currencyTitles[check.Currency],
			check.MaxActivations, link))
		msg.ParseMode = tgbotapi.ModeMarkdown
		b.send(msg)

	default:
		b.send(tgbotapi.NewMessage(chatID, "💰 Выберите валюту с помощью кнопок выше."))
	}
}

// --- balance edit flow (admin) ---

func (b *Bot) startEditBalanceFlow(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID

	if !b.isAdmin(userID) {
		b.send(tgbotapi.NewMessage(chatID, "❌ У вас нет доступа к этой функции"))
		return
	}

	list, err := b.users.List(ctx)
	if err != nil {
		b.logger.Error("Failed to list users", "error", err)
		b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
		return
	}
	if len(list) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "❌ В базе данных нет пользователей"))
		return
	}

	var sb strings.Builder
	sb.WriteString("📋 СПИСОК ВСЕХ ПОЛЬЗОВАТЕЛЕЙ:\n\n")
	for _, u := range list {
		fmt.Fprintf(&sb, "ID: %d | @%s\n", u.UserID, u.Username)
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  "users_list.txt",
		Bytes: []byte(sb.String()),
	})
	doc.Caption = "📋 Список всех пользователей\n\nПришлите ID пользователя для редактирования:"
	if _, err := b.api.Send(doc); err != nil {
		b.logger.Error("Failed to send user list", "error", err)
		return
	}

	b.states.set(userID, &Conversation{Flow: FlowEditBalance, Step: StepEditUser})
}

func (b *Bot) handleEditBalanceInput(ctx context.Context, message *tgbotapi.Message, conv *Conversation) {
	adminID := message.From.ID
	chatID := message.Chat.ID

	switch conv.Step {
	case StepEditUser:
		targetID, err := parsePositiveInt(message.Text)
		if err != nil {
			b.send(tgbotapi.NewMessage(chatID, "❌ Введите корректный числовой ID пользователя:"))
			return
		}

		user, err := b.users.Profile(ctx, targetID)
		if errors.Is(err, users.ErrNotFound) {
			b.send(tgbotapi.NewMessage(chatID, "❌ Пользователь с таким ID не найден. Попробуйте еще раз:"))
			return
		}
		if err != nil {
			b.logger.Error("Failed to load user", "error", err, "user_id", targetID)
			b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
			return
		}

		conv.EditUserID = targetID
		conv.Step = StepEditCurrency
		b.states.set(adminID, conv)

		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"✅ *Найден пользователь:*\n"+
				"👤 @%s (ID: %d)\n\n"+
				"💰 *Текущие балансы:*\n"+
				"🍌 Бананы: %d\n"+
				"⭐ Звезды: %d\n"+
				"🎂 Торты: %d\n"+
				"⭐ Личные звезды: %d\n"+
				"🌟 Звезды бота: %d\n\n"+
				"Какую валюту хотите отредактировать?",
			user.Username, user.UserID,
			user.Bananas, user.Stars, user.Cakes, user.PersonalStars, user.BotStars))
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.ReplyMarkup = editCurrencyKeyboard()
		b.send(msg)

	case StepEditAmount:
		amount, err := strconv.ParseInt(message.Text, 10, 64)
		if err != nil {
			b.send(tgbotapi.NewMessage(chatID, "❌ Введите корректное числовое значение:"))
			return
		}
		if amount < 0 {
			b.send(tgbotapi.NewMessage(chatID, "❌ Значение не может быть отрицательным. Введите корректное число:"))
			return
		}

		user, err := b.users.Profile(ctx, conv.EditUserID)
		if err != nil {
			b.logger.Error("Failed to load user", "error", err, "user_id", conv.EditUserID)
			b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
			return
		}
		oldAmount := user.Balance(conv.EditCurrency)

		if err := b.users.SetBalance(ctx, conv.EditUserID, conv.EditCurrency, amount); err != nil {
			b.logger.Error("Failed to set balance", "error", err, "user_id", conv.EditUserID)
			b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
			return
		}

		b.states.clear(adminID)

		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"✅ *Баланс успешно изменен!*\n\n"+
				"👤 Пользователь: @%s (ID: %d)\n"+
				"💰 Валюта: %s\n"+
				"📊 Было: %d\n"+
				"📈 Стало: %d\n"+
				"🔄 Изменение: %+d",
			user.Username, user.UserID, currencyTitles[conv.EditCurrency],
			oldAmount, amount, amount-oldAmount))
		msg.ParseMode = tgbotapi.ModeMarkdown
		b.send(msg)

	default:
		b.send(tgbotapi.NewMessage(chatID, "💰 Выберите валюту с помощью кнопок выше."))
	}
}

func (b *Bot) handleEditCurrencyCallback(ctx context.Context, callback *tgbotapi.CallbackQuery, rawCurrency string) {
	adminID := callback.From.ID

	conv, ok := b.states.get(adminID)
	if !ok || conv.Flow != FlowEditBalance || conv.Step != StepEditCurrency {
		b.answerCallback(callback.ID, "")
		return
	}

	currency := models.Currency(rawCurrency)
	if !currency.Valid() {
		b.answerCallback(callback.ID, "")
		return
	}

	user, err := b.users.Profile(ctx, conv.EditUserID)
	if err != nil {
		b.logger.Error("Failed to load user", "error", err, "user_id", conv.EditUserID)
		b.answerCallback(callback.ID, "")
		return
	}

	conv.EditCurrency = currency
	conv.Step = StepEditAmount
	b.states.set(adminID, conv)

	edit := tgbotapi.NewEditMessageText(
		callback.Message.Chat.ID, callback.Message.MessageID,
		fmt.Sprintf(
			"✅ Выбрана валюта: %s\n"+
				"👤 Пользователь: @%s (ID: %d)\n\n"+
				"💰 Текущий баланс: %d\n\n"+
				"Введите новое значение (будет установлено точное значение):",
			currencyTitles[currency], user.Username, user.UserID, user.Balance(currency)))
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("Failed to edit message", "error", err)
	}
	b.answerCallback(callback.ID, "")
}
