// Package bot is the Telegram presentation layer: it resolves conversation
// state for each inbound update, forwards validated parameters to the flow
// controllers and renders their results as chat messages.
package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"economy-bot/internal/checks"
	"economy-bot/internal/models"
	"economy-bot/internal/payment"
	"economy-bot/internal/users"
	"economy-bot/internal/withdraw"
	"economy-bot/pkg/logger"
)

const (
	handlerTimeout = 30 * time.Second

	// stateCacheSize bounds the number of in-flight conversations.
	stateCacheSize = 4096
)

type Bot struct {
	api         *tgbotapi.BotAPI
	users       *users.Service
	checks      *checks.Engine
	payments    *payment.Controller
	withdrawals *withdraw.Controller
	logger      *logger.Logger
	states      *stateStore
	adminID     int64
}

func New(token string, usersSvc *users.Service, checksEng *checks.Engine, withdrawals *withdraw.Controller, adminID int64, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	log.Info("Authorized on Telegram", "username", api.Self.UserName)

	states, err := newStateStore(stateCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create state store: %w", err)
	}

	return &Bot{
		api:         api,
		users:       usersSvc,
		checks:      checksEng,
		withdrawals: withdrawals,
		logger:      log,
		states:      states,
		adminID:     adminID,
	}, nil
}

// InvoiceIssuer returns the payment-provider capability backed by this bot's
// Telegram connection.
func (b *Bot) InvoiceIssuer() payment.InvoiceIssuer {
	return invoiceIssuer{api: b.api}
}

// SetPayments wires the payment controller (constructed after the bot, since
// the controller needs the bot's invoice issuer).
func (b *Bot) SetPayments(p *payment.Controller) {
	b.payments = p
}

// Start removes any existing webhook and begins long polling.
func (b *Bot) Start(ctx context.Context) error {
	_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{DropPendingUpdates: true})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := b.api.GetUpdatesChan(updateConfig)
	b.logger.Info("Started receiving Telegram updates")

	go b.handleUpdates(ctx, updates)

	return nil
}

// Stop gracefully shuts down the bot.
func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}

func (b *Bot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		go func(update tgbotapi.Update) {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("Recovered from panic while processing update", "error", r)
				}
			}()

			hctx, cancel := context.WithTimeout(ctx, handlerTimeout)
			defer cancel()

			switch {
			case update.PreCheckoutQuery != nil:
				b.handlePreCheckout(hctx, update.PreCheckoutQuery)
			case update.Message != nil && update.Message.SuccessfulPayment != nil:
				b.handleSuccessfulPayment(hctx, update.Message)
			case update.Message != nil && update.Message.IsCommand():
				b.handleCommand(hctx, update.Message)
			case update.Message != nil:
				b.handleMessage(hctx, update.Message)
			case update.CallbackQuery != nil:
				b.handleCallback(hctx, update.CallbackQuery)
			}
		}(update)
	}
}

func (b *Bot) isAdmin(userID int64) bool {
	return userID == b.adminID
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	switch message.Command() {
	case "start":
		if arg := strings.TrimSpace(message.CommandArguments()); arg != "" {
			b.handleCheckDeepLink(ctx, message, arg)
			return
		}
		b.handleStart(ctx, message)

	case "help":
		b.send(tgbotapi.NewMessage(chatID,
			"Я бот виртуальной экономики. Используйте кнопки меню для работы с балансом, чеками и выводом средств."))

	case "approve":
		b.handleSettleCommand(ctx, message, models.WithdrawalApproved)

	case "reject":
		b.handleSettleCommand(ctx, message, models.WithdrawalRejected)

	default:
		b.send(tgbotapi.NewMessage(chatID, "Неизвестная команда. Используйте /start для начала работы."))
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID
	username := displayName(message.From)

	b.states.clear(userID)

	qkCode, created, err := b.users.Register(ctx, userID, username)
	if err != nil {
		b.logger.Error("Failed to register user", "error", err, "user_id", userID)
		b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
		return
	}

	if created {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"✅ Регистрация успешно завершена!\nВаш уникальный код: `%s`", qkCode))
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.ReplyMarkup = mainKeyboard(b.isAdmin(userID))
		b.send(msg)
		return
	}

	msg := tgbotapi.NewMessage(chatID, "🌟 Доброго времени суток!")
	msg.ReplyMarkup = mainKeyboard(b.isAdmin(userID))
	b.send(msg)
}

// handleCheckDeepLink serves /start <code> links: the user is registered if
// needed, the check is previewed and redemption is confirmed via a button.
func (b *Bot) handleCheckDeepLink(ctx context.Context, message *tgbotapi.Message, code string) {
	userID := message.From.ID
	chatID := message.Chat.ID

	qkCode, created, err := b.users.Register(ctx, userID, displayName(message.From))
	if err != nil {
		b.logger.Error("Failed to register user", "error", err, "user_id", userID)
		b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
		return
	}
	if created {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"👋 Добро пожаловать! Вы зарегистрированы в системе.\nВаш уникальный код: `%s`", qkCode))
		msg.ParseMode = tgbotapi.ModeMarkdown
		b.send(msg)
	}

	check, err := b.checks.Get(ctx, code)
	switch {
	case errors.Is(err, checks.ErrNotFound):
		msg := tgbotapi.NewMessage(chatID, "❌ Чек не найден или недействителен.")
		msg.ReplyMarkup = mainKeyboard(b.isAdmin(userID))
		b.send(msg)
		return
	case err != nil:
		b.logger.Error("Failed to load check", "error", err, "code", code)
		b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
		return
	}

	if check.Exhausted() {
		msg := tgbotapi.NewMessage(chatID, "❌ Лимит активаций чека исчерпан.")
		msg.ReplyMarkup = mainKeyboard(b.isAdmin(userID))
		b.send(msg)
		return
	}
	if !check.IsActive {
		msg := tgbotapi.NewMessage(chatID, "❌ Этот чек уже использован.")
		msg.ReplyMarkup = mainKeyboard(b.isAdmin(userID))
		b.send(msg)
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"🎁 *Чек найден!*\n\n"+
			"💰 Награда: %d %s\n"+
			"🎯 Активаций: %d/%d\n\n"+
			"Хотите получить награду?",
		check.Amount, currencyTitles[check.Currency],
		check.Activations, check.MaxActivations))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = activateCheckKeyboard(code)
	b.send(msg)
}

// handleSettleCommand serves /approve <id> and /reject <id> from the admin.
func (b *Bot) handleSettleCommand(ctx context.Context, message *tgbotapi.Message, status models.WithdrawalStatus) {
	chatID := message.Chat.ID

	if !b.isAdmin(message.From.ID) {
		b.send(tgbotapi.NewMessage(chatID, "❌ У вас нет доступа к этой функции"))
		return
	}

	withdrawalID := strings.TrimSpace(message.CommandArguments())
	if withdrawalID == "" {
		b.send(tgbotapi.NewMessage(chatID, "Укажите ID заявки: /approve WD-XXXXXXXX"))
		return
	}

	w, err := b.withdrawals.Settle(ctx, withdrawalID, status)
	switch {
	case errors.Is(err, withdraw.ErrNotFound):
		b.send(tgbotapi.NewMessage(chatID, "❌ Заявка не найдена"))
		return
	case errors.Is(err, withdraw.ErrAlreadySettled):
		b.send(tgbotapi.NewMessage(chatID, "❌ Заявка уже обработана"))
		return
	case err != nil:
		b.logger.Error("Failed to settle withdrawal", "error", err, "withdrawal_id", withdrawalID)
		b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
		return
	}

	if status == models.WithdrawalApproved {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("✅ Заявка `%s` одобрена", withdrawalID)))
		b.notify(w.UserID, fmt.Sprintf(
			"✅ Ваша заявка на вывод `%s` одобрена!\n💰 Сумма: %d звезд", withdrawalID, w.Amount))
	} else {
		b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf("❌ Заявка `%s` отклонена, средства возвращены", withdrawalID)))
		b.notify(w.UserID, fmt.Sprintf(
			"❌ Ваша заявка на вывод `%s` отклонена.\n💰 %d звезд возвращены на ваш баланс.", withdrawalID, w.Amount))
	}
}

// handleMessage routes free text by the user's conversation state.
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	userID := message.From.ID
	chatID := message.Chat.ID
	text := message.Text

	switch text {
	case buttonProfile:
		b.handleProfile(ctx, message)
		return
	case buttonDeposit:
		b.startDepositFlow(message)
		return
	case buttonWithdraw:
		b.startWithdrawFlow(ctx, message)
		return
	case buttonSupport:
		b.handleSupport(message)
		return
	case buttonNewCheck:
		b.startCreateCheckFlow(ctx, message)
		return
	case buttonEditDB:
		b.startEditBalanceFlow(ctx, message)
		return
	}

	conv, ok := b.states.get(userID)
	if !ok || conv.Flow == FlowNone {
		b.send(tgbotapi.NewMessage(chatID, "Пожалуйста, используйте кнопки меню или /start."))
		return
	}

	switch conv.Flow {
	case FlowDeposit:
		b.handleDepositAmount(ctx, message)
	case FlowWithdraw:
		b.handleWithdrawAmount(ctx, message)
	case FlowCreateCheck:
		b.handleCreateCheckInput(ctx, message, conv)
	case FlowEditBalance:
		b.handleEditBalanceInput(ctx, message, conv)
	}
}

func (b *Bot) handleCallback(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	data := callback.Data

	switch {
	case strings.HasPrefix(data, "activate_"):
		b.handleActivateCallback(ctx, callback, strings.TrimPrefix(data, "activate_"))
	case strings.HasPrefix(data, "support_"):
		b.handleSupportCallback(ctx, callback, strings.TrimPrefix(data, "support_"))
	case strings.HasPrefix(data, "currency_"):
		b.handleCheckCurrencyCallback(callback, strings.TrimPrefix(data, "currency_"))
	case strings.HasPrefix(data, "edit_"):
		b.handleEditCurrencyCallback(ctx, callback, strings.TrimPrefix(data, "edit_"))
	default:
		b.answerCallback(callback.ID, "")
	}
}

func (b *Bot) handleProfile(ctx context.Context, message *tgbotapi.Message) {
	user, err := b.users.Profile(ctx, message.From.ID)
	if errors.Is(err, users.ErrNotFound) {
		b.send(tgbotapi.NewMessage(message.Chat.ID, "❌ Ошибка: профиль не найден"))
		return
	}
	if err != nil {
		b.logger.Error("Failed to load profile", "error", err, "user_id", message.From.ID)
		b.send(tgbotapi.NewMessage(message.Chat.ID, "❌ Произошла ошибка. Попробуйте позже."))
		return
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, formatProfile(user))
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)
}

func (b *Bot) handleSupport(message *tgbotapi.Message) {
	msg := tgbotapi.NewMessage(message.Chat.ID,
		"🤝 *Поддержать бота*\n\nВыберите сумму для поддержки разработчиков:")
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = supportKeyboard()
	b.send(msg)
}

func (b *Bot) handlePreCheckout(ctx context.Context, query *tgbotapi.PreCheckoutQuery) {
	err := b.payments.PreAuthorize(ctx, query.InvoicePayload)

	answer := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 err == nil,
	}
	if err != nil {
		answer.ErrorMessage = "Транзакция не найдена или уже обработана"
	}

	if _, err := b.api.Request(answer); err != nil {
		b.logger.Error("Failed to answer pre-checkout query", "error", err)
	}
}

func (b *Bot) handleSuccessfulPayment(ctx context.Context, message *tgbotapi.Message) {
	pay := message.SuccessfulPayment
	chatID := message.Chat.ID
	username := displayName(message.From)

	txn, err := b.payments.Confirm(ctx, pay.InvoicePayload, int64(pay.TotalAmount))
	switch {
	case errors.Is(err, payment.ErrNotFound):
		b.send(tgbotapi.NewMessage(chatID, "❌ Ошибка: транзакция не найдена"))
		return
	case errors.Is(err, payment.ErrAlreadyCompleted):
		// Duplicate provider callback; the credit already happened.
		b.logger.Warn("Duplicate payment confirmation", "transaction_id", pay.InvoicePayload)
		return
	case err != nil:
		b.logger.Error("Failed to confirm payment", "error", err, "transaction_id", pay.InvoicePayload)
		b.send(tgbotapi.NewMessage(chatID, "❌ Произошла ошибка. Попробуйте позже."))
		return
	}

	if txn.PaymentType == models.PaymentDeposit {
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
			"✅ *Пополнение успешно!*\n\n"+
				"💰 На ваш личный баланс зачислено %d звезд\n"+
				"🎉 Теперь вы можете использовать их в боте!", pay.TotalAmount))
		msg.ParseMode = tgbotapi.ModeMarkdown
		b.send(msg)

		b.notifyAdmin(fmt.Sprintf(
			"💰 *Пополнение баланса!*\n\n"+
				"👤 Пользователь: @%s (ID: %d)\n"+
				"💰 Сумма: %d звезд\n"+
				"🆔 Транзакция: `%s`",
			username, message.From.ID, pay.TotalAmount, txn.TransactionID))
		return
	}

	msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"🤝 *Спасибо за поддержку!*\n\n"+
			"💝 Вы поддержали разработчиков на %d звезд\n"+
			"🙏 Ваша поддержка очень важна для развития бота!", pay.TotalAmount))
	msg.ParseMode = tgbotapi.ModeMarkdown
	b.send(msg)

	b.notifyAdmin(fmt.Sprintf(
		"🤝 *Поддержка бота!*\n\n"+
			"👤 Пользователь: @%s (ID: %d)\n"+
			"💝 Сумма поддержки: %d звезд\n"+
			"🆔 Транзакция: `%s`",
		username, message.From.ID, pay.TotalAmount, txn.TransactionID))
}

func (b *Bot) send(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message", "error", err, "chat_id", msg.ChatID)
	}
}

// notify delivers a message to a user's private chat, best effort.
func (b *Bot) notify(userID int64, text string) {
	msg := tgbotapi.NewMessage(userID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("Failed to notify user", "error", err, "user_id", userID)
	}
}

// notifyAdmin alerts the admin account. Failures are logged and never affect
// the primary operation.
func (b *Bot) notifyAdmin(text string) {
	msg := tgbotapi.NewMessage(b.adminID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Warn("Failed to notify admin", "error", err)
	}
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		b.logger.Error("Failed to answer callback", "error", err)
	}
}

func (b *Bot) alertCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(id, text)); err != nil {
		b.logger.Error("Failed to answer callback", "error", err)
	}
}

func displayName(from *tgbotapi.User) string {
	if from.UserName != "" {
		return from.UserName
	}
	return "Без username"
}

func parsePositiveInt(text string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("not a positive integer: %q", text)
	}
	return n, nil
}
