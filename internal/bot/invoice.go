package bot

import (
	"context"
	"encoding/json"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// starsCurrency is Telegram's digital-stars currency code. Stars invoices
// take an empty provider token.
const starsCurrency = "XTR"

// invoiceIssuer implements payment.InvoiceIssuer on top of the Bot API's
// createInvoiceLink method, which the library does not wrap.
type invoiceIssuer struct {
	api *tgbotapi.BotAPI
}

func (i invoiceIssuer) IssueInvoice(ctx context.Context, title, description, payload string, amount int64) (string, error) {
	prices, err := json.Marshal([]tgbotapi.LabeledPrice{
		{Label: fmt.Sprintf("%s %d звезд", title, amount), Amount: int(amount)},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode prices: %w", err)
	}

	params := make(tgbotapi.Params)
	params["title"] = title
	params["description"] = description
	params["payload"] = payload
	params["provider_token"] = ""
	params["currency"] = starsCurrency
	params["prices"] = string(prices)

	done := make(chan struct{})
	var (
		resp   *tgbotapi.APIResponse
		reqErr error
	)
	go func() {
		resp, reqErr = i.api.MakeRequest("createInvoiceLink", params)
		close(done)
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-done:
	}

	if reqErr != nil {
		return "", fmt.Errorf("createInvoiceLink failed: %w", reqErr)
	}

	var link string
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("failed to decode invoice link: %w", err)
	}
	return link, nil
}
