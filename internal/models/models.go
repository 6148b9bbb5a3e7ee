package models

import (
	"time"
)

// Currency is the closed set of balance columns a user carries.
// The store maps each value to its own column; free-form strings are
// never interpolated into queries.
type Currency string

const (
	CurrencyBananas       Currency = "bananas"
	CurrencyStars         Currency = "stars"
	CurrencyCakes         Currency = "cakes"
	CurrencyPersonalStars Currency = "personal_stars"
	CurrencyBotStars      Currency = "bot_stars"
)

// RedeemableCurrencies are the currencies a check may pay out in.
var RedeemableCurrencies = []Currency{CurrencyBananas, CurrencyStars, CurrencyCakes}

// Valid reports whether c is one of the five known currencies.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyBananas, CurrencyStars, CurrencyCakes, CurrencyPersonalStars, CurrencyBotStars:
		return true
	}
	return false
}

// Redeemable reports whether a check may be denominated in c.
func (c Currency) Redeemable() bool {
	switch c {
	case CurrencyBananas, CurrencyStars, CurrencyCakes:
		return true
	}
	return false
}

type User struct {
	UserID         int64     `json:"user_id"`
	Username       string    `json:"username"`
	QKCode         string    `json:"qk_code"`
	Bananas        int64     `json:"bananas"`
	Stars          int64     `json:"stars"`
	Cakes          int64     `json:"cakes"`
	PersonalStars  int64     `json:"personal_stars"`
	BotStars       int64     `json:"bot_stars"`
	RegisteredAt   time.Time `json:"registered_at"`
}

// Balance returns the user's balance for the given currency.
func (u *User) Balance(c Currency) int64 {
	switch c {
	case CurrencyBananas:
		return u.Bananas
	case CurrencyStars:
		return u.Stars
	case CurrencyCakes:
		return u.Cakes
	case CurrencyPersonalStars:
		return u.PersonalStars
	case CurrencyBotStars:
		return u.BotStars
	}
	return 0
}

type Check struct {
	Code           string    `json:"code"`
	Amount         int64     `json:"amount"`
	Currency       Currency  `json:"currency"`
	Activations    int       `json:"activations"`
	MaxActivations int       `json:"max_activations"`
	CreatorID      int64     `json:"creator_id"`
	CreatedAt      time.Time `json:"created_at"`
	IsActive       bool      `json:"is_active"`
}

// Exhausted reports whether the check has reached its activation limit.
func (c *Check) Exhausted() bool {
	return c.Activations >= c.MaxActivations
}

type CheckActivation struct {
	CheckCode   string    `json:"check_code"`
	UserID      int64     `json:"user_id"`
	ActivatedAt time.Time `json:"activated_at"`
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
)

type PaymentType string

const (
	PaymentDeposit PaymentType = "deposit"
	PaymentSupport PaymentType = "support"
)

type Transaction struct {
	TransactionID string            `json:"transaction_id"`
	UserID        int64             `json:"user_id"`
	Amount        int64             `json:"amount"`
	Status        TransactionStatus `json:"status"`
	PaymentType   PaymentType       `json:"payment_type"`
	CreatedAt     time.Time         `json:"created_at"`
}

type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

type Withdrawal struct {
	WithdrawalID string           `json:"withdrawal_id"`
	UserID       int64            `json:"user_id"`
	Amount       int64            `json:"amount"`
	Status       WithdrawalStatus `json:"status"`
	CreatedAt    time.Time        `json:"created_at"`
}

// Stats is an aggregate snapshot over the whole ledger, shown to the admin.
type Stats struct {
	TotalUsers         int   `json:"total_users"`
	TotalBananas       int64 `json:"total_bananas"`
	TotalStars         int64 `json:"total_stars"`
	TotalCakes         int64 `json:"total_cakes"`
	TotalPersonalStars int64 `json:"total_personal_stars"`
	TotalBotStars      int64 `json:"total_bot_stars"`
	TotalChecks        int   `json:"total_checks"`
	TotalActivations   int64 `json:"total_activations"`
	TotalWithdrawals   int   `json:"total_withdrawals"`
}
