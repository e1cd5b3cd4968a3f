package models

import "github.com/shopspring/decimal"

// CardAccount represents the spendable card balance
type CardAccount struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
}
