package models

import "github.com/shopspring/decimal"

// CreditLine represents the borrowing capacity of the card holder.
// Used + Available always equals Limit.
type CreditLine struct {
	Limit     decimal.Decimal `json:"limit"`
	Used      decimal.Decimal `json:"used"`
	Available decimal.Decimal `json:"available"`
}
