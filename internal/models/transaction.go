package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies ledger entries
type TransactionType string

const (
	TxLoanDisbursement TransactionType = "loan_disbursement"
	TxLoanPayment      TransactionType = "loan_payment"
	TxCardLoad         TransactionType = "card_load"
	TxPurchase         TransactionType = "purchase"
)

// TransactionStatus is the settlement state of a ledger entry
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// Transaction represents a balance-affecting event.
// Amount is signed: negative values are debits.
type Transaction struct {
	ID          string            `json:"id"`
	Type        TransactionType   `json:"type"`
	Amount      decimal.Decimal   `json:"amount"`
	Description string            `json:"description"`
	OccurredAt  time.Time         `json:"occurred_at"`
	Status      TransactionStatus `json:"status"`
	LoanID      string            `json:"loan_id,omitempty"`
}
