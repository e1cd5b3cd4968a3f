package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InstallmentStatus is the payment state of a single installment
type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pending"
	InstallmentPaid    InstallmentStatus = "paid"
	InstallmentOverdue InstallmentStatus = "overdue"
)

// Installment represents one scheduled payment of a loan
type Installment struct {
	ID               string            `json:"id"`
	SequenceNumber   int               `json:"sequence_number"`
	DueDate          time.Time         `json:"due_date"`
	PrincipalPortion decimal.Decimal   `json:"principal_portion"`
	InterestPortion  decimal.Decimal   `json:"interest_portion"`
	TotalAmount      decimal.Decimal   `json:"total_amount"`
	Status           InstallmentStatus `json:"status"`
}

// Unpaid reports whether the installment still has to be paid.
func (i Installment) Unpaid() bool {
	return i.Status != InstallmentPaid
}

// LoanTerms represents a quoted repayment plan for a principal.
type LoanTerms struct {
	ID             string          `json:"id"`
	Principal      decimal.Decimal `json:"principal"`
	MonthlyPayment decimal.Decimal `json:"monthly_payment"`
	TermCount      int             `json:"term_count"`
	TotalInterest  decimal.Decimal `json:"total_interest"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	APR            decimal.Decimal `json:"apr"`
	Schedule       []Installment   `json:"schedule"`
}

// Clone returns a copy of the terms that shares no schedule storage.
func (t LoanTerms) Clone() LoanTerms {
	out := t
	if t.Schedule != nil {
		out.Schedule = make([]Installment, len(t.Schedule))
		copy(out.Schedule, t.Schedule)
	}
	return out
}
