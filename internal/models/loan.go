package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanStatus is the lifecycle state of a loan
type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanActive    LoanStatus = "active"
	LoanCompleted LoanStatus = "completed"
	LoanDefaulted LoanStatus = "defaulted"
)

// Terminal reports whether no further transition is allowed from s.
func (s LoanStatus) Terminal() bool {
	return s == LoanCompleted || s == LoanDefaulted
}

// Loan represents an approved loan disbursed to the card
type Loan struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Principal       decimal.Decimal `json:"principal"`
	Terms           LoanTerms       `json:"terms"`
	Status          LoanStatus      `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	ProgressPercent decimal.Decimal `json:"progress_percent"`
	NextDue         *Installment    `json:"next_due,omitempty"`
}

// Clone returns a deep copy of the loan.
func (l Loan) Clone() Loan {
	out := l
	out.Terms = l.Terms.Clone()
	out.NextDue = nil
	if l.NextDue != nil {
		next := *l.NextDue
		out.NextDue = &next
	}
	return out
}

// RefreshNextDue points NextDue at the first unpaid installment, or nil when
// every installment is paid.
func (l *Loan) RefreshNextDue() {
	l.NextDue = nil
	for _, inst := range l.Terms.Schedule {
		if inst.Unpaid() {
			next := inst
			l.NextDue = &next
			return
		}
	}
}
