// Package amortization builds installment schedules for fixed-rate loans.
package amortization

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/shopspring/decimal"
)

// ErrUnsupportedTerm is returned for a term count outside the APR table
var ErrUnsupportedTerm = errors.New("unsupported loan term")

// APRTable maps supported term counts (in months) to the annual percentage rate.
var APRTable = map[int]decimal.Decimal{
	3:  decimal.RequireFromString("12.5"),
	6:  decimal.RequireFromString("15.2"),
	12: decimal.RequireFromString("18.9"),
}

// SupportedTerms lists the term counts in ascending order
var SupportedTerms = []int{3, 6, 12}

var (
	hundred      = decimal.NewFromInt(100)
	monthsInYear = decimal.NewFromInt(12)
)

// APR returns the annual rate for termCount
func APR(termCount int) (decimal.Decimal, error) {
	apr, ok := APRTable[termCount]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %d payments", ErrUnsupportedTerm, termCount)
	}
	return apr, nil
}

// Quote computes the terms for borrowing principal over termCount monthly
// installments, the first one due on quoteDate. It has no side effects;
// termsID is stored as-is.
func Quote(termsID string, principal decimal.Decimal, termCount int, quoteDate time.Time) (models.LoanTerms, error) {
	apr, err := APR(termCount)
	if err != nil {
		return models.LoanTerms{}, err
	}
	return build(termsID, principal, termCount, apr, quoteDate), nil
}

func build(termsID string, principal decimal.Decimal, termCount int, apr decimal.Decimal, quoteDate time.Time) models.LoanTerms {
	rate := apr.Div(hundred).Div(monthsInYear)
	payment := MonthlyPayment(principal, rate, termCount)

	schedule := make([]models.Installment, 0, termCount)
	remaining := principal
	totalInterest := decimal.Zero
	for i := 0; i < termCount; i++ {
		interest := remaining.Mul(rate).Round(2)
		principalPart := payment.Sub(interest)
		if i == termCount-1 {
			// last installment settles whatever rounding left over
			principalPart = remaining
		}
		remaining = remaining.Sub(principalPart)
		totalInterest = totalInterest.Add(interest)

		schedule = append(schedule, models.Installment{
			ID:               fmt.Sprintf("payment-%d", i+1),
			SequenceNumber:   i + 1,
			DueDate:          AddMonths(quoteDate, i),
			PrincipalPortion: principalPart,
			InterestPortion:  interest,
			TotalAmount:      principalPart.Add(interest),
			Status:           models.InstallmentPending,
		})
	}

	return models.LoanTerms{
		ID:             termsID,
		Principal:      principal,
		MonthlyPayment: payment,
		TermCount:      termCount,
		TotalInterest:  totalInterest.Round(2),
		TotalAmount:    principal.Add(totalInterest).Round(2),
		APR:            apr,
		Schedule:       schedule,
	}
}

// MonthlyPayment returns the level payment P*r*(1+r)^n / ((1+r)^n - 1)
// rounded to cents. A zero rate degrades to P/n.
func MonthlyPayment(principal, rate decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	if rate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(n))).Round(2)
	}
	growth := decimal.NewFromInt(1)
	factor := decimal.NewFromInt(1).Add(rate)
	for i := 0; i < n; i++ {
		growth = growth.Mul(factor)
	}
	return principal.Mul(rate).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1))).Round(2)
}

// AddMonths moves t forward by months calendar months, keeping the day of
// month and clamping it to the last day of the target month. The result is
// truncated to midnight in t's location.
func AddMonths(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

func daysIn(firstOfMonth time.Time) int {
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
