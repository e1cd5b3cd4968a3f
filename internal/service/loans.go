package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Dan9191/credit-dashboard/internal/amortization"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Principal bounds accepted for a new loan
var (
	MinPrincipal = decimal.NewFromInt(100)
	MaxPrincipal = decimal.NewFromInt(5000)
)

var hundred = decimal.NewFromInt(100)

// QuoteOptions holds the 3- and 6-payment offers for a loan request
type QuoteOptions struct {
	Terms3 models.LoanTerms `json:"terms3"`
	Terms6 models.LoanTerms `json:"terms6"`
}

// ApprovalResult is returned by Approve
type ApprovalResult struct {
	LoanID     string          `json:"loan_id"`
	NewBalance decimal.Decimal `json:"new_balance"`
}

// PaymentResult is returned by ApplyPayment
type PaymentResult struct {
	TxID     string            `json:"transaction_id"`
	Progress decimal.Decimal   `json:"progress"`
	Status   models.LoanStatus `json:"status"`
}

// validateRequest checks amount range and name; the first failure wins.
func validateRequest(principal decimal.Decimal, name string) error {
	if principal.LessThan(MinPrincipal) || principal.GreaterThan(MaxPrincipal) {
		return fmt.Errorf("%w: got %s", ErrAmountOutOfRange, principal.StringFixed(2))
	}
	if strings.TrimSpace(name) == "" {
		return ErrMissingName
	}
	return nil
}

// QuoteOptions validates a loan request against the current credit line and
// returns 3- and 6-payment terms. Nothing is stored.
func (s *Service) QuoteOptions(ctx context.Context, principal decimal.Decimal, name string) (QuoteOptions, error) {
	if err := s.checkQuote(ctx, principal, name); err != nil {
		return QuoteOptions{}, err
	}

	now := s.clock.Now()
	terms3, err := amortization.Quote(s.ids.TermsID(3), principal, 3, now)
	if err != nil {
		return QuoteOptions{}, err
	}
	terms6, err := amortization.Quote(s.ids.TermsID(6), principal, 6, now)
	if err != nil {
		return QuoteOptions{}, err
	}
	return QuoteOptions{Terms3: terms3, Terms6: terms6}, nil
}

// QuoteTerm is QuoteOptions for a single term count, including the ones not
// offered by default.
func (s *Service) QuoteTerm(ctx context.Context, principal decimal.Decimal, name string, termCount int) (models.LoanTerms, error) {
	if err := s.checkQuote(ctx, principal, name); err != nil {
		return models.LoanTerms{}, err
	}
	return amortization.Quote(s.ids.TermsID(termCount), principal, termCount, s.clock.Now())
}

func (s *Service) checkQuote(ctx context.Context, principal decimal.Decimal, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateRequest(principal, name); err != nil {
		return err
	}
	return s.repo.ReserveCredit(principal)
}

// Approve originates a loan from previously quoted terms. The credit check,
// balance and credit updates, disbursement entry and loan registration commit
// together or not at all. Terms that were not quoted for this principal, or
// were altered since, fail with ErrTermsMismatch after the credit check.
func (s *Service) Approve(ctx context.Context, terms models.LoanTerms, principal decimal.Decimal, name string) (ApprovalResult, error) {
	if err := validateRequest(principal, name); err != nil {
		return ApprovalResult{}, err
	}

	name = strings.TrimSpace(name)
	now := s.clock.Now()
	loan := models.Loan{
		ID:              s.ids.LoanID(),
		Name:            name,
		Principal:       principal,
		Status:          models.LoanActive,
		CreatedAt:       now,
		ProgressPercent: decimal.Zero,
	}
	txID := s.ids.TransactionID()

	var result ApprovalResult
	err := s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		if err := tx.ReserveCredit(principal); err != nil {
			return err
		}
		quoted, err := checkTerms(terms, principal)
		if err != nil {
			return err
		}
		loan.Terms = quoted
		loan.RefreshNextDue()
		if _, err := tx.ApplyLoanDisbursement(repository.DisbursementParams{
			TxID:        txID,
			LoanID:      loan.ID,
			Amount:      principal,
			Description: fmt.Sprintf("%s - Loan added to card", name),
			OccurredAt:  now,
		}); err != nil {
			return err
		}
		if err := tx.InsertLoan(loan); err != nil {
			return err
		}
		result = ApprovalResult{LoanID: loan.ID, NewBalance: tx.Balance().Balance}
		return nil
	})
	if err != nil {
		return ApprovalResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"loan_id":   loan.ID,
		"principal": principal.StringFixed(2),
		"payments":  terms.TermCount,
	}).Info("Loan approved")
	s.notify("loan approved", func(n Notifier) error {
		return n.LoanApproved(loan, result.NewBalance)
	})
	return result, nil
}

// checkTerms recomputes the quote the terms claim to be and returns it. The
// schedule must match it exactly with every installment still pending.
func checkTerms(terms models.LoanTerms, principal decimal.Decimal) (models.LoanTerms, error) {
	if _, err := amortization.APR(terms.TermCount); err != nil {
		return models.LoanTerms{}, err
	}
	if !terms.Principal.Equal(principal) {
		return models.LoanTerms{}, fmt.Errorf("%w: terms quoted for %s, requested %s", ErrTermsMismatch,
			terms.Principal.StringFixed(2), principal.StringFixed(2))
	}
	if len(terms.Schedule) != terms.TermCount {
		return models.LoanTerms{}, fmt.Errorf("%w: %d installments for %d payments", ErrTermsMismatch, len(terms.Schedule), terms.TermCount)
	}

	want, err := amortization.Quote(terms.ID, principal, terms.TermCount, terms.Schedule[0].DueDate)
	if err != nil {
		return models.LoanTerms{}, err
	}
	if diff := termsDiff(terms, want); diff != "" {
		return models.LoanTerms{}, fmt.Errorf("%w: %s", ErrTermsMismatch, diff)
	}
	return want, nil
}

func termsDiff(got, want models.LoanTerms) string {
	switch {
	case !got.APR.Equal(want.APR):
		return fmt.Sprintf("apr %s, expected %s", got.APR, want.APR)
	case !got.MonthlyPayment.Equal(want.MonthlyPayment):
		return fmt.Sprintf("monthly payment %s, expected %s", got.MonthlyPayment.StringFixed(2), want.MonthlyPayment.StringFixed(2))
	case !got.TotalInterest.Equal(want.TotalInterest):
		return fmt.Sprintf("total interest %s, expected %s", got.TotalInterest.StringFixed(2), want.TotalInterest.StringFixed(2))
	case !got.TotalAmount.Equal(want.TotalAmount):
		return fmt.Sprintf("total amount %s, expected %s", got.TotalAmount.StringFixed(2), want.TotalAmount.StringFixed(2))
	}
	for i, g := range got.Schedule {
		w := want.Schedule[i]
		if g.ID != w.ID || g.SequenceNumber != w.SequenceNumber {
			return fmt.Sprintf("installment %d is %s #%d, expected %s #%d", i+1, g.ID, g.SequenceNumber, w.ID, w.SequenceNumber)
		}
		if g.Status != models.InstallmentPending {
			return fmt.Sprintf("installment %s is %s", g.ID, g.Status)
		}
		if !g.DueDate.Equal(w.DueDate) {
			return fmt.Sprintf("installment %s due %s, expected %s", g.ID, g.DueDate.Format("2006-01-02"), w.DueDate.Format("2006-01-02"))
		}
		if !g.PrincipalPortion.Equal(w.PrincipalPortion) ||
			!g.InterestPortion.Equal(w.InterestPortion) ||
			!g.TotalAmount.Equal(w.TotalAmount) {
			return fmt.Sprintf("installment %s amounts differ from the quote", g.ID)
		}
	}
	return ""
}

// ApplyPayment settles one installment of a loan, records the payment in the
// ledger and completes the loan once every installment is paid.
func (s *Service) ApplyPayment(ctx context.Context, loanID, installmentID string, amount decimal.Decimal) (PaymentResult, error) {
	txID := s.ids.TransactionID()
	now := s.clock.Now()

	var (
		result  PaymentResult
		updated models.Loan
		payment models.Transaction
	)
	err := s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		loan, err := tx.GetLoan(loanID)
		if err != nil {
			return err
		}
		if loan.Status.Terminal() {
			return fmt.Errorf("%w: loan %s is %s", ErrTerminalState, loan.ID, loan.Status)
		}
		idx := -1
		for i, inst := range loan.Terms.Schedule {
			if inst.ID == installmentID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: %s on loan %s", ErrInstallmentNotFound, installmentID, loan.ID)
		}
		if loan.Terms.Schedule[idx].Status == models.InstallmentPaid {
			return fmt.Errorf("%w: %s on loan %s", ErrInstallmentAlreadyPaid, installmentID, loan.ID)
		}
		if !amount.IsPositive() {
			return fmt.Errorf("%w: got %s", ErrInvalidPaymentAmount, amount.StringFixed(2))
		}

		loan.Terms.Schedule[idx].Status = models.InstallmentPaid
		loan.ProgressPercent = progress(loan.Terms.Schedule)
		loan.RefreshNextDue()
		if loan.ProgressPercent.GreaterThanOrEqual(hundred) {
			loan.Status = models.LoanCompleted
		}

		// payments debit the card
		payment = models.Transaction{
			ID:     txID,
			Type:   models.TxLoanPayment,
			Amount: amount.Neg(),
			Description: fmt.Sprintf("%s - Payment %d of %d", loan.Name,
				loan.Terms.Schedule[idx].SequenceNumber, loan.Terms.TermCount),
			OccurredAt: now,
			Status:     models.TxCompleted,
			LoanID:     loan.ID,
		}
		if err := tx.AppendTransaction(payment); err != nil {
			return err
		}
		if err := tx.UpdateLoan(loan); err != nil {
			return err
		}
		updated = loan
		result = PaymentResult{TxID: txID, Progress: loan.ProgressPercent, Status: loan.Status}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"loan_id":     loanID,
		"installment": installmentID,
		"amount":      amount.StringFixed(2),
		"progress":    result.Progress.String(),
	}).Info("Loan payment applied")
	if updated.Status == models.LoanCompleted {
		s.log.Infof("Loan %s completed", loanID)
	}
	s.notify("payment received", func(n Notifier) error {
		return n.PaymentReceived(updated, payment)
	})
	return result, nil
}

// progress is the share of paid installments as a percentage rounded to
// cents; a fully paid schedule is exactly 100.
func progress(schedule []models.Installment) decimal.Decimal {
	if len(schedule) == 0 {
		return decimal.Zero
	}
	paid := 0
	for _, inst := range schedule {
		if inst.Status == models.InstallmentPaid {
			paid++
		}
	}
	if paid == len(schedule) {
		return hundred
	}
	return decimal.NewFromInt(int64(paid)).Mul(hundred).Div(decimal.NewFromInt(int64(len(schedule)))).Round(2)
}

// MarkDefaulted moves an active loan to defaulted. No delinquency policy
// calls it yet.
func (s *Service) MarkDefaulted(ctx context.Context, loanID string) error {
	err := s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		loan, err := tx.GetLoan(loanID)
		if err != nil {
			return err
		}
		if loan.Status.Terminal() {
			return fmt.Errorf("%w: loan %s is %s", ErrTerminalState, loan.ID, loan.Status)
		}
		loan.Status = models.LoanDefaulted
		return tx.UpdateLoan(loan)
	})
	if err != nil {
		return err
	}
	s.log.Warnf("Loan %s marked as defaulted", loanID)
	return nil
}

// GetLoan returns the loan with the given ID
func (s *Service) GetLoan(ctx context.Context, loanID string) (models.Loan, error) {
	if err := ctx.Err(); err != nil {
		return models.Loan{}, err
	}
	return s.repo.GetLoan(loanID)
}

// ListLoans returns all loans in creation order
func (s *Service) ListLoans(ctx context.Context) ([]models.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.repo.ListLoans(), nil
}

// CreditInfo returns the current credit line
func (s *Service) CreditInfo(ctx context.Context) (models.CreditLine, error) {
	if err := ctx.Err(); err != nil {
		return models.CreditLine{}, err
	}
	return s.repo.CreditInfo(), nil
}

// Balance returns the current card account
func (s *Service) Balance(ctx context.Context) (models.CardAccount, error) {
	if err := ctx.Err(); err != nil {
		return models.CardAccount{}, err
	}
	return s.repo.Balance(), nil
}

// Transactions returns a page of ledger entries, newest first
func (s *Service) Transactions(ctx context.Context, filter repository.TransactionFilter, limit, offset int) ([]models.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(filter, limit, offset), nil
}

// LoanTransactions returns every ledger entry of a loan, newest first
func (s *Service) LoanTransactions(ctx context.Context, loanID string) ([]models.Transaction, error) {
	if _, err := s.GetLoan(ctx, loanID); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(repository.TransactionFilter{LoanID: loanID}, repository.NoLimit, 0), nil
}
