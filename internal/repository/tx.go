package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/shopspring/decimal"
)

// Tx is a staged write view of the repository. Changes become visible only
// when the function passed to WithTx returns nil.
type Tx struct {
	repo     *Repository
	credit   models.CreditLine
	account  models.CardAccount
	newTxs   []models.Transaction
	txIDs    map[string]struct{}
	loans    map[string]models.Loan
	newLoans []string
}

// DisbursementParams describes a loan payout to the card
type DisbursementParams struct {
	TxID        string
	LoanID      string
	Amount      decimal.Decimal
	Description string
	OccurredAt  time.Time
}

// WithTx runs fn while holding the write lock and commits its changes if it
// returns nil. A cancelled context is only honoured before fn starts.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.withLock(fn)
}

func (r *Repository) withLock(fn func(tx *Tx) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := &Tx{
		repo:    r,
		credit:  r.credit,
		account: r.account,
		txIDs:   make(map[string]struct{}),
		loans:   make(map[string]models.Loan),
	}
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (tx *Tx) commit() {
	r := tx.repo
	r.credit = tx.credit
	r.account = tx.account
	r.transactions = append(r.transactions, tx.newTxs...)

	isNew := make(map[string]bool, len(tx.newLoans))
	for _, id := range tx.newLoans {
		isNew[id] = true
		r.loanIndex[id] = len(r.loans)
		r.loans = append(r.loans, tx.loans[id])
	}
	for id, loan := range tx.loans {
		if !isNew[id] {
			r.loans[r.loanIndex[id]] = loan
		}
	}
}

// CreditInfo returns the staged credit line
func (tx *Tx) CreditInfo() models.CreditLine {
	return tx.credit
}

// Balance returns the staged card account
func (tx *Tx) Balance() models.CardAccount {
	return tx.account
}

// ReserveCredit checks amount against the staged available credit
func (tx *Tx) ReserveCredit(amount decimal.Decimal) error {
	return reserve(tx.credit, amount)
}

// ApplyLoanDisbursement increases the balance and used credit by the amount,
// decreases available credit and records a completed disbursement.
func (tx *Tx) ApplyLoanDisbursement(p DisbursementParams) (models.Transaction, error) {
	if !p.Amount.IsPositive() {
		return models.Transaction{}, fmt.Errorf("disbursement amount must be positive: %s", p.Amount)
	}
	if err := tx.ReserveCredit(p.Amount); err != nil {
		return models.Transaction{}, err
	}

	entry := models.Transaction{
		ID:          p.TxID,
		Type:        models.TxLoanDisbursement,
		Amount:      p.Amount,
		Description: p.Description,
		OccurredAt:  p.OccurredAt,
		Status:      models.TxCompleted,
		LoanID:      p.LoanID,
	}
	if err := tx.AppendTransaction(entry); err != nil {
		return models.Transaction{}, err
	}

	tx.account.Balance = tx.account.Balance.Add(p.Amount)
	tx.credit.Used = tx.credit.Used.Add(p.Amount)
	tx.credit.Available = tx.credit.Available.Sub(p.Amount)
	return entry, nil
}

// AppendTransaction stages a new ledger entry
func (tx *Tx) AppendTransaction(t models.Transaction) error {
	if t.ID == "" {
		return fmt.Errorf("transaction id is required")
	}
	if _, ok := tx.txIDs[t.ID]; ok {
		return fmt.Errorf("%w: transaction %s", ErrDuplicateID, t.ID)
	}
	for _, existing := range tx.repo.transactions {
		if existing.ID == t.ID {
			return fmt.Errorf("%w: transaction %s", ErrDuplicateID, t.ID)
		}
	}
	tx.txIDs[t.ID] = struct{}{}
	tx.newTxs = append(tx.newTxs, t)
	return nil
}

// GetLoan returns a copy of the staged or stored loan
func (tx *Tx) GetLoan(id string) (models.Loan, error) {
	if loan, ok := tx.loans[id]; ok {
		return loan.Clone(), nil
	}
	i, ok := tx.repo.loanIndex[id]
	if !ok {
		return models.Loan{}, fmt.Errorf("%w: %s", ErrLoanNotFound, id)
	}
	return tx.repo.loans[i].Clone(), nil
}

// ListLoans returns copies of all loans including staged changes, in
// creation order
func (tx *Tx) ListLoans() []models.Loan {
	out := make([]models.Loan, 0, len(tx.repo.loans)+len(tx.newLoans))
	for _, l := range tx.repo.loans {
		if staged, ok := tx.loans[l.ID]; ok {
			l = staged
		}
		out = append(out, l.Clone())
	}
	for _, id := range tx.newLoans {
		out = append(out, tx.loans[id].Clone())
	}
	return out
}

// InsertLoan stages a new loan
func (tx *Tx) InsertLoan(loan models.Loan) error {
	if loan.ID == "" {
		return fmt.Errorf("loan id is required")
	}
	_, stored := tx.repo.loanIndex[loan.ID]
	_, staged := tx.loans[loan.ID]
	if stored || staged {
		return fmt.Errorf("%w: loan %s", ErrDuplicateID, loan.ID)
	}
	tx.loans[loan.ID] = loan.Clone()
	tx.newLoans = append(tx.newLoans, loan.ID)
	return nil
}

// UpdateLoan stages a replacement for an existing loan
func (tx *Tx) UpdateLoan(loan models.Loan) error {
	_, stored := tx.repo.loanIndex[loan.ID]
	_, staged := tx.loans[loan.ID]
	if !stored && !staged {
		return fmt.Errorf("%w: %s", ErrLoanNotFound, loan.ID)
	}
	tx.loans[loan.ID] = loan.Clone()
	return nil
}
