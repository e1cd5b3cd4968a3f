package repository

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientCredit is returned when a reservation exceeds the available credit
	ErrInsufficientCredit = errors.New("insufficient credit limit available")
	// ErrLoanNotFound is returned for an unknown loan ID
	ErrLoanNotFound = errors.New("loan not found")
	// ErrDuplicateID is returned when an ID is inserted twice
	ErrDuplicateID = errors.New("duplicate id")
)

// DefaultTransactionLimit is the page size used when none is given
const DefaultTransactionLimit = 50

// NoLimit makes ListTransactions return every matching entry
const NoLimit = -1

// Seed holds the opening state of the ledger
type Seed struct {
	CreditLimit  decimal.Decimal
	CreditUsed   decimal.Decimal
	Balance      decimal.Decimal
	Currency     string
	Transactions []models.Transaction
}

// Repository keeps the card account, credit line, transaction log and loans
// in memory. All writes go through WithTx.
type Repository struct {
	mu           sync.RWMutex
	credit       models.CreditLine
	account      models.CardAccount
	transactions []models.Transaction
	loans        []models.Loan
	loanIndex    map[string]int
}

// NewRepository initializes a repository from seed
func NewRepository(seed Seed) (*Repository, error) {
	if seed.CreditLimit.IsNegative() {
		return nil, fmt.Errorf("credit limit must not be negative: %s", seed.CreditLimit)
	}
	if seed.CreditUsed.IsNegative() || seed.CreditUsed.GreaterThan(seed.CreditLimit) {
		return nil, fmt.Errorf("credit used %s must be between 0 and limit %s", seed.CreditUsed, seed.CreditLimit)
	}
	if seed.Currency == "" {
		return nil, fmt.Errorf("currency is required")
	}

	txs := make([]models.Transaction, len(seed.Transactions))
	copy(txs, seed.Transactions)

	return &Repository{
		credit: models.CreditLine{
			Limit:     seed.CreditLimit,
			Used:      seed.CreditUsed,
			Available: seed.CreditLimit.Sub(seed.CreditUsed),
		},
		account: models.CardAccount{
			Balance:  seed.Balance,
			Currency: seed.Currency,
		},
		transactions: txs,
		loanIndex:    make(map[string]int),
	}, nil
}

// CreditInfo returns a snapshot of the credit line
func (r *Repository) CreditInfo() models.CreditLine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.credit
}

// Balance returns a snapshot of the card account
func (r *Repository) Balance() models.CardAccount {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.account
}

// GetLoan returns a copy of the loan with the given ID
func (r *Repository) GetLoan(id string) (models.Loan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.loanIndex[id]
	if !ok {
		return models.Loan{}, fmt.Errorf("%w: %s", ErrLoanNotFound, id)
	}
	return r.loans[i].Clone(), nil
}

// ListLoans returns copies of all loans in creation order
func (r *Repository) ListLoans() []models.Loan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Loan, len(r.loans))
	for i, l := range r.loans {
		out[i] = l.Clone()
	}
	return out
}

// TransactionFilter narrows ListTransactions. Zero fields match everything.
type TransactionFilter struct {
	LoanID string
	Since  time.Time
}

func (f TransactionFilter) match(tx models.Transaction) bool {
	if f.LoanID != "" && tx.LoanID != f.LoanID {
		return false
	}
	if !f.Since.IsZero() && tx.OccurredAt.Before(f.Since) {
		return false
	}
	return true
}

// ListTransactions returns transactions newest first, ties broken by ID
// ascending, skipping offset entries and returning at most limit. A zero
// limit means DefaultTransactionLimit and a negative one means no limit.
func (r *Repository) ListTransactions(filter TransactionFilter, limit, offset int) []models.Transaction {
	if limit == 0 {
		limit = DefaultTransactionLimit
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	matched := make([]models.Transaction, 0, len(r.transactions))
	for _, tx := range r.transactions {
		if filter.match(tx) {
			matched = append(matched, tx)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.OccurredAt.Equal(b.OccurredAt) {
			return a.OccurredAt.After(b.OccurredAt)
		}
		return a.ID < b.ID
	})

	if offset >= len(matched) {
		return []models.Transaction{}
	}
	end := offset + limit
	if limit < 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end]
}

// TransactionCount returns the number of ledger entries
func (r *Repository) TransactionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.transactions)
}

// ReserveCredit checks that amount fits in the available credit
func (r *Repository) ReserveCredit(amount decimal.Decimal) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return reserve(r.credit, amount)
}

// ApplyLoanDisbursement credits the card and consumes credit in a single
// write transaction.
func (r *Repository) ApplyLoanDisbursement(params DisbursementParams) (models.Transaction, error) {
	var out models.Transaction
	err := r.withLock(func(tx *Tx) error {
		var err error
		out, err = tx.ApplyLoanDisbursement(params)
		return err
	})
	return out, err
}

// AppendTransaction adds a transaction to the ledger
func (r *Repository) AppendTransaction(t models.Transaction) error {
	return r.withLock(func(tx *Tx) error {
		return tx.AppendTransaction(t)
	})
}

func reserve(credit models.CreditLine, amount decimal.Decimal) error {
	if amount.GreaterThan(credit.Available) {
		return fmt.Errorf("%w: requested %s, available %s", ErrInsufficientCredit, amount.StringFixed(2), credit.Available.StringFixed(2))
	}
	return nil
}
