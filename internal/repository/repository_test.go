package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/credit-dashboard/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newRepo(t *testing.T, limit, used string) *Repository {
	t.Helper()
	repo, err := NewRepository(Seed{
		CreditLimit: dec(limit),
		CreditUsed:  dec(used),
		Balance:     dec("1000"),
		Currency:    "USD",
		Transactions: []models.Transaction{{
			ID:          "tx-initial",
			Type:        models.TxCardLoad,
			Amount:      dec("1000"),
			Description: "Initial card balance",
			OccurredAt:  t0,
			Status:      models.TxCompleted,
		}},
	})
	require.NoError(t, err)
	return repo
}

func assertCreditBalanced(t *testing.T, c models.CreditLine) {
	t.Helper()
	assert.True(t, c.Used.Add(c.Available).Equal(c.Limit), "used %s + available %s != limit %s", c.Used, c.Available, c.Limit)
	assert.False(t, c.Used.IsNegative())
	assert.False(t, c.Available.IsNegative())
}

func TestNewRepository(t *testing.T) {
	repo := newRepo(t, "5000", "1500")

	credit := repo.CreditInfo()
	assert.True(t, credit.Available.Equal(dec("3500")))
	assertCreditBalanced(t, credit)

	acct := repo.Balance()
	assert.True(t, acct.Balance.Equal(dec("1000")))
	assert.Equal(t, "USD", acct.Currency)
	assert.Equal(t, 1, repo.TransactionCount())
}

func TestNewRepository_InvalidSeed(t *testing.T) {
	seeds := []Seed{
		{CreditLimit: dec("-1"), Currency: "USD"},
		{CreditLimit: dec("100"), CreditUsed: dec("101"), Currency: "USD"},
		{CreditLimit: dec("100"), CreditUsed: dec("-5"), Currency: "USD"},
		{CreditLimit: dec("100")},
	}
	for i, seed := range seeds {
		_, err := NewRepository(seed)
		assert.Error(t, err, "seed %d", i)
	}
}

func TestReserveCredit(t *testing.T) {
	repo := newRepo(t, "5000", "4500")

	assert.NoError(t, repo.ReserveCredit(dec("500")))
	err := repo.ReserveCredit(dec("500.01"))
	assert.ErrorIs(t, err, ErrInsufficientCredit)
}

func TestApplyLoanDisbursement(t *testing.T) {
	repo := newRepo(t, "5000", "0")

	entry, err := repo.ApplyLoanDisbursement(DisbursementParams{
		TxID:        "tx-1",
		LoanID:      "loan-1",
		Amount:      dec("1000"),
		Description: "Laptop - Loan added to card",
		OccurredAt:  t0.Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, models.TxLoanDisbursement, entry.Type)
	assert.Equal(t, models.TxCompleted, entry.Status)
	assert.True(t, entry.Amount.Equal(dec("1000")))
	assert.Equal(t, "loan-1", entry.LoanID)

	assert.True(t, repo.Balance().Balance.Equal(dec("2000")))
	credit := repo.CreditInfo()
	assert.True(t, credit.Used.Equal(dec("1000")))
	assert.True(t, credit.Available.Equal(dec("4000")))
	assertCreditBalanced(t, credit)
	assert.Equal(t, 2, repo.TransactionCount())
}

func TestApplyLoanDisbursement_InsufficientLeavesStateUntouched(t *testing.T) {
	repo := newRepo(t, "5000", "4500")
	before := repo.CreditInfo()

	_, err := repo.ApplyLoanDisbursement(DisbursementParams{
		TxID: "tx-1", LoanID: "loan-1", Amount: dec("600"), OccurredAt: t0,
	})
	require.ErrorIs(t, err, ErrInsufficientCredit)

	assert.Equal(t, before, repo.CreditInfo())
	assert.True(t, repo.Balance().Balance.Equal(dec("1000")))
	assert.Equal(t, 1, repo.TransactionCount())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	repo := newRepo(t, "5000", "0")
	boom := errors.New("boom")

	err := repo.WithTx(context.Background(), func(tx *Tx) error {
		if _, err := tx.ApplyLoanDisbursement(DisbursementParams{
			TxID: "tx-1", LoanID: "loan-1", Amount: dec("250"), OccurredAt: t0,
		}); err != nil {
			return err
		}
		if err := tx.InsertLoan(models.Loan{ID: "loan-1", Status: models.LoanActive}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	assert.True(t, repo.CreditInfo().Used.IsZero())
	assert.True(t, repo.Balance().Balance.Equal(dec("1000")))
	assert.Equal(t, 1, repo.TransactionCount())
	assert.Empty(t, repo.ListLoans())
}

func TestWithTx_CancelledContext(t *testing.T) {
	repo := newRepo(t, "5000", "0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := repo.WithTx(ctx, func(tx *Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestLoans_InsertUpdateList(t *testing.T) {
	repo := newRepo(t, "5000", "0")
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("loan-%d", i)
		require.NoError(t, repo.WithTx(ctx, func(tx *Tx) error {
			return tx.InsertLoan(models.Loan{ID: id, Name: id, Status: models.LoanActive})
		}))
	}

	err := repo.WithTx(ctx, func(tx *Tx) error {
		return tx.InsertLoan(models.Loan{ID: "loan-2"})
	})
	assert.ErrorIs(t, err, ErrDuplicateID)

	require.NoError(t, repo.WithTx(ctx, func(tx *Tx) error {
		loan, err := tx.GetLoan("loan-2")
		if err != nil {
			return err
		}
		loan.Status = models.LoanCompleted
		return tx.UpdateLoan(loan)
	}))

	loans := repo.ListLoans()
	require.Len(t, loans, 3)
	assert.Equal(t, []string{"loan-1", "loan-2", "loan-3"}, []string{loans[0].ID, loans[1].ID, loans[2].ID})
	assert.Equal(t, models.LoanCompleted, loans[1].Status)

	_, err = repo.GetLoan("loan-9")
	assert.ErrorIs(t, err, ErrLoanNotFound)

	err = repo.WithTx(ctx, func(tx *Tx) error {
		return tx.UpdateLoan(models.Loan{ID: "loan-9"})
	})
	assert.ErrorIs(t, err, ErrLoanNotFound)
}

func TestGetLoan_ReturnsCopy(t *testing.T) {
	repo := newRepo(t, "5000", "0")
	require.NoError(t, repo.WithTx(context.Background(), func(tx *Tx) error {
		return tx.InsertLoan(models.Loan{
			ID: "loan-1",
			Terms: models.LoanTerms{Schedule: []models.Installment{
				{ID: "payment-1", Status: models.InstallmentPending},
			}},
		})
	}))

	loan, err := repo.GetLoan("loan-1")
	require.NoError(t, err)
	loan.Terms.Schedule[0].Status = models.InstallmentPaid

	again, err := repo.GetLoan("loan-1")
	require.NoError(t, err)
	assert.Equal(t, models.InstallmentPending, again.Terms.Schedule[0].Status)
}

func TestAppendTransaction_Duplicate(t *testing.T) {
	repo := newRepo(t, "5000", "0")

	err := repo.AppendTransaction(models.Transaction{ID: "tx-initial"})
	assert.ErrorIs(t, err, ErrDuplicateID)

	err = repo.AppendTransaction(models.Transaction{})
	assert.Error(t, err)
	assert.Equal(t, 1, repo.TransactionCount())
}

func TestListTransactions_OrderFilterAndPaging(t *testing.T) {
	repo := newRepo(t, "5000", "0")
	entries := []models.Transaction{
		{ID: "tx-b", OccurredAt: t0.Add(2 * time.Hour), LoanID: "loan-1"},
		{ID: "tx-a", OccurredAt: t0.Add(2 * time.Hour), LoanID: "loan-2"},
		{ID: "tx-c", OccurredAt: t0.Add(3 * time.Hour), LoanID: "loan-1"},
		{ID: "tx-d", OccurredAt: t0.Add(time.Hour)},
	}
	for _, e := range entries {
		e.Status = models.TxCompleted
		require.NoError(t, repo.AppendTransaction(e))
	}

	ids := func(txs []models.Transaction) []string {
		out := make([]string, len(txs))
		for i, tx := range txs {
			out[i] = tx.ID
		}
		return out
	}

	all := repo.ListTransactions(TransactionFilter{}, 0, 0)
	assert.Equal(t, []string{"tx-c", "tx-a", "tx-b", "tx-d", "tx-initial"}, ids(all))

	page := repo.ListTransactions(TransactionFilter{}, 2, 1)
	assert.Equal(t, []string{"tx-a", "tx-b"}, ids(page))

	assert.Empty(t, repo.ListTransactions(TransactionFilter{}, 10, 99))

	byLoan := repo.ListTransactions(TransactionFilter{LoanID: "loan-1"}, 10, 0)
	assert.Equal(t, []string{"tx-c", "tx-b"}, ids(byLoan))

	since := repo.ListTransactions(TransactionFilter{Since: t0.Add(2 * time.Hour)}, 10, 0)
	assert.Equal(t, []string{"tx-c", "tx-a", "tx-b"}, ids(since))
}

func TestListTransactions_NoLimit(t *testing.T) {
	repo := newRepo(t, "5000", "0")
	for i := 0; i < DefaultTransactionLimit+10; i++ {
		require.NoError(t, repo.AppendTransaction(models.Transaction{
			ID:         fmt.Sprintf("tx-%03d", i),
			OccurredAt: t0.Add(time.Duration(i) * time.Minute),
			LoanID:     "loan-1",
			Status:     models.TxCompleted,
		}))
	}
	filter := TransactionFilter{LoanID: "loan-1"}

	assert.Len(t, repo.ListTransactions(filter, 0, 0), DefaultTransactionLimit)
	all := repo.ListTransactions(filter, NoLimit, 0)
	require.Len(t, all, DefaultTransactionLimit+10)
	assert.Equal(t, "tx-059", all[0].ID)
	assert.Len(t, repo.ListTransactions(filter, NoLimit, 55), 5)
}

func TestConcurrentDisbursements_NeverExceedLimit(t *testing.T) {
	repo := newRepo(t, "5000", "0")

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := repo.ApplyLoanDisbursement(DisbursementParams{
				TxID:       fmt.Sprintf("tx-%d", i),
				LoanID:     fmt.Sprintf("loan-%d", i),
				Amount:     dec("300"),
				OccurredAt: t0,
			})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrInsufficientCredit)
		}(i)
		assertCreditBalanced(t, repo.CreditInfo())
	}
	wg.Wait()

	assert.Equal(t, 16, succeeded)
	credit := repo.CreditInfo()
	assert.True(t, credit.Used.Equal(dec("4800")))
	assertCreditBalanced(t, credit)
}
