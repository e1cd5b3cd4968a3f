package email

import (
	"errors"
	"io"
	"net/smtp"
	"testing"
	"time"

	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/Dan9191/credit-dashboard/internal/models"
)

type captured struct {
	mail *email.Email
	addr string
}

func newTestSender(sendErr error) (*Sender, *[]captured) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	cfg := &config.Config{
		Currency:    "USD",
		SMTPHost:    "smtp.example.com",
		SMTPPort:    "587",
		SenderEmail: "loans@example.com",
		NotifyEmail: "holder@example.com",
	}
	var sent []captured
	s := NewSender(cfg, log)
	s.send = func(e *email.Email, addr string, _ smtp.Auth) error {
		sent = append(sent, captured{mail: e, addr: addr})
		return sendErr
	}
	return s, &sent
}

func testLoan() models.Loan {
	due := time.Date(2025, 4, 15, 0, 0, 0, 0, time.UTC)
	inst := models.Installment{
		ID:             "payment-2",
		SequenceNumber: 2,
		DueDate:        due,
		TotalAmount:    decimal.RequireFromString("340.30"),
		Status:         models.InstallmentPending,
	}
	return models.Loan{
		ID:        "loan-1",
		Name:      "Laptop",
		Principal: decimal.RequireFromString("1000"),
		Status:    models.LoanActive,
		Terms: models.LoanTerms{
			TermCount:      3,
			MonthlyPayment: decimal.RequireFromString("340.30"),
			TotalAmount:    decimal.RequireFromString("1020.91"),
			APR:            decimal.RequireFromString("12.5"),
		},
		ProgressPercent: decimal.RequireFromString("33.33"),
		NextDue:         &inst,
	}
}

func TestLoanApproved(t *testing.T) {
	s, sent := newTestSender(nil)

	require.NoError(t, s.LoanApproved(testLoan(), decimal.RequireFromString("2000")))
	require.Len(t, *sent, 1)

	got := (*sent)[0]
	assert.Equal(t, "smtp.example.com:587", got.addr)
	assert.Equal(t, "loans@example.com", got.mail.From)
	assert.Equal(t, []string{"holder@example.com"}, got.mail.To)
	assert.Equal(t, "Loan approved: Laptop", got.mail.Subject)
	assert.Contains(t, string(got.mail.Text), "1000.00 USD")
	assert.Contains(t, string(got.mail.Text), "3 monthly payments of 340.30 USD at 12.5% APR")
	assert.Contains(t, string(got.mail.Text), "Current card balance: 2000.00 USD")
	assert.Contains(t, string(got.mail.Text), "First payment due: 2025-04-15")
}

func TestPaymentReceived(t *testing.T) {
	s, sent := newTestSender(nil)
	payment := models.Transaction{
		ID:         "tx-2",
		Type:       models.TxLoanPayment,
		Amount:     decimal.RequireFromString("-340.30"),
		OccurredAt: time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
	}

	require.NoError(t, s.PaymentReceived(testLoan(), payment))
	require.Len(t, *sent, 1)
	text := string((*sent)[0].mail.Text)
	assert.Contains(t, text, "payment of 340.30 USD")
	assert.Contains(t, text, "Repayment progress: 33.33%")
	assert.Contains(t, text, "is due on 2025-04-15")

	loan := testLoan()
	loan.Status = models.LoanCompleted
	loan.NextDue = nil
	require.NoError(t, s.PaymentReceived(loan, payment))
	assert.Contains(t, string((*sent)[1].mail.Text), "fully repaid")
}

func TestPaymentReminder(t *testing.T) {
	s, sent := newTestSender(nil)
	loan := testLoan()

	require.NoError(t, s.PaymentReminder(loan, *loan.NextDue, false))
	require.NoError(t, s.PaymentReminder(loan, *loan.NextDue, true))
	require.Len(t, *sent, 2)

	assert.Equal(t, "Upcoming Loan Payment Reminder", (*sent)[0].mail.Subject)
	assert.Contains(t, string((*sent)[0].mail.Text), "payment 2 of 3")
	assert.Equal(t, "Overdue Loan Payment Notification", (*sent)[1].mail.Subject)
	assert.Contains(t, string((*sent)[1].mail.Text), "is now overdue")
}

func TestDeliverFailure(t *testing.T) {
	s, _ := newTestSender(errors.New("connection refused"))

	err := s.PaymentReminder(testLoan(), *testLoan().NextDue, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
