package email

import (
	"fmt"
	"net/smtp"

	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/jordan-wright/email"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Sender handles sending loan notifications via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
	send   func(e *email.Email, addr string, auth smtp.Auth) error
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// LoanApproved tells the card holder that a loan was added to the card
func (s *Sender) LoanApproved(loan models.Loan, newBalance decimal.Decimal) error {
	subject := fmt.Sprintf("Loan approved: %s", loan.Name)
	body := fmt.Sprintf(
		"Your loan \"%s\" of %s %s has been approved and added to your card.\n"+
			"Repayment: %d monthly payments of %s %s at %s%% APR.\n"+
			"Total to repay: %s %s\n"+
			"Current card balance: %s %s\n",
		loan.Name, loan.Principal.StringFixed(2), s.cfg.Currency,
		loan.Terms.TermCount, loan.Terms.MonthlyPayment.StringFixed(2), s.cfg.Currency, loan.Terms.APR.String(),
		loan.Terms.TotalAmount.StringFixed(2), s.cfg.Currency,
		newBalance.StringFixed(2), s.cfg.Currency,
	)
	if loan.NextDue != nil {
		body += fmt.Sprintf("First payment due: %s\n", loan.NextDue.DueDate.Format("2006-01-02"))
	}
	return s.deliver(subject, body)
}

// PaymentReceived confirms a loan payment
func (s *Sender) PaymentReceived(loan models.Loan, payment models.Transaction) error {
	subject := fmt.Sprintf("Payment received: %s", loan.Name)
	body := fmt.Sprintf(
		"We received your payment of %s %s for \"%s\".\n"+
			"Transaction time: %s\n"+
			"Repayment progress: %s%%\n",
		payment.Amount.Abs().StringFixed(2), s.cfg.Currency, loan.Name,
		payment.OccurredAt.Format("2006-01-02 15:04:05"),
		loan.ProgressPercent.StringFixed(2),
	)
	if loan.Status == models.LoanCompleted {
		body += "Your loan is now fully repaid.\n"
	} else if loan.NextDue != nil {
		body += fmt.Sprintf("Next payment of %s %s is due on %s.\n",
			loan.NextDue.TotalAmount.StringFixed(2), s.cfg.Currency, loan.NextDue.DueDate.Format("2006-01-02"))
	}
	return s.deliver(subject, body)
}

// PaymentReminder sends a reminder for an upcoming or overdue installment
func (s *Sender) PaymentReminder(loan models.Loan, installment models.Installment, isOverdue bool) error {
	var subject, body string
	if isOverdue {
		subject = "Overdue Loan Payment Notification"
		body = fmt.Sprintf(
			"Payment %d of %d for \"%s\" (%s %s) was due on %s and is now overdue.\n"+
				"Please make the payment as soon as possible.\n",
			installment.SequenceNumber, loan.Terms.TermCount, loan.Name,
			installment.TotalAmount.StringFixed(2), s.cfg.Currency, installment.DueDate.Format("2006-01-02"),
		)
	} else {
		subject = "Upcoming Loan Payment Reminder"
		body = fmt.Sprintf(
			"This is a reminder that payment %d of %d for \"%s\" (%s %s) is due on %s.\n",
			installment.SequenceNumber, loan.Terms.TermCount, loan.Name,
			installment.TotalAmount.StringFixed(2), s.cfg.Currency, installment.DueDate.Format("2006-01-02"),
		)
	}
	return s.deliver(subject, body)
}

func (s *Sender) deliver(subject, body string) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{s.cfg.NotifyEmail}
	e.Subject = subject
	e.Text = []byte("Hello,\n\n" + body + "\nBest regards,\nCredit Dashboard")

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := s.send(e, addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", s.cfg.NotifyEmail, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", s.cfg.NotifyEmail, subject)
	return nil
}
