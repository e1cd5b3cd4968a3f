package service

import (
	"context"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/repository"
)

// Reminder is an unpaid installment that falls due soon or is already late
type Reminder struct {
	Loan        models.Loan
	Installment models.Installment
	Overdue     bool
}

// MarkOverdue flags pending installments of active loans due before the day
// of asOf as overdue and returns how many changed. Loan status is left alone.
func (s *Service) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	y, m, d := asOf.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, asOf.Location())
	marked := 0
	err := s.repo.WithTx(ctx, func(tx *repository.Tx) error {
		marked = 0
		for _, loan := range tx.ListLoans() {
			if loan.Status != models.LoanActive {
				continue
			}
			changed := false
			for i, inst := range loan.Terms.Schedule {
				if inst.Status == models.InstallmentPending && inst.DueDate.Before(today) {
					loan.Terms.Schedule[i].Status = models.InstallmentOverdue
					changed = true
					marked++
				}
			}
			if !changed {
				continue
			}
			loan.RefreshNextDue()
			if err := tx.UpdateLoan(loan); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if marked > 0 {
		s.log.Infof("Marked %d installments as overdue", marked)
	}
	return marked, nil
}

// Reminders lists unpaid installments of active loans that are overdue or
// due within horizon of asOf.
func (s *Service) Reminders(ctx context.Context, asOf time.Time, horizon time.Duration) ([]Reminder, error) {
	loans, err := s.ListLoans(ctx)
	if err != nil {
		return nil, err
	}
	cutoff := asOf.Add(horizon)
	var out []Reminder
	for _, loan := range loans {
		if loan.Status != models.LoanActive {
			continue
		}
		for _, inst := range loan.Terms.Schedule {
			switch {
			case inst.Status == models.InstallmentOverdue:
				out = append(out, Reminder{Loan: loan, Installment: inst, Overdue: true})
			case inst.Status == models.InstallmentPending && !inst.DueDate.After(cutoff):
				out = append(out, Reminder{Loan: loan, Installment: inst})
			}
		}
	}
	return out, nil
}

// SendReminders notifies about every reminder and returns how many were sent
func (s *Service) SendReminders(ctx context.Context, asOf time.Time, horizon time.Duration) (int, error) {
	reminders, err := s.Reminders(ctx, asOf, horizon)
	if err != nil {
		return 0, err
	}
	if s.notifier == nil {
		return 0, nil
	}
	sent := 0
	for _, r := range reminders {
		if err := s.notifier.PaymentReminder(r.Loan, r.Installment, r.Overdue); err != nil {
			s.log.WithError(err).Warnf("Failed to send reminder for loan %s installment %s", r.Loan.ID, r.Installment.ID)
			continue
		}
		sent++
	}
	return sent, nil
}
