package service

import (
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/repository"
	"github.com/Dan9191/credit-dashboard/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Notifier is told about committed loan events. Errors are logged and never
// undo the event.
type Notifier interface {
	LoanApproved(loan models.Loan, newBalance decimal.Decimal) error
	PaymentReceived(loan models.Loan, payment models.Transaction) error
	PaymentReminder(loan models.Loan, installment models.Installment, overdue bool) error
}

// Service handles loan origination, repayment and read queries
type Service struct {
	repo     *repository.Repository
	log      *logrus.Logger
	clock    utils.Clock
	ids      utils.IDSource
	notifier Notifier
}

// NewService initializes a new service
func NewService(repo *repository.Repository, log *logrus.Logger, clock utils.Clock, ids utils.IDSource) *Service {
	return &Service{repo: repo, log: log, clock: clock, ids: ids}
}

// SetNotifier installs n to receive loan events. A nil notifier disables
// notifications.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

func (s *Service) notify(event string, send func(Notifier) error) {
	if s.notifier == nil {
		return
	}
	if err := send(s.notifier); err != nil {
		s.log.WithError(err).Warnf("Failed to send %s notification", event)
	}
}
