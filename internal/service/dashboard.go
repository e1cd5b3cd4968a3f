package service

import (
	"context"

	"github.com/Dan9191/credit-dashboard/internal/models"
	"golang.org/x/sync/errgroup"
)

// Dashboard aggregates the data shown on the landing page
type Dashboard struct {
	CreditInfo models.CreditLine  `json:"credit_info"`
	Balance    models.CardAccount `json:"balance"`
	Loans      []models.Loan      `json:"loans"`
}

// Dashboard loads credit info, balance and loans concurrently. Any failing
// source fails the whole aggregate.
func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	var d Dashboard
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		credit, err := s.CreditInfo(ctx)
		if err != nil {
			return err
		}
		d.CreditInfo = credit
		return nil
	})
	g.Go(func() error {
		balance, err := s.Balance(ctx)
		if err != nil {
			return err
		}
		d.Balance = balance
		return nil
	})
	g.Go(func() error {
		loans, err := s.ListLoans(ctx)
		if err != nil {
			return err
		}
		d.Loans = loans
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
