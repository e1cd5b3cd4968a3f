package service

import (
	"errors"

	"github.com/Dan9191/credit-dashboard/internal/amortization"
	"github.com/Dan9191/credit-dashboard/internal/repository"
)

// Validation and lifecycle errors. Callers match them with errors.Is; the
// wrapped message carries the human-readable detail.
var (
	ErrAmountOutOfRange       = errors.New("loan amount must be between $100 and $5,000")
	ErrMissingName            = errors.New("loan name is required")
	ErrInsufficientCredit     = repository.ErrInsufficientCredit
	ErrUnsupportedTerm        = amortization.ErrUnsupportedTerm
	ErrLoanNotFound           = repository.ErrLoanNotFound
	ErrTerminalState          = errors.New("loan is in a terminal state")
	ErrTermsMismatch          = errors.New("selected terms do not match the requested loan")
	ErrInstallmentNotFound    = errors.New("installment not found")
	ErrInstallmentAlreadyPaid = errors.New("installment already paid")
	ErrInvalidPaymentAmount   = errors.New("payment amount must be positive")
	ErrUnsupportedCurrency    = errors.New("unsupported currency")
)
