package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Dan9191/credit-dashboard/internal/integrations/cbr"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/repository"
	"github.com/Dan9191/credit-dashboard/internal/service"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// KeyRateSource provides the benchmark central bank rate
type KeyRateSource interface {
	GetKeyRate(ctx context.Context) (cbr.KeyRate, error)
}

type Handler struct {
	svc   *service.Service
	rates KeyRateSource
	log   *logrus.Logger
}

func NewHandler(svc *service.Service, rates KeyRateSource, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, rates: rates, log: log}
}

// Register mounts all routes on r
func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/credit", h.GetCreditInfo).Methods(http.MethodGet)
	r.HandleFunc("/balance", h.GetBalance).Methods(http.MethodGet)
	r.HandleFunc("/dashboard", h.GetDashboard).Methods(http.MethodGet)
	r.HandleFunc("/transactions", h.ListTransactions).Methods(http.MethodGet)
	r.HandleFunc("/loans", h.ListLoans).Methods(http.MethodGet)
	r.HandleFunc("/loans", h.ApproveLoan).Methods(http.MethodPost)
	r.HandleFunc("/loans/quote", h.QuoteLoan).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}", h.GetLoan).Methods(http.MethodGet)
	r.HandleFunc("/loans/{id}/transactions", h.LoanTransactions).Methods(http.MethodGet)
	r.HandleFunc("/loans/{id}/payments", h.MakePayment).Methods(http.MethodPost)
	r.HandleFunc("/loans/{id}/deposit-address", h.GetDepositAddress).Methods(http.MethodGet)
	if h.rates != nil {
		r.HandleFunc("/key-rate", h.GetKeyRate).Methods(http.MethodGet)
	}
}

type apiResponse struct {
	Data    any    `json:"data,omitempty"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type quoteRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Name      string          `json:"name"`
	TermCount int             `json:"term_count,omitempty"`
}

type approveRequest struct {
	Terms  models.LoanTerms `json:"terms"`
	Amount decimal.Decimal  `json:"amount"`
	Name   string           `json:"name"`
}

type paymentRequest struct {
	InstallmentID string          `json:"installment_id"`
	Amount        decimal.Decimal `json:"amount"`
}

// GetCreditInfo returns the credit line
func (h *Handler) GetCreditInfo(w http.ResponseWriter, r *http.Request) {
	credit, err := h.svc.CreditInfo(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, credit, "Credit information retrieved successfully")
}

// GetBalance returns the card balance
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.svc.Balance(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, balance, "Balance retrieved successfully")
}

// GetDashboard returns credit info, balance and loans together
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, d, "")
}

// QuoteLoan returns repayment options for a requested amount
func (h *Handler) QuoteLoan(w http.ResponseWriter, r *http.Request) {
	var req quoteRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.TermCount != 0 {
		terms, err := h.svc.QuoteTerm(r.Context(), req.Amount, req.Name, req.TermCount)
		if err != nil {
			h.fail(w, err)
			return
		}
		h.ok(w, http.StatusOK, terms, "Loan terms generated successfully")
		return
	}
	opts, err := h.svc.QuoteOptions(r.Context(), req.Amount, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, opts, "Loan terms generated successfully")
}

// ApproveLoan takes out a loan on previously quoted terms
func (h *Handler) ApproveLoan(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if !h.decode(w, r, &req) {
		return
	}
	// approval must not be abandoned halfway by a dropped connection
	res, err := h.svc.Approve(context.WithoutCancel(r.Context()), req.Terms, req.Amount, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusCreated, res,
		fmt.Sprintf("Loan approved! $%s has been added to your card balance.", req.Amount.StringFixed(2)))
}

// ListLoans returns all loans
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.ListLoans(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, loans, "Loans retrieved successfully")
}

// GetLoan returns one loan with its schedule
func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	loan, err := h.svc.GetLoan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, loan, "Loan information retrieved successfully")
}

// LoanTransactions returns the ledger entries of one loan
func (h *Handler) LoanTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.svc.LoanTransactions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, txs, "Loan transactions retrieved successfully")
}

// MakePayment pays one installment of a loan
func (h *Handler) MakePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.svc.ApplyPayment(context.WithoutCancel(r.Context()), mux.Vars(r)["id"], req.InstallmentID, req.Amount)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, res, fmt.Sprintf("Payment of $%s processed successfully", req.Amount.StringFixed(2)))
}

// GetDepositAddress returns where to send a crypto payment for a loan
func (h *Handler) GetDepositAddress(w http.ResponseWriter, r *http.Request) {
	addr, err := h.svc.DepositAddress(r.Context(), mux.Vars(r)["id"], r.URL.Query().Get("currency"))
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, addr, "Deposit address generated successfully")
}

// ListTransactions returns a page of transaction history
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), repository.DefaultTransactionLimit)
	if err != nil {
		h.badRequest(w, fmt.Sprintf("invalid limit: %v", err))
		return
	}
	offset, err := queryInt(q.Get("offset"), 0)
	if err != nil {
		h.badRequest(w, fmt.Sprintf("invalid offset: %v", err))
		return
	}
	filter := repository.TransactionFilter{LoanID: q.Get("loan_id")}
	if since := q.Get("since"); since != "" {
		filter.Since, err = time.Parse(time.RFC3339, since)
		if err != nil {
			h.badRequest(w, fmt.Sprintf("invalid since: %v", err))
			return
		}
	}

	txs, err := h.svc.Transactions(r.Context(), filter, limit, offset)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.ok(w, http.StatusOK, txs, "Transactions retrieved successfully")
}

// GetKeyRate returns the central bank key rate
func (h *Handler) GetKeyRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rates.GetKeyRate(r.Context())
	if err != nil {
		h.log.WithError(err).Error("Failed to get key rate")
		h.write(w, http.StatusBadGateway, apiResponse{Error: fmt.Sprintf("Failed to get key rate: %v", err)})
		return
	}
	h.ok(w, http.StatusOK, rate, "")
}

func queryInt(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return n, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.badRequest(w, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (h *Handler) ok(w http.ResponseWriter, status int, data any, message string) {
	h.write(w, status, apiResponse{Data: data, Success: true, Message: message})
}

func (h *Handler) badRequest(w http.ResponseWriter, msg string) {
	h.write(w, http.StatusBadRequest, apiResponse{Error: msg})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("Request failed")
	}
	h.write(w, status, apiResponse{Error: err.Error()})
}

func (h *Handler) write(w http.ResponseWriter, status int, body apiResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.WithError(err).Warn("Failed to encode response")
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrLoanNotFound),
		errors.Is(err, service.ErrInstallmentNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTerminalState),
		errors.Is(err, service.ErrInstallmentAlreadyPaid):
		return http.StatusConflict
	case errors.Is(err, service.ErrAmountOutOfRange),
		errors.Is(err, service.ErrMissingName),
		errors.Is(err, service.ErrInsufficientCredit),
		errors.Is(err, service.ErrUnsupportedTerm),
		errors.Is(err, service.ErrTermsMismatch),
		errors.Is(err, service.ErrInvalidPaymentAmount),
		errors.Is(err, service.ErrUnsupportedCurrency):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
