package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Dan9191/credit-dashboard/internal/config"
	"github.com/Dan9191/credit-dashboard/internal/handler"
	"github.com/Dan9191/credit-dashboard/internal/integrations/cbr"
	"github.com/Dan9191/credit-dashboard/internal/middleware"
	"github.com/Dan9191/credit-dashboard/internal/models"
	"github.com/Dan9191/credit-dashboard/internal/repository"
	"github.com/Dan9191/credit-dashboard/internal/scheduler"
	"github.com/Dan9191/credit-dashboard/internal/service"
	"github.com/Dan9191/credit-dashboard/internal/utils"
	"github.com/Dan9191/credit-dashboard/internal/utils/email"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the reminder scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func newLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)
	return logger
}

// openingLedger seeds the card with its starting balance as a card load
func openingLedger(cfg *config.Config, clock utils.Clock) repository.Seed {
	seed := repository.Seed{
		CreditLimit: cfg.CreditLimit,
		CreditUsed:  cfg.CreditUsed,
		Balance:     cfg.InitialBalance,
		Currency:    cfg.Currency,
	}
	if cfg.InitialBalance.IsPositive() {
		seed.Transactions = []models.Transaction{{
			ID:          "tx-initial",
			Type:        models.TxCardLoad,
			Amount:      cfg.InitialBalance,
			Description: "Initial card balance",
			OccurredAt:  clock.Now(),
			Status:      models.TxCompleted,
		}}
	}
	return seed
}

func serve(ctx context.Context) error {
	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := newLogger(cfg.LogLevel)

	// Initialize layers
	clock := utils.SystemClock{}
	repo, err := repository.NewRepository(openingLedger(cfg, clock))
	if err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}
	svc := service.NewService(repo, logger, clock, utils.UUIDSource{})
	if cfg.EmailEnabled() {
		svc.SetNotifier(email.NewSender(cfg, logger))
	}
	var rates handler.KeyRateSource
	if cfg.KeyRateEnabled {
		rates = cbr.NewCBRClient(cfg, logger)
	}
	h := handler.NewHandler(svc, rates, logger)

	sched := scheduler.New(svc, clock, time.Duration(cfg.ReminderDays)*24*time.Hour, logger)
	if cfg.ReminderSchedule != "" {
		if err := sched.Schedule(cfg.ReminderSchedule); err != nil {
			return err
		}
	}
	sched.Start()

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	sim := middleware.SimulationConfig{
		MinDelay:  time.Duration(cfg.SimulatedDelayMinMS) * time.Millisecond,
		MaxDelay:  time.Duration(cfg.SimulatedDelayMaxMS) * time.Millisecond,
		ErrorRate: cfg.SimulatedErrorRate,
	}
	if sim.Enabled() {
		logger.Warnf("Transport simulation enabled: delay %s-%s, error rate %.2f", sim.MinDelay, sim.MaxDelay, sim.ErrorRate)
		r.Use(middleware.Simulate(sim))
	}
	h.Register(r)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Server shutdown incomplete")
	}
	return sched.Stop(shutdownCtx)
}
