package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/arosales/prestafacil/internal/config"
	"github.com/arosales/prestafacil/internal/handler"
	"github.com/arosales/prestafacil/internal/logging"
	"github.com/arosales/prestafacil/internal/middleware"
	"github.com/arosales/prestafacil/internal/repository"
	"github.com/arosales/prestafacil/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logging.Init("prestafacil-api", cfg.LogLevel, cfg.AppEnv)

	db, err := connectDB(cfg)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	loans := repository.NewLoanRepository(db)
	installments := repository.NewInstallmentRepository(db)
	ledger := repository.NewLedgerRepository(db)
	clients := repository.NewClientRepository(db)
	notes := repository.NewNoteRepository(db)
	users := repository.NewUserRepository(db)
	idempotency := repository.NewIdempotencyRepository(db)

	svc := service.NewService(loans, installments, ledger, clients, notes, db)

	jwtExpiry := time.Duration(cfg.TokenExpiryH) * time.Hour
	authHandler := handler.NewAuthHandler(users, cfg.JWTSecret, jwtExpiry)
	loanHandler := handler.NewLoanHandler(svc)
	paymentHandler := handler.NewPaymentHandler(svc)
	clientHandler := handler.NewClientHandler(svc)
	cashBoxHandler := handler.NewCashBoxHandler(svc)
	healthHandler := handler.NewHealthHandler(db)

	authMW := middleware.Auth(cfg.JWTSecret)
	idemMW := middleware.Idempotency(idempotency)

	// Mutations that move money are idempotency-keyed; reads and auth are not.
	protected := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	keyed := func(h http.HandlerFunc) http.Handler { return authMW(idemMW(h)) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.Liveness)
	mux.HandleFunc("GET /health/ready", healthHandler.Readiness)

	mux.HandleFunc("POST /api/v1/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)

	mux.Handle("POST /api/v1/loans", keyed(loanHandler.Create))
	mux.Handle("GET /api/v1/loans/{id}", protected(loanHandler.Get))
	mux.Handle("PATCH /api/v1/loans/{id}", protected(loanHandler.Update))
	mux.Handle("DELETE /api/v1/loans/{id}", protected(loanHandler.Delete))
	mux.Handle("POST /api/v1/loans/{id}/cancel", protected(loanHandler.Cancel))
	mux.Handle("POST /api/v1/loans/{id}/refinance", keyed(loanHandler.Refinance))
	mux.Handle("POST /api/v1/loans/{id}/notes", protected(loanHandler.AddNote))
	mux.Handle("DELETE /api/v1/loans/{id}/notes/{noteID}", protected(loanHandler.DeleteNote))

	mux.Handle("POST /api/v1/installments/{id}/payments", keyed(paymentHandler.Apply))
	mux.Handle("POST /api/v1/installments/{id}/corrections", keyed(paymentHandler.Correct))
	mux.Handle("POST /api/v1/installments/{id}/reversals", keyed(paymentHandler.Reverse))
	mux.Handle("GET /api/v1/installments/{id}/quote", protected(paymentHandler.Quote))

	mux.Handle("GET /api/v1/clients", protected(clientHandler.List))
	mux.Handle("GET /api/v1/clients/{id}", protected(clientHandler.Get))
	mux.Handle("PATCH /api/v1/clients/{id}", protected(clientHandler.Update))
	mux.Handle("DELETE /api/v1/clients/{id}", protected(clientHandler.Delete))

	mux.Handle("GET /api/v1/cashbox", protected(cashBoxHandler.Get))

	root := middleware.Tracing(middleware.Logging(middleware.Recovery(mux)))

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func connectDB(cfg *config.Config) (*sql.DB, error) {
	pool := repository.PoolConfig{
		MaxOpenConns:     cfg.DBMaxOpenConns,
		MaxIdleConns:     cfg.DBMaxIdleConns,
		ConnMaxLifetimeS: cfg.DBConnMaxLifetimeS,
		ConnMaxIdleTimeS: cfg.DBConnMaxIdleTimeS,
	}

	var err error
	for i := range 30 {
		var db *sql.DB
		db, err = repository.NewPostgresDB(context.Background(), cfg.DatabaseURL, pool)
		if err == nil {
			return db, nil
		}
		slog.Info("waiting for database", "attempt", i+1)
		time.Sleep(time.Second)
	}
	return nil, fmt.Errorf("connectDB: gave up after 30 attempts: %w", err)
}
