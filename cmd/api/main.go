package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/dberezin/bank-core/internal/config"
	"github.com/dberezin/bank-core/internal/handler"
	"github.com/dberezin/bank-core/internal/integrations/rates"
	"github.com/dberezin/bank-core/internal/jobs"
	"github.com/dberezin/bank-core/internal/middleware"
	"github.com/dberezin/bank-core/internal/repository"
	"github.com/dberezin/bank-core/internal/service"
	"github.com/dberezin/bank-core/internal/utils/email"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db)
	mailer := email.NewSender(cfg, logger)
	svc := service.NewService(repo, logger, cfg, mailer)
	h := handler.NewHandler(svc, logger)
	ratesClient := rates.NewClient(cfg, logger)

	// Nightly balance-vs-ledger reconciliation
	reconciler := jobs.NewReconciler(repo, logger)
	if err := reconciler.Start(); err != nil {
		logger.Fatalf("Failed to start reconciliation job: %v", err)
	}
	defer reconciler.Stop()

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.RequestID(logger))
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/rates/savings", func(w http.ResponseWriter, r *http.Request) {
		rate, err := ratesClient.SavingsRate()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get savings rate: %v", err), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"savings_rate": rate})
	}).Methods("GET")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/accounts", h.CreateAccount).Methods("POST")
	authRouter.HandleFunc("/accounts", h.ListAccounts).Methods("GET")
	authRouter.HandleFunc("/transfers", h.Transfer).Methods("POST")
	authRouter.HandleFunc("/accounts/{id:[0-9]+}/fund", h.FundAccount).Methods("POST")
	authRouter.HandleFunc("/accounts/{id:[0-9]+}/transactions", h.Transactions).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Shutdown failed: %v", err)
	}
}
