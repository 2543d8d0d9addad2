package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"database/sql"

	"github.com/bassline/ledger-service/internal/config"
	"github.com/bassline/ledger-service/internal/handler"
	"github.com/bassline/ledger-service/internal/integrations/rates"
	"github.com/bassline/ledger-service/internal/middleware"
	"github.com/bassline/ledger-service/internal/notify"
	"github.com/bassline/ledger-service/internal/service"
	"github.com/bassline/ledger-service/internal/store"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
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
	if err := godotenv.Load(); err != nil {
		logger.Debugf("No .env file loaded: %v", err)
	}
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize record store: postgres when configured, in-memory otherwise
	var st store.Store
	if cfg.DBConn != "" {
		db, err := sql.Open("postgres", cfg.DBConn)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatalf("Failed to ping database: %v", err)
		}
		pg := store.NewPostgres(db)
		if err := pg.InitSchema(); err != nil {
			logger.Fatalf("Failed to init schema: %v", err)
		}
		st = pg
	} else {
		logger.Warn("DB_CONN not set, using in-memory store")
		st = store.NewMemory()
	}

	// Initialize layers
	svc := service.NewService(st, logger, cfg)
	h := handler.NewHandler(svc)
	ratesClient := rates.NewClient(cfg, logger)
	sender := notify.NewSender(cfg, logger)

	// Daily payment reminders
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.ReminderSchedule, func() {
		due, err := svc.LoansDue(time.Now())
		if err != nil {
			logger.Errorf("Failed to list due loans: %v", err)
			return
		}
		for i := range due {
			loan := &due[i]
			user, err := svc.UserByID(loan.UserID)
			if err != nil {
				logger.Errorf("Failed to resolve user for loan %s: %v", loan.ID, err)
				continue
			}
			if err := sender.SendPaymentReminder(user, loan); err != nil {
				logger.Errorf("Failed to remind loan %s: %v", loan.ID, err)
			}
		}
	})
	if err != nil {
		logger.Fatalf("Failed to schedule reminders: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Setup router
	r := mux.NewRouter()
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	// Suggested installment rate, as the InterestRate fraction
	r.HandleFunc("/key-rate", func(w http.ResponseWriter, r *http.Request) {
		rate, err := ratesClient.SuggestedRate()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to get key rate: %v", err), http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]float64{"suggested_rate": rate})
	}).Methods("GET")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/logout", h.Logout).Methods("POST")
	authRouter.HandleFunc("/transactions", h.RecordTransaction).Methods("POST")
	authRouter.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	authRouter.HandleFunc("/transactions/{id}/status", h.UpdateTransactionStatus).Methods("PATCH")
	authRouter.HandleFunc("/loans", h.ActiveLoans).Methods("GET")
	authRouter.HandleFunc("/loans/{id}", h.GetLoan).Methods("GET")
	authRouter.HandleFunc("/loans/{id}/payments", h.MakePayment).Methods("POST")
	authRouter.HandleFunc("/balance", h.AdjustBalance).Methods("POST")
	authRouter.HandleFunc("/summary", h.AccountSummary).Methods("GET")
	authRouter.HandleFunc("/summary/{year}/{month}", h.MonthlySummary).Methods("GET")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logger.Infof("Starting server on %s", addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("Server failed: %v", err)
	}
}
