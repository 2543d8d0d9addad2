package service

import (
	"time"

	"github.com/bassline/ledger-service/internal/config"
	"github.com/bassline/ledger-service/internal/store"
	"github.com/sirupsen/logrus"
)

// Service handles business logic: the transaction engine, the loan
// amortization engine, the ledger reporter and user management, all on top
// of an injected record store.
type Service struct {
	store  store.Store
	log    *logrus.Logger
	config *config.Config
	now    func() time.Time
}

// NewService initializes a new service
func NewService(st store.Store, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{store: st, log: log, config: cfg, now: time.Now}
}
