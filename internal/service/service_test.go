package service

import (
	"io"
	"testing"
	"time"

	"github.com/bassline/ledger-service/internal/config"
	"github.com/bassline/ledger-service/internal/store"
	"github.com/sirupsen/logrus"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:       "test-secret",
		ReferencePrefix: "BLC",
	}
	return NewService(st, logger, cfg), st
}

// fixNow pins the service clock to a known instant
func fixNow(svc *Service, at time.Time) {
	svc.now = func() time.Time { return at }
}
