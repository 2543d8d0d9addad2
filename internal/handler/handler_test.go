package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bassline/ledger-service/internal/config"
	"github.com/bassline/ledger-service/internal/middleware"
	"github.com/bassline/ledger-service/internal/models"
	"github.com/bassline/ledger-service/internal/service"
	"github.com/bassline/ledger-service/internal/store"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{
		JWTSecret:       "test-secret",
		ReferencePrefix: "BLC",
	}
	svc := service.NewService(store.NewMemory(), logger, cfg)
	h := NewHandler(svc)

	r := mux.NewRouter()
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(cfg))
	authRouter.HandleFunc("/transactions", h.RecordTransaction).Methods("POST")
	authRouter.HandleFunc("/transactions", h.ListTransactions).Methods("GET")
	authRouter.HandleFunc("/loans", h.ActiveLoans).Methods("GET")
	authRouter.HandleFunc("/loans/{id}/payments", h.MakePayment).Methods("POST")
	authRouter.HandleFunc("/summary", h.AccountSummary).Methods("GET")

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("Failed to encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func decode(t *testing.T, resp *http.Response, into interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func registerAndLogin(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := doJSON(t, "POST", srv.URL+"/register", "", map[string]string{
		"name": "Thabo", "email": "thabo@example.com", "password": "hunter2",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Register returned %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "POST", srv.URL+"/login", "", map[string]string{
		"email": "thabo@example.com", "password": "hunter2",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Login returned %d", resp.StatusCode)
	}
	var login struct {
		Token string `json:"token"`
	}
	decode(t, resp, &login)
	if login.Token == "" {
		t.Fatal("Login returned empty token")
	}
	return login.Token
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	srv := newTestServer(t)

	resp := doJSON(t, "GET", srv.URL+"/summary", "", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "GET", srv.URL+"/summary", "not-a-jwt", nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 with bad token, got %d", resp.StatusCode)
	}
}

func TestRecordTransactionOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := doJSON(t, "POST", srv.URL+"/transactions", token, map[string]interface{}{
		"service":       "respray",
		"amount":        1000,
		"method":        "installment",
		"term":          12,
		"interest_rate": 0.1,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var tx models.Transaction
	decode(t, resp, &tx)
	if tx.Method != models.MethodInstallment || tx.Status != models.StatusPending {
		t.Errorf("Unexpected transaction: %+v", tx)
	}

	// The linked loan shows up in the active loans and the summary
	resp = doJSON(t, "GET", srv.URL+"/loans", token, nil)
	var loans []models.Loan
	decode(t, resp, &loans)
	if len(loans) != 1 || loans[0].TransactionID != tx.ID {
		t.Fatalf("Expected one loan linked to %s, got %+v", tx.ID, loans)
	}

	resp = doJSON(t, "GET", srv.URL+"/summary", token, nil)
	var summary models.AccountSummary
	decode(t, resp, &summary)
	if summary.TransactionCount != 1 || summary.ActiveLoans != 1 {
		t.Errorf("Unexpected summary: %+v", summary)
	}
	if summary.TotalSpent != 1000 {
		t.Errorf("Expected total spent 1000, got %v", summary.TotalSpent)
	}
}

func TestBankTransferGetsReference(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := doJSON(t, "POST", srv.URL+"/transactions", token, map[string]interface{}{
		"amount": 250,
		"method": "bank",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	var tx models.Transaction
	decode(t, resp, &tx)
	want := "BLC-" + tx.ID[len(tx.ID)-8:]
	if tx.BankReference != want {
		t.Errorf("Expected bank reference %q, got %q", want, tx.BankReference)
	}
}

func TestMakePaymentOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := doJSON(t, "POST", srv.URL+"/transactions", token, map[string]interface{}{
		"amount": 100, "method": "installment", "term": 2, "interest_rate": 0.1,
	})
	resp.Body.Close()

	resp = doJSON(t, "GET", srv.URL+"/loans", token, nil)
	var loans []models.Loan
	decode(t, resp, &loans)
	if len(loans) != 1 {
		t.Fatalf("Expected one loan, got %d", len(loans))
	}
	loanURL := srv.URL + "/loans/" + loans[0].ID + "/payments"

	resp = doJSON(t, "POST", loanURL, token, map[string]float64{"amount": 55})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	resp = doJSON(t, "POST", loanURL, token, map[string]float64{"amount": 55})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}

	// Loan is now completed: a further payment conflicts, and it leaves the
	// active list
	resp = doJSON(t, "POST", loanURL, token, map[string]float64{"amount": 55})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("Expected 409 on completed loan, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "GET", srv.URL+"/loans", token, nil)
	decode(t, resp, &loans)
	if len(loans) != 0 {
		t.Errorf("Expected no active loans, got %d", len(loans))
	}

	// Paying a loan that does not exist is a 404
	resp = doJSON(t, "POST", srv.URL+"/loans/missing/payments", token, map[string]float64{"amount": 55})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown loan, got %d", resp.StatusCode)
	}
}
