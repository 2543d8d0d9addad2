package rates

import (
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bassline/ledger-service/internal/config"
	"github.com/sirupsen/logrus"
)

const keyRateResponse = `<?xml version="1.0" encoding="utf-8"?>
<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
  <soap12:Body>
    <KeyRateResponse xmlns="http://web.cbr.ru/">
      <KeyRateResult>
        <diffgram>
          <KeyRate>
            <KR><DT>2024-05-01T00:00:00</DT><Rate>16.00</Rate></KR>
            <KR><DT>2024-04-01T00:00:00</DT><Rate>15.50</Rate></KR>
          </KeyRate>
        </diffgram>
      </KeyRateResult>
    </KeyRateResponse>
  </soap12:Body>
</soap12:Envelope>`

func newTestClient(t *testing.T, handler http.HandlerFunc, margin float64) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewClient(&config.Config{KeyRateURL: srv.URL, KeyRateMargin: margin}, logger)
}

func TestSuggestedRateReturnsFraction(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "<KeyRate") {
			t.Errorf("Expected a KeyRate SOAP request, got: %s", body)
		}
		w.Write([]byte(keyRateResponse))
	}, 5)

	rate, err := client.SuggestedRate()
	if err != nil {
		t.Fatalf("SuggestedRate failed: %v", err)
	}

	// Latest key rate 16% plus 5-point margin, as a fraction
	if math.Abs(rate-0.21) > 1e-9 {
		t.Errorf("Expected suggested rate 0.21, got %v", rate)
	}
}

func TestSuggestedRateMarginConfigurable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(keyRateResponse))
	}, 2.5)

	rate, err := client.SuggestedRate()
	if err != nil {
		t.Fatalf("SuggestedRate failed: %v", err)
	}
	if math.Abs(rate-0.185) > 1e-9 {
		t.Errorf("Expected suggested rate 0.185, got %v", rate)
	}
}

func TestSuggestedRateNoData(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?><empty/>`))
	}, 5)

	if _, err := client.SuggestedRate(); err == nil {
		t.Error("Expected an error for a response without key rate data")
	}
}

func TestSuggestedRateServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}, 5)

	if _, err := client.SuggestedRate(); err == nil {
		t.Error("Expected an error for a 500 response")
	}
}
