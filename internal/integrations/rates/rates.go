package rates

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bassline/ledger-service/internal/config"
	"github.com/beevik/etree"
	"github.com/sirupsen/logrus"
)

// Client derives the suggested installment interest rate from the
// central-bank key rate: key rate plus the house margin, converted into the
// fraction installment transactions carry in their InterestRate field.
type Client struct {
	url    string
	margin float64 // percentage points added on top of the key rate
	client *http.Client
	log    *logrus.Logger
}

// NewClient initializes a new suggested-rate client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		url:    cfg.KeyRateURL,
		margin: cfg.KeyRateMargin,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// keyRateEnvelope builds the SOAP request covering the last 30 days, so the
// response always holds at least one published rate
func keyRateEnvelope() string {
	fromDate := time.Now().AddDate(0, 0, -30).Format("2006-01-02")
	toDate := time.Now().Format("2006-01-02")
	return fmt.Sprintf(`<?xml version="1.0" encoding="utf-8"?>
		<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope">
			<soap12:Body>
				<KeyRate xmlns="http://web.cbr.ru/">
					<fromDate>%s</fromDate>
					<ToDate>%s</ToDate>
				</KeyRate>
			</soap12:Body>
		</soap12:Envelope>`, fromDate, toDate)
}

// fetchKeyRate posts the SOAP request and extracts the latest published key
// rate as a percentage
func (c *Client) fetchKeyRate() (float64, error) {
	req, err := http.NewRequest("POST", c.url, bytes.NewBufferString(keyRateEnvelope()))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/soap+xml; charset=utf-8")
	req.Header.Set("SOAPAction", "http://web.cbr.ru/KeyRate")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %v", err)
	}
	c.log.Debugf("Key rate XML response: %s", string(body))

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return 0, fmt.Errorf("failed to parse XML: %v", err)
	}
	// The newest rate comes first in the diffgram
	krElements := doc.FindElements("//diffgram/KeyRate/KR")
	if len(krElements) == 0 {
		return 0, fmt.Errorf("no key rate data found in XML")
	}
	rateElement := krElements[0].FindElement("./Rate")
	if rateElement == nil {
		return 0, fmt.Errorf("rate element not found in XML")
	}

	var rate float64
	if _, err := fmt.Sscanf(rateElement.Text(), "%f", &rate); err != nil {
		return 0, fmt.Errorf("failed to parse rate: %v", err)
	}
	return rate, nil
}

// SuggestedRate returns the rate to offer on new installment purchases as a
// fraction, e.g. 0.21 for a 16% key rate and a 5-point margin. The result
// plugs straight into TransactionDetails.InterestRate.
func (c *Client) SuggestedRate() (float64, error) {
	keyRate, err := c.fetchKeyRate()
	if err != nil {
		return 0, err
	}

	fraction := (keyRate + c.margin) / 100

	c.log.Infof("Suggested installment rate %.4f (key rate %.2f%% + %.2f%% margin)", fraction, keyRate, c.margin)
	return fraction, nil
}
