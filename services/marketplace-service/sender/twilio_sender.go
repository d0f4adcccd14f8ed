package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nyaruka/phonenumbers"
)

// SMSSender delivers a short text to a phone number.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (Receipt, error)
}

type TwilioConfig struct {
	AccountSID    string
	AuthToken     string
	FromNumber    string
	DefaultRegion string
}

type TwilioSender struct {
	cfg        TwilioConfig
	baseURL    string
	httpClient *http.Client
}

func NewTwilioSender(cfg TwilioConfig) (*TwilioSender, error) {
	if cfg.AccountSID == "" {
		return nil, fmt.Errorf("TWILIO_ACCOUNT_SID not set")
	}
	if cfg.AuthToken == "" {
		return nil, fmt.Errorf("TWILIO_AUTH_TOKEN not set")
	}
	if cfg.FromNumber == "" {
		return nil, fmt.Errorf("TWILIO_FROM_NUMBER not set")
	}
	if cfg.DefaultRegion == "" {
		cfg.DefaultRegion = "IN"
	}
	return &TwilioSender{
		cfg:        cfg,
		baseURL:    "https://api.twilio.com",
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// WithBaseURL points the sender at another host, e.g. a local mock.
func (t *TwilioSender) WithBaseURL(base string) *TwilioSender {
	t.baseURL = strings.TrimSuffix(base, "/")
	return t
}

func (t *TwilioSender) SendSMS(ctx context.Context, to, body string) (Receipt, error) {
	normalized, err := NormalizePhone(to, t.cfg.DefaultRegion)
	if err != nil {
		return Receipt{}, err
	}

	apiURL := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.cfg.AccountSID)
	form := url.Values{}
	form.Set("To", normalized)
	form.Set("From", t.cfg.FromNumber)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(t.cfg.AccountSID, t.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("twilio request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= 300 {
		return Receipt{}, fmt.Errorf("twilio error %s: %s", resp.Status, string(respBody))
	}

	var parsed struct {
		SID string `json:"sid"`
	}
	_ = json.Unmarshal(respBody, &parsed)
	return Receipt{MessageID: parsed.SID, Response: resp.Status}, nil
}

// NormalizePhone parses a number, national or international, and returns it
// in E.164. Messaging handles such as "whatsapp:+91..." keep their scheme.
func NormalizePhone(raw, defaultRegion string) (string, error) {
	scheme := ""
	num := strings.TrimSpace(raw)
	if i := strings.Index(num, ":"); i > 0 {
		scheme, num = num[:i+1], num[i+1:]
	}

	parsed, err := phonenumbers.Parse(num, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return "", fmt.Errorf("invalid phone number %q", raw)
	}
	return scheme + phonenumbers.Format(parsed, phonenumbers.E164), nil
}
