package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FunctionSender hands the message to a separately deployed send-email
// function over HTTP.
type FunctionSender struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

func NewFunctionSender(url, apiKey string) (*FunctionSender, error) {
	if url == "" {
		return nil, fmt.Errorf("MAIL_FUNCTION_URL not set")
	}
	return &FunctionSender{
		url:        url,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (f *FunctionSender) Name() string { return "function" }

type functionRequest struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type functionResponse struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
}

func (f *FunctionSender) AttemptSend(ctx context.Context, msg Message) (Receipt, error) {
	body, err := json.Marshal(functionRequest{
		To:      msg.Recipients(),
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Receipt{}, fmt.Errorf("function request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Receipt{}, fmt.Errorf("function error %s: %s", resp.Status, string(respBody))
	}

	var parsed functionResponse
	_ = json.Unmarshal(respBody, &parsed)
	id := parsed.MessageID
	if id == "" {
		id = parsed.ID
	}
	return Receipt{MessageID: id, Response: string(respBody)}, nil
}
