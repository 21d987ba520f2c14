package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// RelayClient hands report emails to a remote relay over HTTP.
type RelayClient struct {
	url    string
	client *http.Client
	logger *logrus.Logger
}

func NewRelayClient(url string, timeout time.Duration, logger *logrus.Logger) *RelayClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RelayClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

func (rc *RelayClient) Send(ctx context.Context, email *ReportEmail) error {
	payload, err := json.Marshal(NewRelayRequest(email))
	if err != nil {
		return fmt.Errorf("failed to encode relay request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rc.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create relay request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := rc.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach email relay: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read relay response: %w", err)
	}

	var result RelayResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("unexpected relay response (status %d): %w", resp.StatusCode, err)
	}
	if !result.Success {
		return fmt.Errorf("email relay rejected request: %s", result.Message)
	}

	rc.logger.WithFields(logrus.Fields{
		"recipient": email.Recipient,
		"client":    email.ClientName,
	}).Info("Report email handed to relay")
	return nil
}
