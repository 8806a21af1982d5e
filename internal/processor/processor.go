package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/toniautla/settlement/internal/config"
	"github.com/toniautla/settlement/pkg/clients"
)

const (
	maxRetries    = 3
	retryInterval = time.Second * 1
)

var ErrProcessorUnavailable = errors.New("payment processor unavailable")

// IntentRequest carries the charge amount in minor units plus the metadata
// the processor echoes back in webhook notifications.
type IntentRequest struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata"`
}

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type errorResponse struct {
	Message string `json:"message"`
}

type Client struct {
	url    string
	client clients.HTTPClientI
}

func New(cfg *config.Config, client clients.HTTPClientI) *Client {
	return &Client{
		url:    cfg.ProcessorAddress,
		client: client,
	}
}

// CreateIntent asks the processor for a payment intent. Callers must invoke
// it outside any open database transaction: the order is committed first and
// stays pending until reconciliation.
func (c *Client) CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	url := c.url + "/api/payment_intents"
	var resp *http.Response
	for attempt := 1; attempt <= maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err = c.client.Do(httpReq)
		if err == nil {
			break
		}
		zap.L().Warn("payment intent request failed",
			zap.Int("attempt", attempt), zap.Error(err))
		if attempt == maxRetries {
			return nil, fmt.Errorf("%w: %v", ErrProcessorUnavailable, err)
		}
		time.Sleep(retryInterval)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Message == "" {
			errResp.Message = resp.Status
		}
		return nil, fmt.Errorf("processor rejected intent: %s", errResp.Message)
	}

	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("can't decode intent response: %w", err)
	}
	return &intent, nil
}
