// Package wallet requests currency credits from the external wallet service.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Credit request outcomes. A queued credit is accepted but deferred; the
// wallet service owns the retry.
const (
	ResultOK     = "ok"
	ResultQueued = "queued"
)

// CreditRequest asks the wallet to credit a user.
type CreditRequest struct {
	UserID string `json:"user_id"`
	Amount int    `json:"amount"`
	Reason string `json:"reason"`
	// IdempotencyKey deduplicates retried requests. The dispatcher uses
	// the badge award identifier so a retried completion never credits twice.
	IdempotencyKey string `json:"-"`
}

// Wallet is the external currency ledger collaborator. The engine only
// requests credits; ledger semantics live on the other side.
type Wallet interface {
	Credit(ctx context.Context, req CreditRequest) (string, error)
}

// HTTPWallet talks to the wallet service over HTTP.
type HTTPWallet struct {
	baseURL string
	client  *http.Client
}

// NewHTTP creates an HTTPWallet for the given service base URL.
func NewHTTP(baseURL string) (*HTTPWallet, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("wallet: base URL is required")
	}
	return &HTTPWallet{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// creditResponse is the wire shape of the wallet's credit endpoint.
type creditResponse struct {
	Result string `json:"result"`
}

// Credit posts a credit request. Returns ResultOK or ResultQueued on
// acceptance; any other status is an error the caller may retry with the
// same idempotency key.
func (w *HTTPWallet) Credit(ctx context.Context, req CreditRequest) (string, error) {
	if req.UserID == "" {
		return "", fmt.Errorf("wallet: userID is required")
	}
	if req.Amount <= 0 {
		return "", fmt.Errorf("wallet: amount must be positive")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("wallet: marshal credit request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/credits", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("wallet: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.IdempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)
	}

	resp, err := w.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("wallet: credit %s: %w", req.UserID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		var body creditResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return "", fmt.Errorf("wallet: decode credit response: %w", err)
		}
		if body.Result == "" {
			body.Result = ResultOK
		}
		return body.Result, nil
	case http.StatusAccepted:
		return ResultQueued, nil
	default:
		return "", fmt.Errorf("wallet: credit %s: status %d", req.UserID, resp.StatusCode)
	}
}

// Null is a Wallet that accepts every credit without doing anything.
// Used when no wallet service is configured and in tests.
type Null struct{}

// Credit always reports ok.
func (Null) Credit(context.Context, CreditRequest) (string, error) {
	return ResultOK, nil
}
