package lightning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Issuer is the payment-rail capability the mint consumes: create an
// invoice, check whether it was paid. The concrete node behind it is not
// this repo's concern.
type Issuer interface {
	Issue(ctx context.Context, amountSats int64, description string, expiry time.Duration) (*Issued, error)
	CheckStatus(ctx context.Context, externalID string) (*Status, error)
}

type Issued struct {
	ExternalID     string `json:"external_id"`
	PaymentRequest string `json:"payment_request"`
}

type Status struct {
	Paid           bool  `json:"paid"`
	AmountPaidSats int64 `json:"amount_paid_sats"`
}

// Client talks JSON to a Lightning invoice daemon.
type Client struct {
	baseURL string
	apiKey  string
	inner   *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		inner:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Issue(ctx context.Context, amountSats int64, description string, expiry time.Duration) (*Issued, error) {
	payload := map[string]any{
		"amount_sats":    amountSats,
		"description":    description,
		"expiry_seconds": int64(expiry / time.Second),
	}
	var out Issued
	if err := c.postJSON(ctx, "/v1/invoices", payload, &out); err != nil {
		return nil, err
	}
	if out.ExternalID == "" || out.PaymentRequest == "" {
		return nil, fmt.Errorf("issuer returned incomplete invoice")
	}
	return &out, nil
}

func (c *Client) CheckStatus(ctx context.Context, externalID string) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/invoices/"+externalID, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)
	resp, err := c.inner.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("issuer status check failed with status %d", resp.StatusCode)
	}
	var out Status
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req)
	resp, err := c.inner.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("issuer request failed with status %d", resp.StatusCode)
	}
	return json.Unmarshal(respRaw, out)
}

func (c *Client) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}
