package rgb

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

// Producer is the asset-transfer capability: given a recipient and an
// amount it returns an opaque consignment artifact binding the transfer.
type Producer interface {
	Produce(ctx context.Context, recipient string, amount int64) ([]byte, error)
}

// Client talks JSON to an RGB transfer daemon and downloads the resulting
// consignment bytes.
type Client struct {
	baseURL string
	apiKey  string
	inner   *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		inner:   &http.Client{Timeout: timeout},
	}
}

func (c *Client) Produce(ctx context.Context, recipient string, amount int64) ([]byte, error) {
	raw, err := json.Marshal(map[string]any{
		"recipient": recipient,
		"amount":    amount,
	})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transfers", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.inner.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	artifact, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("transfer failed with status %d", resp.StatusCode)
	}
	if len(artifact) == 0 {
		return nil, fmt.Errorf("transfer returned empty consignment")
	}
	return artifact, nil
}
