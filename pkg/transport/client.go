package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Layr-Labs/merkle-airdrop-go/pkg/server"
	"github.com/Layr-Labs/merkle-airdrop-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

var ErrAccountNotFound = errors.New("account is not in the airdrop")

// RetryConfig configures retry behavior
type RetryConfig struct {
	MaxAttempts     int
	InitialBackoff  time.Duration
	MaxBackoff      time.Duration
	BackoffMultiple float64
}

// DefaultRetryConfig provides default retry settings
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     5,
	InitialBackoff:  100 * time.Millisecond,
	MaxBackoff:      5 * time.Second,
	BackoffMultiple: 2.0,
}

// Client fetches roots and proofs from a proof server.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *zap.Logger
}

// NewClient creates a new proof API client for baseURL (e.g. http://localhost:8080)
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		retryConfig: DefaultRetryConfig,
		logger:      logger,
	}
}

func (c *Client) WithRetryConfig(rc RetryConfig) *Client {
	c.retryConfig = rc
	return c
}

// buildRequestURL constructs a full URL for a server endpoint
func buildRequestURL(baseURL, path string) string {
	return fmt.Sprintf("%s%s", baseURL, path)
}

// GetRoot fetches the root the server's proofs belong to.
func (c *Client) GetRoot(ctx context.Context) (*server.RootResponse, error) {
	var resp server.RootResponse
	if err := c.getJSON(ctx, "/root", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetProof fetches the whitelisted leaf and proof for account.
func (c *Client) GetProof(ctx context.Context, account common.Address) (*types.Leaf, [][32]byte, error) {
	var resp server.ProofResponse
	if err := c.getJSON(ctx, "/proof/"+account.Hex(), &resp); err != nil {
		return nil, nil, err
	}
	leaf, err := types.ParseLeaf(resp.Account, resp.Amount)
	if err != nil {
		return nil, nil, fmt.Errorf("server returned an invalid leaf: %w", err)
	}
	if leaf.Account != account {
		return nil, nil, fmt.Errorf("server returned a proof for %s, asked for %s", leaf.Account.Hex(), account.Hex())
	}
	return leaf, types.FromHash32s(resp.Proof), nil
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.status, e.body)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	return !errors.Is(err, ErrAccountNotFound)
}

// getJSON GETs path with retries on transport errors, 429 and 5xx.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	url := buildRequestURL(c.baseURL, path)

	var lastErr error
	backoff := c.retryConfig.InitialBackoff
	for attempt := 0; attempt < c.retryConfig.MaxAttempts; attempt++ {
		lastErr = c.doGet(ctx, url, out)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}

		c.logger.Sugar().Debugw("Proof server request failed", "url", url, "attempt", attempt+1, "error", lastErr)
		if attempt < c.retryConfig.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.retryConfig.BackoffMultiple)
			if backoff > c.retryConfig.MaxBackoff {
				backoff = c.retryConfig.MaxBackoff
			}
		}
	}

	return fmt.Errorf("failed to GET %s after %d attempts: %w", url, c.retryConfig.MaxAttempts, lastErr)
}

func (c *Client) doGet(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrAccountNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{status: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
