package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/splitledger/splitledger/internal/money"
)

// Client talks to a Stripe-style payment provider over HTTPS: intents
// are created with a form-encoded POST and read back as JSON. The
// request timeout caps how long a settlement call can block.
type Client struct {
	baseURL   string
	secretKey string
	http      *http.Client
}

// NewClient creates a provider client. timeout bounds every request;
// zero means 10 seconds.
func NewClient(baseURL, secretKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		http:      &http.Client{Timeout: timeout},
	}
}

// intentResponse is the subset of the provider's intent object we read.
type intentResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateIntent registers a collection request with the provider.
func (c *Client) CreateIntent(ctx context.Context, amount money.Cents, currency string) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(int64(amount), 10))
	form.Set("currency", strings.ToLower(currency))
	form.Set("payment_method_types[]", "card")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	intent, err := c.do(req)
	if err != nil {
		return "", err
	}
	if intent.ID == "" {
		return "", fmt.Errorf("%w: provider returned no intent id", ErrExternalService)
	}
	return intent.ID, nil
}

// RetrieveIntent fetches the provider's current status for the intent.
func (c *Client) RetrieveIntent(ctx context.Context, intentID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payment_intents/"+url.PathEscape(intentID), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	intent, err := c.do(req)
	if err != nil {
		return "", err
	}
	if intent.Status == "" {
		return "", fmt.Errorf("%w: provider returned no status", ErrExternalService)
	}
	return intent.Status, nil
}

func (c *Client) do(req *http.Request) (*intentResponse, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrExternalService, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: provider returned HTTP %d", ErrExternalService, resp.StatusCode)
	}

	var intent intentResponse
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrExternalService, err)
	}
	return &intent, nil
}
