package gateway

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stoqhq/stoq-backend/internal/config"
)

// Subscription mirrors the gateway's subscription entity, reduced to the
// fields this service reads.
type Subscription struct {
	ID        string `json:"id"`
	PlanID    string `json:"plan_id"`
	Status    string `json:"status"`
	ShortURL  string `json:"short_url"`
	CreatedAt int64  `json:"created_at"`
}

// Client is the payment gateway surface used by the subscription service.
type Client interface {
	CreateSubscription(planID string, totalCount int) (*Subscription, error)
	FetchSubscription(subscriptionID string) (*Subscription, error)
	CancelSubscription(subscriptionID string) (*Subscription, error)
}

type razorpayClient struct {
	httpClient *http.Client
	baseURL    string
	keyID      string
	keySecret  string
}

func NewRazorpayClient(cfg *config.Config) Client {
	return &razorpayClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   cfg.RazorpayAPIURL,
		keyID:     cfg.RazorpayKeyID,
		keySecret: cfg.RazorpayKeySecret,
	}
}

func (c *razorpayClient) CreateSubscription(planID string, totalCount int) (*Subscription, error) {
	body := map[string]interface{}{
		"plan_id":         planID,
		"total_count":     totalCount,
		"customer_notify": 1,
	}
	return c.do("POST", "/subscriptions", body)
}

func (c *razorpayClient) FetchSubscription(subscriptionID string) (*Subscription, error) {
	return c.do("GET", "/subscriptions/"+subscriptionID, nil)
}

func (c *razorpayClient) CancelSubscription(subscriptionID string) (*Subscription, error) {
	return c.do("POST", "/subscriptions/"+subscriptionID+"/cancel", map[string]interface{}{
		"cancel_at_cycle_end": 0,
	})
}

func (c *razorpayClient) do(method, path string, body map[string]interface{}) (*Subscription, error) {
	var payload *bytes.Buffer
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		payload = bytes.NewBuffer(b)
	} else {
		payload = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.keyID + ":" + c.keySecret))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Description string `json:"description"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Description != "" {
			return nil, fmt.Errorf("gateway error (%d): %s", resp.StatusCode, apiErr.Error.Description)
		}
		return nil, fmt.Errorf("gateway error: status %d", resp.StatusCode)
	}

	var sub Subscription
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &sub, nil
}
