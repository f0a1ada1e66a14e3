// Package gateway предоставляет клиент API статусов платёжного шлюза.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Статусы платежа на стороне шлюза.
const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusSucceeded  = "SUCCEEDED"
	StatusFailed     = "FAILED"
	StatusCanceled   = "CANCELED"
)

// ErrNotConfigured возвращается, если адрес шлюза не задан.
var ErrNotConfigured = errors.New("payment gateway client not configured")

// Client инкапсулирует HTTP-взаимодействие с платёжным шлюзом.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Payment описывает ответ шлюза по одному заказу.
type Payment struct {
	Order  string  `json:"order"`
	Status string  `json:"status"`
	Amount float64 `json:"amount,omitempty"`
}

// Result описывает результат запроса статуса платежа.
// RetryAfter заполняется, если шлюз ответил 429.
type Result struct {
	Payment    *Payment
	StatusCode int
	RetryAfter time.Duration
}

// NewClient создаёт HTTP-клиент для обращения к платёжному шлюзу по указанному адресу.
func NewClient(baseURL string) *Client {
	base := strings.TrimRight(baseURL, "/")
	if base != "" && !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}

	return &Client{
		baseURL: base,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// GetPayment запрашивает статус оплаты заказа.
func (c *Client) GetPayment(ctx context.Context, orderID string) (Result, error) {
	if c == nil || c.baseURL == "" {
		return Result{}, ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/api/payments/%s", c.baseURL, url.PathEscape(orderID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	res := Result{StatusCode: resp.StatusCode}

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				res.RetryAfter = time.Duration(seconds) * time.Second
			}
		}
		return res, nil
	case http.StatusNoContent:
		return res, nil
	case http.StatusOK:
	default:
		return res, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var p Payment
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return res, fmt.Errorf("decode response: %w", err)
	}
	res.Payment = &p

	return res, nil
}
