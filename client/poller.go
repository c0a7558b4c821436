// Package client provides the polling convenience the storefront pages use
// to reflect webhook-driven order updates without a push channel.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/OTapias/alican-teca/models"
)

// StatusPoller fetches an order's representation on a fixed interval until
// the status leaves pending. The server cannot cancel it; stopping is the
// caller's job via the context.
type StatusPoller struct {
	BaseURL    string
	HTTPClient *http.Client
	Interval   time.Duration
}

func NewStatusPoller(baseURL string) *StatusPoller {
	return &StatusPoller{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Interval:   3 * time.Second,
	}
}

// Wait polls until the order settles into a non-pending status and returns
// that representation. Fetch errors and non-200 answers are ignored and
// retried on the next tick.
func (p *StatusPoller) Wait(ctx context.Context, orderID string) (models.Order, error) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		order, err := p.fetch(ctx, orderID)
		if err == nil && order.Status != models.OrderStatusPending {
			return order, nil
		}

		select {
		case <-ctx.Done():
			return models.Order{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (p *StatusPoller) fetch(ctx context.Context, orderID string) (models.Order, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/orders/%s", p.BaseURL, orderID), nil)
	if err != nil {
		return models.Order{}, err
	}

	resp, err := p.HTTPClient.Do(req)
	if err != nil {
		return models.Order{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Order{}, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	var order models.Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return models.Order{}, err
	}
	return order, nil
}
