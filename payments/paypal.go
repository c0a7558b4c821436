package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/OTapias/alican-teca/models"

	"go.uber.org/zap"
)

type PayPalConfig struct {
	BaseURL      string // e.g. https://api-m.sandbox.paypal.com
	ClientID     string
	ClientSecret string
	WebhookID    string // enables webhook signature verification when set
}

// PayPal creates hosted checkout orders over the v2 Orders API and
// normalizes webhook events. The local order id rides along as the
// purchase unit's custom_id and comes back in webhook resources, which is
// the correlation key on the return path.
type PayPal struct {
	cfg    PayPalConfig
	client *http.Client
	logger *zap.Logger
}

func NewPayPal(cfg PayPalConfig, logger *zap.Logger) *PayPal {
	return &PayPal{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
		logger: logger,
	}
}

func (p *PayPal) Name() string { return "paypal" }

// token performs the client-credentials exchange.
func (p *PayPal) token(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(p.cfg.ClientID, p.cfg.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token exchange %s: %s", ErrProviderRejected, resp.Status, strings.TrimSpace(string(body)))
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("paypal token response invalid: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("paypal token response missing access_token")
	}
	return tok.AccessToken, nil
}

type paypalAmount struct {
	CurrencyCode string `json:"currency_code"`
	Value        string `json:"value"`
}

type paypalPurchaseUnit struct {
	CustomID string       `json:"custom_id"`
	Amount   paypalAmount `json:"amount"`
}

type paypalOrderRequest struct {
	Intent             string               `json:"intent"`
	PurchaseUnits      []paypalPurchaseUnit `json:"purchase_units"`
	ApplicationContext struct {
		ReturnURL string `json:"return_url,omitempty"`
		CancelURL string `json:"cancel_url,omitempty"`
	} `json:"application_context"`
}

// Initiate creates a remote CAPTURE order and returns the approval link
// the buyer must be redirected to. The amount goes out as a decimal string
// with two fractional digits; it is already in major units and no cents
// conversion happens here.
func (p *PayPal) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	accessToken, err := p.token(ctx)
	if err != nil {
		return InitiateResponse{}, err
	}

	orderReq := paypalOrderRequest{
		Intent: "CAPTURE",
		PurchaseUnits: []paypalPurchaseUnit{{
			CustomID: req.OrderID,
			Amount: paypalAmount{
				CurrencyCode: req.Currency,
				Value:        fmt.Sprintf("%d.00", req.Amount),
			},
		}},
	}
	orderReq.ApplicationContext.ReturnURL = req.ReturnURL
	orderReq.ApplicationContext.CancelURL = req.CancelURL

	payload, err := json.Marshal(orderReq)
	if err != nil {
		return InitiateResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/v2/checkout/orders", bytes.NewReader(payload))
	if err != nil {
		return InitiateResponse{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return InitiateResponse{}, fmt.Errorf("paypal order request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return InitiateResponse{}, fmt.Errorf("%w: create order %s: %s", ErrProviderRejected, resp.Status, strings.TrimSpace(string(body)))
	}

	var created struct {
		ID    string `json:"id"`
		Links []struct {
			Href string `json:"href"`
			Rel  string `json:"rel"`
		} `json:"links"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		return InitiateResponse{}, fmt.Errorf("paypal order response invalid: %w", err)
	}

	out := InitiateResponse{RemoteOrderID: created.ID}
	for _, link := range created.Links {
		if link.Rel == "approve" {
			out.ApprovalURL = link.Href
			break
		}
	}
	if out.ApprovalURL == "" {
		return InitiateResponse{}, fmt.Errorf("paypal order response missing approval link")
	}

	p.logger.Info("PayPal order created",
		zap.String("order_id", req.OrderID),
		zap.String("paypal_order_id", created.ID),
	)
	return out, nil
}

// ParseWebhook verifies the event against the configured webhook id and
// maps the PayPal event vocabulary onto the order status enum.
func (p *PayPal) ParseWebhook(ctx context.Context, header http.Header, body []byte) (WebhookResult, error) {
	if p.cfg.WebhookID != "" {
		if err := p.verifySignature(ctx, header, body); err != nil {
			return WebhookResult{}, err
		}
	} else {
		p.logger.Warn("PAYPAL_WEBHOOK_ID not set, accepting webhook unverified")
	}

	var event struct {
		EventType string `json:"event_type"`
		Resource  struct {
			CustomID      string `json:"custom_id"`
			InvoiceID     string `json:"invoice_id"`
			PurchaseUnits []struct {
				CustomID string `json:"custom_id"`
			} `json:"purchase_units"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookResult{}, ErrUnparsable
	}

	var status models.OrderStatus
	switch event.EventType {
	case "CHECKOUT.ORDER.APPROVED":
		status = models.OrderStatusAuthorized
	case "PAYMENT.CAPTURE.COMPLETED", "CHECKOUT.ORDER.COMPLETED":
		status = models.OrderStatusPaid
	case "PAYMENT.CAPTURE.DENIED":
		status = models.OrderStatusFailed
	case "PAYMENT.CAPTURE.REFUNDED", "PAYMENT.CAPTURE.REVERSED":
		status = models.OrderStatusRefunded
	default:
		return WebhookResult{}, ErrUnparsable
	}

	// The correlation key moves around between event shapes.
	orderID := event.Resource.CustomID
	if orderID == "" && len(event.Resource.PurchaseUnits) > 0 {
		orderID = event.Resource.PurchaseUnits[0].CustomID
	}
	if orderID == "" {
		orderID = event.Resource.InvoiceID
	}
	if orderID == "" {
		return WebhookResult{}, ErrUnparsable
	}

	return WebhookResult{OrderID: orderID, Status: status, Provider: p.Name()}, nil
}

func (p *PayPal) verifySignature(ctx context.Context, header http.Header, body []byte) error {
	accessToken, err := p.token(ctx)
	if err != nil {
		return err
	}

	verifyReq := map[string]interface{}{
		"auth_algo":         header.Get("Paypal-Auth-Algo"),
		"cert_url":          header.Get("Paypal-Cert-Url"),
		"transmission_id":   header.Get("Paypal-Transmission-Id"),
		"transmission_sig":  header.Get("Paypal-Transmission-Sig"),
		"transmission_time": header.Get("Paypal-Transmission-Time"),
		"webhook_id":        p.cfg.WebhookID,
		"webhook_event":     json.RawMessage(body),
	}
	payload, err := json.Marshal(verifyReq)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.cfg.BaseURL+"/v1/notifications/verify-webhook-signature", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("paypal webhook verification request failed: %w", err)
	}
	defer resp.Body.Close()

	var verification struct {
		VerificationStatus string `json:"verification_status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&verification); err != nil {
		return fmt.Errorf("paypal webhook verification response invalid: %w", err)
	}
	if verification.VerificationStatus != "SUCCESS" {
		return ErrBadSignature
	}
	return nil
}
