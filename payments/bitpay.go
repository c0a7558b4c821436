package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/OTapias/alican-teca/models"

	"go.uber.org/zap"
)

type BitPayConfig struct {
	WebhookSecret string // enables x-signature verification when set
}

// BitPay normalizes invoice IPN callbacks. Initiation is unsupported:
// invoices are created from the BitPay dashboard side of this shop.
type BitPay struct {
	cfg    BitPayConfig
	logger *zap.Logger
}

func NewBitPay(cfg BitPayConfig, logger *zap.Logger) *BitPay {
	return &BitPay{cfg: cfg, logger: logger}
}

func (b *BitPay) Name() string { return "bitpay" }

func (b *BitPay) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	return InitiateResponse{}, ErrNotSupported
}

// invoiceStatus maps BitPay invoice states onto the order enum. "paid"
// only means the chain saw the transaction; settlement is "confirmed".
var invoiceStatus = map[string]models.OrderStatus{
	"paid":      models.OrderStatusAuthorized,
	"confirmed": models.OrderStatusPaid,
	"complete":  models.OrderStatusPaid,
	"expired":   models.OrderStatusCancelled,
	"invalid":   models.OrderStatusFailed,
	"declined":  models.OrderStatusFailed,
	"refunded":  models.OrderStatusRefunded,
}

// ParseWebhook checks the HMAC-SHA256 x-signature over the raw body when a
// secret is configured, then pulls the local order id out of whichever
// field this invoice shape carries it in (data.orderId, posData, orderId).
func (b *BitPay) ParseWebhook(ctx context.Context, header http.Header, body []byte) (WebhookResult, error) {
	if b.cfg.WebhookSecret != "" {
		if err := b.verifySignature(header, body); err != nil {
			return WebhookResult{}, err
		}
	} else {
		b.logger.Warn("BITPAY_WEBHOOK_SECRET not set, accepting webhook unverified")
	}

	var event struct {
		OrderID string `json:"orderId"`
		PosData string `json:"posData"`
		Status  string `json:"status"`
		Data    struct {
			OrderID string `json:"orderId"`
			PosData string `json:"posData"`
			Status  string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &event); err != nil {
		return WebhookResult{}, ErrUnparsable
	}

	orderID := event.Data.OrderID
	if orderID == "" {
		orderID = event.Data.PosData
	}
	if orderID == "" {
		orderID = event.OrderID
	}
	if orderID == "" {
		orderID = event.PosData
	}
	if orderID == "" {
		return WebhookResult{}, ErrUnparsable
	}

	rawStatus := event.Data.Status
	if rawStatus == "" {
		rawStatus = event.Status
	}
	status, ok := invoiceStatus[strings.ToLower(rawStatus)]
	if !ok {
		return WebhookResult{}, ErrUnparsable
	}

	return WebhookResult{OrderID: orderID, Status: status, Provider: b.Name()}, nil
}

func (b *BitPay) verifySignature(header http.Header, body []byte) error {
	signature := header.Get("X-Signature")
	if signature == "" {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, []byte(b.cfg.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrBadSignature
	}
	return nil
}
