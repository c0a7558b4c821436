package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"testing"

	"github.com/OTapias/alican-teca/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newTestBitPay(t *testing.T, cfg BitPayConfig) *BitPay {
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	return NewBitPay(cfg, logger)
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestBitPay_ParseWebhook_ConfirmedWithValidSignature(t *testing.T) {
	secret := "bitpay-secret"
	p := newTestBitPay(t, BitPayConfig{WebhookSecret: secret})

	body := []byte(`{"event":{"name":"invoice_confirmed"},"data":{"orderId":"order_1","status":"confirmed"}}`)
	header := http.Header{}
	header.Set("X-Signature", signBody(secret, body))

	result, err := p.ParseWebhook(context.Background(), header, body)
	if err != nil {
		t.Fatalf("ParseWebhook returned error: %v", err)
	}
	if result.OrderID != "order_1" || result.Status != models.OrderStatusPaid || result.Provider != "bitpay" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestBitPay_ParseWebhook_BadSignature(t *testing.T) {
	p := newTestBitPay(t, BitPayConfig{WebhookSecret: "bitpay-secret"})

	body := []byte(`{"data":{"orderId":"order_1","status":"confirmed"}}`)
	header := http.Header{}
	header.Set("X-Signature", signBody("wrong-secret", body))

	_, err := p.ParseWebhook(context.Background(), header, body)
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("Expected ErrBadSignature, got %v", err)
	}
}

func TestBitPay_ParseWebhook_MissingSignature(t *testing.T) {
	p := newTestBitPay(t, BitPayConfig{WebhookSecret: "bitpay-secret"})

	body := []byte(`{"data":{"orderId":"order_1","status":"confirmed"}}`)
	_, err := p.ParseWebhook(context.Background(), http.Header{}, body)
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("Expected ErrBadSignature, got %v", err)
	}
}

func TestBitPay_ParseWebhook_LegacyPosData(t *testing.T) {
	p := newTestBitPay(t, BitPayConfig{})

	// Legacy invoice IPNs put the merchant reference in posData at the top
	// level; "paid" means seen on-chain, not settled.
	body := []byte(`{"posData":"order_7","status":"paid"}`)
	result, err := p.ParseWebhook(context.Background(), http.Header{}, body)
	if err != nil {
		t.Fatalf("ParseWebhook returned error: %v", err)
	}
	if result.OrderID != "order_7" || result.Status != models.OrderStatusAuthorized {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestBitPay_ParseWebhook_ExpiredMapsToCancelled(t *testing.T) {
	p := newTestBitPay(t, BitPayConfig{})

	body := []byte(`{"data":{"orderId":"order_3","status":"expired"}}`)
	result, err := p.ParseWebhook(context.Background(), http.Header{}, body)
	if err != nil {
		t.Fatalf("ParseWebhook returned error: %v", err)
	}
	if result.Status != models.OrderStatusCancelled {
		t.Errorf("Expected status cancelled, got %q", result.Status)
	}
}

func TestBitPay_ParseWebhook_MissingCorrelationKey(t *testing.T) {
	p := newTestBitPay(t, BitPayConfig{})

	body := []byte(`{"data":{"status":"confirmed"}}`)
	_, err := p.ParseWebhook(context.Background(), http.Header{}, body)
	if !errors.Is(err, ErrUnparsable) {
		t.Errorf("Expected ErrUnparsable, got %v", err)
	}
}

func TestBitPay_Initiate_NotSupported(t *testing.T) {
	p := newTestBitPay(t, BitPayConfig{})
	_, err := p.Initiate(context.Background(), InitiateRequest{OrderID: "order_1"})
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("Expected ErrNotSupported, got %v", err)
	}
}
