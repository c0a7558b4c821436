package payments

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/OTapias/alican-teca/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func newTestPayU(t *testing.T, cfg PayUConfig) *PayU {
	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	return NewPayU(cfg, logger)
}

func formHeader() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	return h
}

func TestPayU_Initiate_NotSupported(t *testing.T) {
	p := newTestPayU(t, PayUConfig{})
	_, err := p.Initiate(context.Background(), InitiateRequest{OrderID: "order_1"})
	if !errors.Is(err, ErrNotSupported) {
		t.Errorf("Expected ErrNotSupported, got %v", err)
	}
}

func TestPayU_ParseWebhook_ApprovedForm(t *testing.T) {
	p := newTestPayU(t, PayUConfig{})

	form := url.Values{
		"reference_sale": {"order_1"},
		"state_pol":      {"4"},
		"value":          {"120000.00"},
		"currency":       {"COP"},
	}
	result, err := p.ParseWebhook(context.Background(), formHeader(), []byte(form.Encode()))
	if err != nil {
		t.Fatalf("ParseWebhook returned error: %v", err)
	}
	if result.OrderID != "order_1" || result.Status != models.OrderStatusPaid || result.Provider != "payu" {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestPayU_ParseWebhook_JSONShape(t *testing.T) {
	p := newTestPayU(t, PayUConfig{})

	body := []byte(`{"reference_sale":"order_9","state_pol":"6","currency":"COP"}`)
	result, err := p.ParseWebhook(context.Background(), http.Header{}, body)
	if err != nil {
		t.Fatalf("ParseWebhook returned error: %v", err)
	}
	if result.OrderID != "order_9" || result.Status != models.OrderStatusFailed {
		t.Errorf("Unexpected result: %+v", result)
	}
}

func TestPayU_ParseWebhook_ValidSign(t *testing.T) {
	cfg := PayUConfig{APIKey: "4Vj8eK4rloUd272L48hsrarnUA", MerchantID: "508029"}
	p := newTestPayU(t, cfg)

	// The signature uses "150.0", PayU's one-decimal form of "150.00".
	base := fmt.Sprintf("%s~%s~order_5~150.0~COP~4", cfg.APIKey, cfg.MerchantID)
	sum := md5.Sum([]byte(base))
	sign := hex.EncodeToString(sum[:])

	form := url.Values{
		"reference_sale": {"order_5"},
		"state_pol":      {"4"},
		"value":          {"150.00"},
		"currency":       {"COP"},
		"sign":           {sign},
	}
	result, err := p.ParseWebhook(context.Background(), formHeader(), []byte(form.Encode()))
	if err != nil {
		t.Fatalf("ParseWebhook returned error: %v", err)
	}
	if result.Status != models.OrderStatusPaid {
		t.Errorf("Expected status paid, got %q", result.Status)
	}
}

func TestPayU_ParseWebhook_BadSign(t *testing.T) {
	p := newTestPayU(t, PayUConfig{APIKey: "key", MerchantID: "508029"})

	form := url.Values{
		"reference_sale": {"order_5"},
		"state_pol":      {"4"},
		"value":          {"150.00"},
		"currency":       {"COP"},
		"sign":           {"deadbeefdeadbeefdeadbeefdeadbeef"},
	}
	_, err := p.ParseWebhook(context.Background(), formHeader(), []byte(form.Encode()))
	if !errors.Is(err, ErrBadSignature) {
		t.Errorf("Expected ErrBadSignature, got %v", err)
	}
}

func TestPayU_ParseWebhook_MissingReference(t *testing.T) {
	p := newTestPayU(t, PayUConfig{})

	form := url.Values{"state_pol": {"4"}, "value": {"150.00"}}
	_, err := p.ParseWebhook(context.Background(), formHeader(), []byte(form.Encode()))
	if !errors.Is(err, ErrUnparsable) {
		t.Errorf("Expected ErrUnparsable, got %v", err)
	}
}

func TestPayU_ParseWebhook_UnknownState(t *testing.T) {
	p := newTestPayU(t, PayUConfig{})

	form := url.Values{"reference_sale": {"order_1"}, "state_pol": {"104"}}
	_, err := p.ParseWebhook(context.Background(), formHeader(), []byte(form.Encode()))
	if !errors.Is(err, ErrUnparsable) {
		t.Errorf("Expected ErrUnparsable, got %v", err)
	}
}

func TestPayUSignValue(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"150.00", "150.0"},
		{"150.26", "150.26"},
		{"150.20", "150.2"},
		{"150", "150"},
		{"150.0", "150.0"},
	}
	for _, c := range cases {
		if got := payuSignValue(c.in); got != c.want {
			t.Errorf("payuSignValue(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
