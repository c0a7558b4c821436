package payments

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/OTapias/alican-teca/models"

	"go.uber.org/zap"
)

type PayUConfig struct {
	APIKey     string // enables sign verification when set
	MerchantID string
}

// PayU handles the confirmation-page callback. PayU has no hosted-flow
// initiation here; checkout posts the buyer straight to PayU's form, so
// Initiate is unsupported.
type PayU struct {
	cfg    PayUConfig
	logger *zap.Logger
}

func NewPayU(cfg PayUConfig, logger *zap.Logger) *PayU {
	return &PayU{cfg: cfg, logger: logger}
}

func (p *PayU) Name() string { return "payu" }

func (p *PayU) Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error) {
	return InitiateResponse{}, ErrNotSupported
}

// statePol maps PayU's numeric transaction states onto the order enum.
var statePol = map[string]models.OrderStatus{
	"4": models.OrderStatusPaid,      // APPROVED
	"5": models.OrderStatusCancelled, // EXPIRED
	"6": models.OrderStatusFailed,    // DECLINED
	"7": models.OrderStatusPending,   // PENDING
}

// ParseWebhook accepts the confirmation callback either form-encoded (what
// PayU actually sends) or as an equivalent JSON object, verifies the MD5
// sign field when an API key is configured, and normalizes the result.
// reference_sale carries the local order id.
func (p *PayU) ParseWebhook(ctx context.Context, header http.Header, body []byte) (WebhookResult, error) {
	fields, err := decodeFields(header, body)
	if err != nil {
		return WebhookResult{}, ErrUnparsable
	}

	reference := fields["reference_sale"]
	if reference == "" {
		reference = fields["referenceCode"]
	}
	if reference == "" {
		return WebhookResult{}, ErrUnparsable
	}

	state := fields["state_pol"]
	status, ok := statePol[state]
	if !ok {
		return WebhookResult{}, ErrUnparsable
	}

	if p.cfg.APIKey != "" {
		if err := p.verifySign(fields, reference, state); err != nil {
			return WebhookResult{}, err
		}
	} else {
		p.logger.Warn("PAYU_API_KEY not set, accepting webhook unverified")
	}

	return WebhookResult{OrderID: reference, Status: status, Provider: p.Name()}, nil
}

// verifySign recomputes MD5(ApiKey~merchantId~reference~value~currency~state).
// PayU's documented quirk applies to the value: when the second decimal is
// zero the signature uses a single decimal digit ("150.00" signs as "150.0").
func (p *PayU) verifySign(fields map[string]string, reference, state string) error {
	sign := strings.ToLower(fields["sign"])
	if sign == "" {
		return ErrBadSignature
	}

	value := payuSignValue(fields["value"])
	base := fmt.Sprintf("%s~%s~%s~%s~%s~%s",
		p.cfg.APIKey, p.cfg.MerchantID, reference, value, fields["currency"], state)
	sum := md5.Sum([]byte(base))
	expected := hex.EncodeToString(sum[:])

	if subtle.ConstantTimeCompare([]byte(expected), []byte(sign)) != 1 {
		return ErrBadSignature
	}
	return nil
}

func payuSignValue(value string) string {
	if strings.HasSuffix(value, "0") && strings.Contains(value, ".") {
		if dot := strings.Index(value, "."); len(value)-dot == 3 {
			return value[:len(value)-1]
		}
	}
	return value
}

// decodeFields flattens the payload into string fields regardless of shape.
func decodeFields(header http.Header, body []byte) (map[string]string, error) {
	contentType := header.Get("Content-Type")
	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, err
		}
		fields := make(map[string]string, len(values))
		for key := range values {
			fields[key] = values.Get(key)
		}
		return fields, nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	fields := make(map[string]string, len(raw))
	for key, v := range raw {
		switch val := v.(type) {
		case string:
			fields[key] = val
		case float64:
			fields[key] = fmt.Sprintf("%v", val)
		}
	}
	return fields, nil
}
