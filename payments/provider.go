package payments

import (
	"context"
	"errors"
	"net/http"

	"github.com/OTapias/alican-teca/models"
)

var (
	// ErrUnparsable means no recognizable correlation key or status could
	// be extracted; the event must be dropped without touching state.
	ErrUnparsable = errors.New("webhook payload not recognized")
	// ErrBadSignature means the payload failed the provider's
	// authenticity check and must be dropped.
	ErrBadSignature = errors.New("webhook signature verification failed")
	// ErrNotSupported is returned by providers that only deliver webhooks
	// and cannot initiate a hosted payment flow.
	ErrNotSupported = errors.New("payment initiation not supported by this provider")
	// ErrProviderRejected wraps an upstream rejection during payment
	// initiation, with the provider's response attached.
	ErrProviderRejected = errors.New("payment provider rejected the request")
)

// InitiateRequest describes a hosted-flow payment to open with a provider.
// Amount is in major currency units; adapters format it as a decimal string
// with two fractional digits and never convert to minor units.
type InitiateRequest struct {
	OrderID   string
	Amount    int64
	Currency  string
	ReturnURL string
	CancelURL string
}

type InitiateResponse struct {
	RemoteOrderID string
	ApprovalURL   string
}

// WebhookResult is the single normalized shape every adapter produces, so
// reconciliation never depends on provider wire formats.
type WebhookResult struct {
	OrderID  string
	Status   models.OrderStatus
	Provider string
}

// Provider isolates one payment provider's wire format and authentication
// scheme behind the normalized result type.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error)
	ParseWebhook(ctx context.Context, header http.Header, body []byte) (WebhookResult, error)
}

// Registry maps provider names to adapters for webhook dispatch.
type Registry map[string]Provider

func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		r[p.Name()] = p
	}
	return r
}

func (r Registry) Get(name string) (Provider, bool) {
	p, ok := r[name]
	return p, ok
}
