package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/OTapias/alican-teca/kafka"
	"github.com/OTapias/alican-teca/middleware"
	"github.com/OTapias/alican-teca/models"
	"github.com/OTapias/alican-teca/payments"
	"github.com/OTapias/alican-teca/store"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	providers  payments.Registry
	reconciler *store.Reconciler
	producer   sarama.SyncProducer
	logger     *zap.Logger
}

func NewPaymentHandler(providers payments.Registry, reconciler *store.Reconciler, producer sarama.SyncProducer, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		providers:  providers,
		reconciler: reconciler,
		producer:   producer,
		logger:     logger,
	}
}

type createPayPalOrderRequest struct {
	LocalOrderID string `json:"local_order_id" binding:"required"`
	Amount       int64  `json:"amount" binding:"required,gt=0"`
	Currency     string `json:"currency" binding:"required"`
	ReturnURL    string `json:"return_url"`
	CancelURL    string `json:"cancel_url"`
}

// CreatePayPalOrder opens the hosted PayPal flow for a local order and
// returns the approval URL the buyer gets redirected to.
func (h *PaymentHandler) CreatePayPalOrder(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-api").Start(c.Request.Context(), "CreatePayPalOrder")
	defer span.End()

	var req createPayPalOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	span.SetAttributes(
		attribute.String("order.id", req.LocalOrderID),
		attribute.Int64("order.amount", req.Amount),
	)

	provider, ok := h.providers.Get("paypal")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Provider not configured"})
		return
	}

	resp, err := provider.Initiate(ctx, payments.InitiateRequest{
		OrderID:   req.LocalOrderID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		ReturnURL: req.ReturnURL,
		CancelURL: req.CancelURL,
	})
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Payment initiation failed",
			zap.String("order_id", req.LocalOrderID), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "provider_error", "message": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": resp.RemoteOrderID, "approval_url": resp.ApprovalURL})
}

// WebhookFor returns the callback handler for one provider. Whatever
// happens inside, the transport answer is 200 "OK": a non-success response
// only earns a redelivery storm from the provider.
func (h *PaymentHandler) WebhookFor(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := otel.Tracer("storefront-api").Start(c.Request.Context(), "PaymentWebhook")
		defer span.End()
		span.SetAttributes(attribute.String("payment.provider", name))

		provider, ok := h.providers.Get(name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown provider"})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			h.logger.Error("Failed to read webhook body", zap.String("provider", name), zap.Error(err))
			middleware.RecordWebhookProcessed(name, "rejected")
			c.String(http.StatusOK, "OK")
			return
		}

		result, err := provider.ParseWebhook(ctx, c.Request.Header, body)
		if err != nil {
			span.RecordError(err)
			h.logger.Warn("Dropping webhook",
				zap.String("provider", name),
				zap.Error(err),
			)
			middleware.RecordWebhookProcessed(name, "rejected")
			c.String(http.StatusOK, "OK")
			return
		}

		span.SetAttributes(
			attribute.String("order.id", result.OrderID),
			attribute.String("order.status", string(result.Status)),
		)

		order, err := h.reconciler.Apply(ctx, result.OrderID, result.Status, result.Provider)
		if err != nil {
			if !errors.Is(err, store.ErrOrderNotFound) && !errors.Is(err, store.ErrTransitionNotAllowed) {
				span.RecordError(err)
			}
			h.logger.Warn("Webhook not applied",
				zap.String("provider", name),
				zap.String("order_id", result.OrderID),
				zap.String("status", string(result.Status)),
				zap.Error(err),
			)
			middleware.RecordWebhookProcessed(name, "dropped")
			c.String(http.StatusOK, "OK")
			return
		}

		event := models.OrderEvent{
			OrderID:      order.ID,
			Status:       order.Status,
			Provider:     order.Provider,
			Amount:       order.Amount,
			CurrencyCode: order.CurrencyCode,
			EventType:    "order_status_changed",
		}
		if err := kafka.PublishOrderEvent(ctx, h.producer, event, h.logger); err != nil {
			h.logger.Error("Failed to publish order_status_changed event", zap.Error(err))
		}

		middleware.RecordWebhookProcessed(name, "applied")
		c.String(http.StatusOK, "OK")
	}
}
