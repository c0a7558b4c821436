package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/OTapias/alican-teca/kafka"
	"github.com/OTapias/alican-teca/models"
	"github.com/OTapias/alican-teca/store"

	"github.com/IBM/sarama"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders   *store.OrderStore
	producer sarama.SyncProducer
	logger   *zap.Logger
}

func NewOrderHandler(orders *store.OrderStore, producer sarama.SyncProducer, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		producer: producer,
		logger:   logger,
	}
}

// CreateOrder opens a pending order. Storage failures are absorbed by the
// store, so the caller always gets 201 with the generated id; the redirect
// to the payment provider must not stall on a database hiccup.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-api").Start(c.Request.Context(), "CreateOrder")
	defer span.End()

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, persisted := h.orders.Create(ctx, req)

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Int64("order.amount", order.Amount),
		attribute.String("order.currency", order.CurrencyCode),
		attribute.Bool("order.persisted", persisted),
	)

	event := models.OrderEvent{
		OrderID:      order.ID,
		Status:       order.Status,
		Amount:       order.Amount,
		CurrencyCode: order.CurrencyCode,
		EventType:    "order_created",
	}
	if err := kafka.PublishOrderEvent(ctx, h.producer, event, h.logger); err != nil {
		// Don't fail the request, but log the error
		h.logger.Error("Failed to publish order_created event", zap.Error(err))
	}

	h.logger.Info("Order created", zap.String("order_id", order.ID), zap.Bool("persisted", persisted))
	c.JSON(http.StatusCreated, gin.H{"id": order.ID, "status": order.Status})
}

func (h *OrderHandler) GetOrder(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-api").Start(c.Request.Context(), "GetOrder")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("order.id", id))

	order, err := h.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to get order", zap.String("order_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-api").Start(c.Request.Context(), "ListOrders")
	defer span.End()

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	span.SetAttributes(attribute.Int("orders.limit", limit))

	orders, err := h.orders.List(ctx, limit)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to list orders", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	c.JSON(http.StatusOK, orders)
}

// UpdateOrder is the administrative repair path: it only enforces the
// status vocabulary, not the webhook lifecycle graph.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-api").Start(c.Request.Context(), "UpdateOrder")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("order.id", id))

	var req models.UpdateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.Update(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrInvalidStatus):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status value"})
		case errors.Is(err, store.ErrOrderNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		default:
			span.RecordError(err)
			h.logger.Error("Failed to update order", zap.String("order_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
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

	c.JSON(http.StatusOK, order)
}
