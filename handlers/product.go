package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/OTapias/alican-teca/cache"
	"github.com/OTapias/alican-teca/models"
	"github.com/OTapias/alican-teca/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// catalogSourceHeader tells callers whether the catalog came from Postgres
// or the seed fallback.
const catalogSourceHeader = "X-Catalog-Source"

type ProductHandler struct {
	products    *store.ProductStore
	redisClient *redis.Client
	logger      *zap.Logger
}

func NewProductHandler(products *store.ProductStore, redisClient *redis.Client, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		products:    products,
		redisClient: redisClient,
		logger:      logger,
	}
}

func (h *ProductHandler) GetProducts(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-api").Start(c.Request.Context(), "GetProducts")
	defer span.End()

	products, source, err := h.products.GetAll(ctx)
	if err != nil {
		span.RecordError(err)
		h.logger.Error("Failed to fetch products", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	span.SetAttributes(
		attribute.Int("products.count", len(products)),
		attribute.String("catalog.source", string(source)),
	)
	c.Header(catalogSourceHeader, string(source))
	c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) GetProduct(c *gin.Context) {
	ctx, span := otel.Tracer("storefront-api").Start(c.Request.Context(), "GetProduct")
	defer span.End()

	id := c.Param("id")
	span.SetAttributes(attribute.String("product.id", id))

	// Try the cache first
	if h.redisClient != nil {
		if cachedData, err := cache.GetProduct(ctx, h.redisClient, id); err == nil {
			var product models.Product
			if err := json.Unmarshal(cachedData, &product); err == nil {
				span.SetAttributes(attribute.Bool("cache.hit", true))
				c.Header(catalogSourceHeader, string(store.SourcePrimary))
				c.JSON(http.StatusOK, product)
				return
			}
		}
		span.SetAttributes(attribute.Bool("cache.hit", false))
	}

	product, source, err := h.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Product not found"})
			return
		}
		span.RecordError(err)
		h.logger.Error("Failed to fetch product", zap.String("product_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Only primary reads are worth caching; the seed never changes.
	if h.redisClient != nil && source == store.SourcePrimary {
		cache.SetProduct(ctx, h.redisClient, id, product, 5*time.Minute)
	}

	span.SetAttributes(attribute.String("catalog.source", string(source)))
	c.Header(catalogSourceHeader, string(source))
	c.JSON(http.StatusOK, product)
}
