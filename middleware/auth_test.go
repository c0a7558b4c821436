package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/gin-gonic/gin"
)

func setupAuthTest(t *testing.T, apiKey string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(APIKeyMiddleware(apiKey, zaptest.NewLogger(t)))
	router.GET("/admin", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return router
}

func TestAPIKeyMiddleware_ValidKey(t *testing.T) {
	router := setupAuthTest(t, "secret-key")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("x-api-key", "secret-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestAPIKeyMiddleware_WrongKey(t *testing.T) {
	router := setupAuthTest(t, "secret-key")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("x-api-key", "not-the-key")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAPIKeyMiddleware_MissingKey(t *testing.T) {
	router := setupAuthTest(t, "secret-key")

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}

func TestAPIKeyMiddleware_UnconfiguredFailsClosed(t *testing.T) {
	router := setupAuthTest(t, "")

	// Even a request guessing the empty string must be rejected.
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("x-api-key", "")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, w.Code)
	}
}
