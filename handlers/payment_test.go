package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/OTapias/alican-teca/payments"
	"github.com/OTapias/alican-teca/store"

	"github.com/DATA-DOG/go-sqlmock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/gin-gonic/gin"
)

// stubProvider lets tests script what the adapter returns without any
// provider wire format.
type stubProvider struct {
	name         string
	initiateResp payments.InitiateResponse
	initiateErr  error
	webhookRes   payments.WebhookResult
	webhookErr   error
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Initiate(ctx context.Context, req payments.InitiateRequest) (payments.InitiateResponse, error) {
	return s.initiateResp, s.initiateErr
}

func (s *stubProvider) ParseWebhook(ctx context.Context, header http.Header, body []byte) (payments.WebhookResult, error) {
	return s.webhookRes, s.webhookErr
}

func setupPaymentTest(t *testing.T, provider payments.Provider) (sqlmock.Sqlmock, *sql.DB, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	logger := zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel))
	orders := store.NewOrderStore(db, logger)
	reconciler := store.NewReconciler(orders, logger)
	handler := NewPaymentHandler(payments.NewRegistry(provider), reconciler, nil, logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/payments/paypal/create-order", handler.CreatePayPalOrder)
	router.POST("/payments/paypal/webhook", handler.WebhookFor("paypal"))
	router.POST("/payments/payu/webhook", handler.WebhookFor("payu"))

	return mock, db, router
}

func orderStatusRow(id, status string, provider interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "items", "amount", "currency_code", "status", "provider", "created_at"}).
		AddRow(id, []byte(`[{"id":"2","qty":1}]`), 120000, "COP", status, provider, time.Now())
}

func postWebhook(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPaymentHandler_Webhook_Applied(t *testing.T) {
	provider := &stubProvider{
		name: "paypal",
		webhookRes: payments.WebhookResult{
			OrderID:  "order_1",
			Status:   "paid",
			Provider: "paypal",
		},
	}
	mock, db, router := setupPaymentTest(t, provider)
	defer db.Close()

	mock.ExpectQuery("SELECT id, items, amount, currency_code, status, provider, created_at FROM orders WHERE id = \\$1").
		WithArgs("order_1").
		WillReturnRows(orderStatusRow("order_1", "pending", nil))

	mock.ExpectQuery("UPDATE orders SET id = id, status = \\$1, provider = \\$2 WHERE id = \\$3 RETURNING").
		WithArgs("paid", "paypal", "order_1").
		WillReturnRows(orderStatusRow("order_1", "paid", "paypal"))

	w := postWebhook(router, "/payments/paypal/webhook", `{"ignored":"by stub"}`)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w.Body.String() != "OK" {
		t.Errorf("Expected body OK, got %q", w.Body.String())
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPaymentHandler_Webhook_UnparsableStillAnswersOK(t *testing.T) {
	provider := &stubProvider{name: "paypal", webhookErr: payments.ErrUnparsable}
	mock, db, router := setupPaymentTest(t, provider)
	defer db.Close()

	w := postWebhook(router, "/payments/paypal/webhook", `not json at all`)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	// A rejected event must never reach the database.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPaymentHandler_Webhook_BadSignatureStillAnswersOK(t *testing.T) {
	provider := &stubProvider{name: "paypal", webhookErr: payments.ErrBadSignature}
	mock, db, router := setupPaymentTest(t, provider)
	defer db.Close()

	w := postWebhook(router, "/payments/paypal/webhook", `{"resource":{"custom_id":"order_1"}}`)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPaymentHandler_Webhook_UnknownOrderDropped(t *testing.T) {
	provider := &stubProvider{
		name:       "paypal",
		webhookRes: payments.WebhookResult{OrderID: "order_missing", Status: "paid", Provider: "paypal"},
	}
	mock, db, router := setupPaymentTest(t, provider)
	defer db.Close()

	mock.ExpectQuery("SELECT id, items, amount, currency_code, status, provider, created_at FROM orders WHERE id = \\$1").
		WithArgs("order_missing").
		WillReturnError(sql.ErrNoRows)

	w := postWebhook(router, "/payments/paypal/webhook", `{}`)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestPaymentHandler_Webhook_UnknownProvider(t *testing.T) {
	provider := &stubProvider{name: "paypal"}
	_, db, router := setupPaymentTest(t, provider)
	defer db.Close()

	w := postWebhook(router, "/payments/payu/webhook", `{}`)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestPaymentHandler_CreatePayPalOrder(t *testing.T) {
	provider := &stubProvider{
		name: "paypal",
		initiateResp: payments.InitiateResponse{
			RemoteOrderID: "5O190127TN364715T",
			ApprovalURL:   "https://www.sandbox.paypal.com/checkoutnow?token=5O1",
		},
	}
	_, db, router := setupPaymentTest(t, provider)
	defer db.Close()

	payload := `{"local_order_id":"order_1","amount":120000,"currency":"COP"}`
	w := postWebhook(router, "/payments/paypal/create-order", payload)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp struct {
		ID          string `json:"id"`
		ApprovalURL string `json:"approval_url"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.ID != "5O190127TN364715T" || resp.ApprovalURL == "" {
		t.Errorf("Unexpected response: %+v", resp)
	}
}

func TestPaymentHandler_CreatePayPalOrder_ProviderError(t *testing.T) {
	provider := &stubProvider{name: "paypal", initiateErr: payments.ErrProviderRejected}
	_, db, router := setupPaymentTest(t, provider)
	defer db.Close()

	payload := `{"local_order_id":"order_1","amount":120000,"currency":"COP"}`
	w := postWebhook(router, "/payments/paypal/create-order", payload)

	if w.Code != http.StatusBadGateway {
		t.Errorf("Expected status %d, got %d", http.StatusBadGateway, w.Code)
	}

	var resp struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Error != "provider_error" {
		t.Errorf("Expected error provider_error, got %q", resp.Error)
	}
}

func TestPaymentHandler_CreatePayPalOrder_BadPayload(t *testing.T) {
	provider := &stubProvider{name: "paypal"}
	_, db, router := setupPaymentTest(t, provider)
	defer db.Close()

	w := postWebhook(router, "/payments/paypal/create-order", `{"amount":-5}`)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}
