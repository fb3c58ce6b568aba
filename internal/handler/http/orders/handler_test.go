package orders_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	app "orders/internal/app/orders"
	http_orders "orders/internal/handler/http/orders"
)

type stubOrderService struct {
	createRes *app.OrderResponse
	createErr error
	getRes    *app.OrderResponse
	getErr    error
	listRes   []*app.OrderResponse
	listErr   error
}

func (s *stubOrderService) CreateOrder(_ context.Context, _ *app.CreateOrderRequest) (*app.OrderResponse, error) {
	return s.createRes, s.createErr
}

func (s *stubOrderService) GetOrder(_ context.Context, _ int64) (*app.OrderResponse, error) {
	return s.getRes, s.getErr
}

func (s *stubOrderService) GetAllOrders(_ context.Context) ([]*app.OrderResponse, error) {
	return s.listRes, s.listErr
}

func (s *stubOrderService) HandlePaymentCompleted(_ context.Context, _ *app.PaymentCompletedEvent) error {
	return nil
}

func newRouter(s app.OrderService) http.Handler {
	r := chi.NewRouter()
	http_orders.RegisterRoutes(r, s, zap.NewNop())
	return r
}

func sampleResponse() *app.OrderResponse {
	return &app.OrderResponse{
		ID:         1,
		UserID:     "u1",
		ProductID:  42,
		Quantity:   2,
		TotalPrice: decimal.RequireFromString("19.98"),
		Status:     "PENDING",
	}
}

func TestHealth(t *testing.T) {
	router := newRouter(&stubOrderService{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "orders", body["service"])
}

func TestCreateOrderHandler(t *testing.T) {
	t.Run("should return 201 with created order", func(t *testing.T) {
		router := newRouter(&stubOrderService{createRes: sampleResponse()})

		req := httptest.NewRequest(http.MethodPost, "/orders",
			strings.NewReader(`{"userId":"u1","productId":42,"quantity":2,"totalPrice":19.98}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(1), body["id"])
		assert.Equal(t, "u1", body["userId"])
		assert.Equal(t, "PENDING", body["status"])
		assert.Equal(t, "19.98", body["totalPrice"])
	})

	t.Run("should return 400 on unparsable body", func(t *testing.T) {
		router := newRouter(&stubOrderService{})

		req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{not json`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should return 400 on validation failure", func(t *testing.T) {
		router := newRouter(&stubOrderService{createErr: app.ErrInvalidOrder})

		req := httptest.NewRequest(http.MethodPost, "/orders",
			strings.NewReader(`{"userId":"u1","productId":42,"quantity":0,"totalPrice":19.98}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("should return 500 on service failure", func(t *testing.T) {
		router := newRouter(&stubOrderService{createErr: assert.AnError})

		req := httptest.NewRequest(http.MethodPost, "/orders",
			strings.NewReader(`{"userId":"u1","productId":42,"quantity":2,"totalPrice":19.98}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestGetOrderHandler(t *testing.T) {
	t.Run("should return order by id", func(t *testing.T) {
		router := newRouter(&stubOrderService{getRes: sampleResponse()})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/1", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, float64(1), body["id"])
	})

	t.Run("should return 404 for unknown order", func(t *testing.T) {
		router := newRouter(&stubOrderService{getErr: app.ErrOrderNotFound})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/999", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("should return 400 for non-numeric order id", func(t *testing.T) {
		router := newRouter(&stubOrderService{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/abc", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetAllOrdersHandler(t *testing.T) {
	t.Run("should return all orders", func(t *testing.T) {
		router := newRouter(&stubOrderService{listRes: []*app.OrderResponse{sampleResponse()}})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var body []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body, 1)
		assert.Equal(t, "u1", body[0]["userId"])
	})

	t.Run("should return empty array when there are no orders", func(t *testing.T) {
		router := newRouter(&stubOrderService{})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]\n", rec.Body.String())
	})
}
