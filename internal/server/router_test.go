package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"orderflow/internal/config"
	"orderflow/internal/domain"
	"orderflow/internal/dto"
	"orderflow/internal/order/controller"
)

type stubOrderService struct {
	controller.OrderService
	gotTraceID trace.TraceID
}

func (s *stubOrderService) GetOrder(ctx context.Context, orderID string) (*dto.OrderDetails, error) {
	s.gotTraceID = trace.SpanContextFromContext(ctx).TraceID()
	return &dto.OrderDetails{Order: &domain.Order{ID: orderID}}, nil
}

func newTestRouter(svc controller.OrderService) http.Handler {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})
	return NewRouter(controller.NewOrderController(svc, zap.NewNop()), metrics, zap.NewNop())
}

func TestRouter_Healthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubOrderService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRouter_Metrics(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubOrderService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}

func TestRouter_ContinuesCallerTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	svc := &stubOrderService{}

	req := httptest.NewRequest(http.MethodGet, "/orders/o-1", nil)
	req.Header.Set("traceparent", "00-0102030405060708090a0b0c0d0e0f10-0102030405060708-01")
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", svc.gotTraceID.String())
}

func TestRouter_UnknownRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubOrderService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/carts", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNew_UsesConfiguredAddress(t *testing.T) {
	srv := New(config.ServerConfig{Port: 9090, ReadTimeout: time.Second, WriteTimeout: time.Second}, http.NotFoundHandler(), zap.NewNop())

	assert.Equal(t, ":9090", srv.httpServer.Addr)
	assert.Equal(t, time.Second, srv.httpServer.ReadTimeout)
}
