package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"orderflow/internal/order/controller"
)

func NewRouter(orderCtrl *controller.OrderController, metricsHandler http.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(traceContext)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metricsHandler)

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", orderCtrl.CreateOrder)
		r.Post("/shipments", orderCtrl.BatchShip)
		r.Post("/auto-confirm", orderCtrl.AutoConfirm)
		r.Get("/statistics", orderCtrl.Statistics)

		r.Route("/{orderId}", func(r chi.Router) {
			r.Get("/", orderCtrl.GetOrder)
			r.Delete("/", orderCtrl.DeleteOrder)
			r.Post("/close", orderCtrl.CloseOrder)
			r.Put("/confirm", orderCtrl.Confirm)
			r.Post("/payment-notifications", orderCtrl.PaymentNotification)
		})
	})

	return r
}

// traceContext continues a trace started by the caller.
func traceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)

			if r.URL.Path == "/metrics" || r.URL.Path == "/healthz" {
				return
			}
			logger.Info("request handled",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
