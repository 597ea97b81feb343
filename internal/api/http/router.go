package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	platformhealth "github.com/shestoi/paypal-adaptive/platform/health/http"
	platformobservability "github.com/shestoi/paypal-adaptive/platform/observability"
)

// NewRouter создаёт HTTP роутер PayPal сервиса.
// readiness проверяет PostgreSQL; false даёт 503 на /health.
func NewRouter(handler *Handler, readiness func() bool, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	// Trace context, span на запрос и logger с trace_id в контексте
	router.Use(platformobservability.HTTPMiddleware("paypal", logger))

	router.Route("/adaptive", func(r chi.Router) {
		r.Post("/payments", handler.PostPayments)
		r.Get("/payments/{payKey}", withParam("payKey", handler.GetPayment))
		r.Post("/payments/{payKey}/confirm", withParam("payKey", handler.PostPaymentConfirm))
		r.Post("/payments/{payKey}/execute", withParam("payKey", handler.PostPaymentExecute))
		r.Post("/authorizations/{id}/capture", withParam("id", handler.PostCapture))
		r.Post("/authorizations/{id}/void", withParam("id", handler.PostVoid))
		r.Post("/transactions/{id}/refund", withParam("id", handler.PostRefund))
	})

	router.Route("/transactions", func(r chi.Router) {
		r.Get("/", handler.ListTransactions)
		r.Get("/{id}", withParam("id", handler.GetTransaction))
	})

	router.Get("/health", platformhealth.Handler(readiness))

	return router
}

// withParam передаёт параметр пути в handler
func withParam(name string, h func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(w, r, chi.URLParam(r, name))
	}
}
