package checkout

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi"
	"github.com/go-chi/cors"

	"github.com/sellora/marketplace/libs/handlers"
	"github.com/sellora/marketplace/libs/middleware"
	"github.com/sellora/marketplace/services/checkout/handler"
)

func corsMiddleware(allowedMethods []string) func(next http.Handler) http.Handler {
	debug, err := strconv.ParseBool(os.Getenv("DEBUG"))
	if err != nil {
		debug = false
	}
	return cors.Handler(cors.Options{
		Debug:            debug,
		AllowedOrigins:   strings.Split(os.Getenv("ALLOWED_ORIGINS"), ","),
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Idempotent-Replayed"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

// Router for checkout and transaction endpoints. Checkout requests are made replayable
// when idem is not nil.
func Router(service *Service, idem middleware.IdempotencyStore) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.CustomerIdentity)

	co := handler.NewCheckout(service)
	tx := handler.NewTransaction(service)

	var create http.Handler = handlers.AppHandler(co.Create)
	if idem != nil {
		create = middleware.Idempotency(idem)(create)
	}

	r.Method("OPTIONS", "/checkout", middleware.InstrumentHandler("CheckoutOptions", corsMiddleware([]string{"POST"})(nil)))
	r.Method("POST", "/checkout", middleware.InstrumentHandler("Checkout", corsMiddleware([]string{"POST"})(create)))

	r.Route("/transactions/{code}", func(tr chi.Router) {
		tr.Use(corsMiddleware([]string{"GET", "POST"}))
		tr.Method("GET", "/payment-status", middleware.InstrumentHandler("PaymentStatus", handlers.AppHandler(tx.PaymentStatus)))
		tr.Method("POST", "/cancel", middleware.InstrumentHandler("CancelTransaction", handlers.AppHandler(tx.Cancel)))
		tr.Method("POST", "/payments", middleware.InstrumentHandler("RetryPayment", handlers.AppHandler(tx.RetryPayment)))

		tr.With(middleware.OperatorOnly).
			Method("POST", "/confirm", middleware.InstrumentHandler("ConfirmPayment", handlers.AppHandler(tx.Confirm)))
	})

	return r
}

// WebhookRouter receives gateway notifications
func WebhookRouter(service *Service) chi.Router {
	r := chi.NewRouter()

	wh := handler.NewWebhook(service, service.GatewayServerKey())
	r.Method("POST", "/payments", middleware.InstrumentHandler("PaymentWebhook", handlers.AppHandler(wh.Payment)))

	return r
}

// ShippingRouter serves cached destination reference data
func ShippingRouter(service *Service) chi.Router {
	r := chi.NewRouter()
	r.Use(corsMiddleware([]string{"GET"}))

	sh := handler.NewShipping(service.Shipping())
	r.Method("GET", "/provinces", middleware.InstrumentHandler("ShippingProvinces", handlers.AppHandler(sh.Provinces)))
	r.Method("GET", "/cities", middleware.InstrumentHandler("ShippingCities", handlers.AppHandler(sh.Cities)))

	return r
}
