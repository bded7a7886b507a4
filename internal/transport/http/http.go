package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"

	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/models/orderevent"
	"github.com/weftwear/oms/internal/service/models/payment"
	"github.com/weftwear/oms/internal/service/rates"
	"github.com/weftwear/oms/internal/service/services/checkoutsvc"
	"github.com/weftwear/oms/internal/service/services/eventsvc"
	"github.com/weftwear/oms/internal/service/services/statussvc"
	"github.com/weftwear/oms/internal/service/services/stocksvc"
	adjuststock "github.com/weftwear/oms/internal/transport/http/adjust_stock"
	"github.com/weftwear/oms/internal/transport/http/checkout"
	listorders "github.com/weftwear/oms/internal/transport/http/list_orders"
	orderevents "github.com/weftwear/oms/internal/transport/http/order_events"
	"github.com/weftwear/oms/internal/transport/http/payments"
	quoterates "github.com/weftwear/oms/internal/transport/http/quote_rates"
	transitionstatus "github.com/weftwear/oms/internal/transport/http/transition_status"
	tracemw "github.com/weftwear/oms/pkg/http/middleware/trace"
	"github.com/weftwear/oms/pkg/logger"
)

type checkoutService interface {
	Checkout(ctx context.Context, input checkoutsvc.CheckoutInput) (checkoutsvc.CheckoutResult, error)
}

type statusService interface {
	TransitionOrderStatus(ctx context.Context, orderID int64, target order.Status, opts statussvc.TransitionOptions) (statussvc.TransitionResult, error)
	BulkTransitionOrders(ctx context.Context, orderIDs []int64, target order.Status, opts statussvc.BulkOptions) (statussvc.BulkResult, error)
	GetOrderValidTransitions(ctx context.Context, orderID int64) ([]order.Status, error)
	GetOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
	RecordPayment(ctx context.Context, input statussvc.RecordPaymentInput) (statussvc.RecordPaymentResult, error)
	GetOrderPayments(ctx context.Context, orderID int64) ([]payment.Payment, error)
}

type stockService interface {
	AdjustStock(ctx context.Context, variantID int64, delta int, reason string, actorID *int64) (stocksvc.AdjustResult, error)
}

type eventService interface {
	CreateEvent(ctx context.Context, input eventsvc.CreateEventInput) (eventsvc.CreateEventResult, error)
	GetOrderEvents(ctx context.Context, orderID int64) ([]orderevent.OrderEvent, error)
	GetCriticalEvents(ctx context.Context, limit int) ([]orderevent.OrderEvent, error)
	GetEventAnalytics(ctx context.Context, orderID *int64, since *time.Time) ([]orderevent.KindCount, error)
}

type HTTPTransport struct {
	server     *http.Server
	router     *chi.Mux
	checkout   checkoutService
	status     statusService
	stock      stockService
	events     eventService
	calculator *rates.Calculator
}

func NewHTTPTransport(
	checkoutSvc checkoutService,
	statusSvc statusService,
	stockSvc stockService,
	eventSvc eventService,
	calculator *rates.Calculator,
) *HTTPTransport {
	router := newRouter()
	server := newServer(router)
	return &HTTPTransport{
		server:     server,
		router:     router,
		checkout:   checkoutSvc,
		status:     statusSvc,
		stock:      stockSvc,
		events:     eventSvc,
		calculator: calculator,
	}
}

func (h *HTTPTransport) Run() error {
	return h.server.ListenAndServe()
}

func (h *HTTPTransport) Shutdown(ctx context.Context) error {
	return h.server.Shutdown(ctx)
}

// RegisterRoutes registers the routes for the HTTPTransport.
func (h *HTTPTransport) RegisterRoutes() {
	h.router.Route("/api", func(r chi.Router) {
		r.Post("/checkout", h.doCheckout)
		r.Post("/rates/quote", h.quoteRates)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.listOrders)
			r.Post("/status/bulk", h.bulkTransition)
			r.Route("/{orderID}", func(r chi.Router) {
				r.Post("/status", h.transition)
				r.Get("/transitions", h.listTransitions)
				r.Get("/events", h.listEvents)
				r.Post("/events", h.createEvent)
				r.Get("/payments", h.listPayments)
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.Get("/critical", h.listCriticalEvents)
			r.Get("/analytics", h.eventAnalytics)
		})

		r.Post("/payments/webhook", h.paymentWebhook)

		r.Post("/stock/{variantID}/adjust", h.adjustStock)
	})
}

func (h *HTTPTransport) doCheckout(w http.ResponseWriter, r *http.Request) {
	checkout.Checkout(w, r, h.checkout)
}

func (h *HTTPTransport) quoteRates(w http.ResponseWriter, r *http.Request) {
	quoterates.Quote(w, r, h.calculator)
}

func (h *HTTPTransport) transition(w http.ResponseWriter, r *http.Request) {
	transitionstatus.Transition(w, r, h.status)
}

func (h *HTTPTransport) listOrders(w http.ResponseWriter, r *http.Request) {
	listorders.ListOrders(w, r, h.status)
}

func (h *HTTPTransport) bulkTransition(w http.ResponseWriter, r *http.Request) {
	transitionstatus.BulkTransition(w, r, h.status)
}

func (h *HTTPTransport) listTransitions(w http.ResponseWriter, r *http.Request) {
	transitionstatus.ListTransitions(w, r, h.status)
}

func (h *HTTPTransport) listEvents(w http.ResponseWriter, r *http.Request) {
	orderevents.ListEvents(w, r, h.events)
}

func (h *HTTPTransport) createEvent(w http.ResponseWriter, r *http.Request) {
	orderevents.CreateEvent(w, r, h.events)
}

func (h *HTTPTransport) listCriticalEvents(w http.ResponseWriter, r *http.Request) {
	orderevents.ListCritical(w, r, h.events)
}

func (h *HTTPTransport) eventAnalytics(w http.ResponseWriter, r *http.Request) {
	orderevents.Analytics(w, r, h.events)
}

func (h *HTTPTransport) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	payments.Webhook(w, r, h.status)
}

func (h *HTTPTransport) listPayments(w http.ResponseWriter, r *http.Request) {
	payments.ListByOrder(w, r, h.status)
}

func (h *HTTPTransport) adjustStock(w http.ResponseWriter, r *http.Request) {
	adjuststock.Adjust(w, r, h.stock)
}

func newRouter() *chi.Mux {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(logger.NewLoggerMiddleware(slog.Default()))
	router.Use(tracemw.NewTraceMiddleware)

	allowedOrigins := viper.GetStringSlice("server.http.cors.allowed_origins")
	allowedMethods := viper.GetStringSlice("server.http.cors.allowed_methods")
	allowedHeaders := viper.GetStringSlice("server.http.cors.allowed_headers")
	exposedHeaders := viper.GetStringSlice("server.http.cors.exposed_headers")
	allowCredentials := viper.GetBool("server.http.cors.allow_credentials")
	maxAge := viper.GetInt("server.http.cors.max_age")

	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   allowedMethods,
		AllowedHeaders:   allowedHeaders,
		ExposedHeaders:   exposedHeaders,
		AllowCredentials: allowCredentials,
		MaxAge:           maxAge,
	})

	router.Use(c.Handler)

	return router
}

func newServer(router http.Handler) *http.Server {
	return &http.Server{
		Addr:    "0.0.0.0:" + viper.GetString("server.http.port"),
		Handler: router,
	}
}
