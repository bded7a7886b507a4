package orderevents

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"

	"github.com/weftwear/oms/internal/service/models/orderevent"
	"github.com/weftwear/oms/internal/service/services/eventsvc"
	"github.com/weftwear/oms/internal/transport/http/respond"
)

// service is an interface for the service layer.
type service interface {
	CreateEvent(ctx context.Context, input eventsvc.CreateEventInput) (eventsvc.CreateEventResult, error)
	GetOrderEvents(ctx context.Context, orderID int64) ([]orderevent.OrderEvent, error)
	GetCriticalEvents(ctx context.Context, limit int) ([]orderevent.OrderEvent, error)
	GetEventAnalytics(ctx context.Context, orderID *int64, since *time.Time) ([]orderevent.KindCount, error)
}

func orderIDFromURL(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
}

// createEventRequest represents a manual event append request.
type createEventRequest struct {
	Kind     string          `json:"kind"    validate:"required"`
	Message  string          `json:"message" validate:"required"`
	ActorID  *int64          `json:"actorId,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// Validate validates the create event request.
func (r *createEventRequest) Validate() error {
	return validator.New().Struct(r)
}

// CreateEvent handles a manual event append request.
func CreateEvent(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := orderIDFromURL(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order id for event append", "error", err)

		return
	}

	req := createEventRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding request body for event append", "error", err)

		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error validating request body for event append", "error", err)

		return
	}

	res, err := service.CreateEvent(r.Context(), eventsvc.CreateEventInput{
		OrderID:  orderID,
		Kind:     orderevent.Kind(req.Kind),
		Message:  req.Message,
		ActorID:  req.ActorID,
		Metadata: req.Metadata,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error appending event", "error", err)

		return
	}

	if !res.Success {
		respond.JSON(w, respond.StatusForReason(res.Reason), res)

		return
	}

	respond.JSON(w, http.StatusCreated, res)
}

// ListEvents handles a request for one order's full event trail.
func ListEvents(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := orderIDFromURL(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing order id for event list", "error", err)

		return
	}

	events, err := service.GetOrderEvents(r.Context(), orderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error listing order events", "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, events)
}

type criticalEventsQuery struct {
	Limit int `schema:"limit,omitempty"`
}

// ListCritical handles a request for the most recent critical events.
func ListCritical(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &criticalEventsQuery{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding critical events query", "error", err)

		return
	}

	events, err := service.GetCriticalEvents(r.Context(), query.Limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error listing critical events", "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, events)
}

type analyticsQuery struct {
	OrderID *int64 `schema:"orderId,omitempty"`
	Since   string `schema:"since,omitempty"`
}

// Analytics handles an event-count-by-kind request.
func Analytics(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &analyticsQuery{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding analytics query", "error", err)

		return
	}

	var since *time.Time
	if query.Since != "" {
		parsed, err := time.Parse(time.RFC3339, query.Since)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			slog.Error("Error parsing since for analytics", "error", err)

			return
		}
		since = &parsed
	}

	counts, err := service.GetEventAnalytics(r.Context(), query.OrderID, since)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error computing event analytics", "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, counts)
}
