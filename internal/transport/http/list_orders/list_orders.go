package listorders

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/schema"

	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/transport/http/respond"
)

type service interface {
	GetOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)
}

type queryOrdersRequest struct {
	Ids      []int64  `schema:"ids,omitempty"`
	UserIds  []int64  `schema:"userIds,omitempty"`
	Statuses []string `schema:"statuses,omitempty"`
	Limit    int      `schema:"limit,omitempty"`
	Offset   int      `schema:"offset,omitempty"`
}

func (q *queryOrdersRequest) toModel() (*order.QueryOrdersModel, error) {
	statuses := make([]order.Status, 0, len(q.Statuses))
	for _, raw := range q.Statuses {
		status, err := order.ParseStatus(raw)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}

	return &order.QueryOrdersModel{
		Ids:      q.Ids,
		UserIds:  q.UserIds,
		Statuses: statuses,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}, nil
}

// ListOrders handles an order listing request for admin tooling.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error decoding orders query", "error", err)

		return
	}

	filter, err := query.toModel()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		slog.Error("Error parsing orders query", "error", err)

		return
	}

	orders, err := service.GetOrders(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		slog.Error("Error listing orders", "error", err)

		return
	}

	respond.JSON(w, http.StatusOK, orders)
}
