package transitionstatus

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftwear/oms/internal/service/models/order"
	"github.com/weftwear/oms/internal/service/models/result"
	"github.com/weftwear/oms/internal/service/services/statussvc"
)

type fakeService struct {
	transitionFunc func(ctx context.Context, orderID int64, target order.Status, opts statussvc.TransitionOptions) (statussvc.TransitionResult, error)
	bulkFunc       func(ctx context.Context, orderIDs []int64, target order.Status, opts statussvc.BulkOptions) (statussvc.BulkResult, error)
	listFunc       func(ctx context.Context, orderID int64) ([]order.Status, error)
}

func (f *fakeService) TransitionOrderStatus(ctx context.Context, orderID int64, target order.Status, opts statussvc.TransitionOptions) (statussvc.TransitionResult, error) {
	return f.transitionFunc(ctx, orderID, target, opts)
}

func (f *fakeService) BulkTransitionOrders(ctx context.Context, orderIDs []int64, target order.Status, opts statussvc.BulkOptions) (statussvc.BulkResult, error) {
	return f.bulkFunc(ctx, orderIDs, target, opts)
}

func (f *fakeService) GetOrderValidTransitions(ctx context.Context, orderID int64) ([]order.Status, error) {
	return f.listFunc(ctx, orderID)
}

func doTransition(t *testing.T, svc service, body string) *httptest.ResponseRecorder {
	t.Helper()

	router := chi.NewRouter()
	router.Post("/api/orders/{orderID}/status", func(w http.ResponseWriter, r *http.Request) {
		Transition(w, r, svc)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/orders/42/status", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func TestTransitionSuccess(t *testing.T) {
	svc := &fakeService{
		transitionFunc: func(_ context.Context, orderID int64, target order.Status, opts statussvc.TransitionOptions) (statussvc.TransitionResult, error) {
			assert.Equal(t, int64(42), orderID)
			assert.Equal(t, order.StatusCancelled, target)
			assert.Equal(t, "damaged in warehouse", opts.Reason)
			return statussvc.TransitionResult{Success: true, Order: &order.Order{ID: orderID, Status: target}}, nil
		},
	}

	rec := doTransition(t, svc, `{"status":"CANCELLED","reason":"damaged in warehouse"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var res statussvc.TransitionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.True(t, res.Success)
}

func TestTransitionRefusalMapsToConflict(t *testing.T) {
	svc := &fakeService{
		transitionFunc: func(_ context.Context, _ int64, _ order.Status, _ statussvc.TransitionOptions) (statussvc.TransitionResult, error) {
			return statussvc.TransitionResult{
				Reason:           result.ReasonInvalidTransition,
				ValidTransitions: []order.Status{order.StatusAwaitingPayment},
			}, nil
		},
	}

	rec := doTransition(t, svc, `{"status":"SHIPPED"}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	var res statussvc.TransitionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, result.ReasonInvalidTransition, res.Reason)
	assert.Equal(t, []order.Status{order.StatusAwaitingPayment}, res.ValidTransitions)
}

func TestTransitionNotFoundMapsTo404(t *testing.T) {
	svc := &fakeService{
		transitionFunc: func(_ context.Context, _ int64, _ order.Status, _ statussvc.TransitionOptions) (statussvc.TransitionResult, error) {
			return statussvc.TransitionResult{Reason: result.ReasonNotFound}, nil
		},
	}

	rec := doTransition(t, svc, `{"status":"CANCELLED"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTransitionRejectsUnknownStatusString(t *testing.T) {
	svc := &fakeService{
		transitionFunc: func(_ context.Context, _ int64, _ order.Status, _ statussvc.TransitionOptions) (statussvc.TransitionResult, error) {
			t.Fatal("service should not be called")
			return statussvc.TransitionResult{}, nil
		},
	}

	rec := doTransition(t, svc, `{"status":"TELEPORTED"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBulkTransition(t *testing.T) {
	svc := &fakeService{
		bulkFunc: func(_ context.Context, orderIDs []int64, target order.Status, opts statussvc.BulkOptions) (statussvc.BulkResult, error) {
			assert.Equal(t, []int64{1, 2, 3}, orderIDs)
			assert.Equal(t, order.StatusFulfilling, target)
			assert.True(t, opts.StopOnError)
			return statussvc.BulkResult{Successful: []int64{1, 2, 3}, Failed: []statussvc.BulkFailure{}}, nil
		},
	}

	router := chi.NewRouter()
	router.Post("/api/orders/status/bulk", func(w http.ResponseWriter, r *http.Request) {
		BulkTransition(w, r, svc)
	})

	body := `{"orderIds":[1,2,3],"status":"FULFILLING","stopOnError":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders/status/bulk", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res statussvc.BulkResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.Successful, 3)
}

func TestBulkTransitionTooLargeMapsTo400(t *testing.T) {
	svc := &fakeService{
		bulkFunc: func(_ context.Context, _ []int64, _ order.Status, _ statussvc.BulkOptions) (statussvc.BulkResult, error) {
			return statussvc.BulkResult{Reason: result.ReasonBatchTooLarge}, nil
		},
	}

	router := chi.NewRouter()
	router.Post("/api/orders/status/bulk", func(w http.ResponseWriter, r *http.Request) {
		BulkTransition(w, r, svc)
	})

	body := `{"orderIds":[1],"status":"FULFILLING"}`
	req := httptest.NewRequest(http.MethodPost, "/api/orders/status/bulk", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTransitions(t *testing.T) {
	svc := &fakeService{
		listFunc: func(_ context.Context, orderID int64) ([]order.Status, error) {
			assert.Equal(t, int64(42), orderID)
			return []order.Status{order.StatusShipped, order.StatusCancelled}, nil
		},
	}

	router := chi.NewRouter()
	router.Get("/api/orders/{orderID}/transitions", func(w http.ResponseWriter, r *http.Request) {
		ListTransitions(w, r, svc)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/42/transitions", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var res listTransitionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, int64(42), res.OrderID)
	assert.Len(t, res.ValidTransitions, 2)
}
