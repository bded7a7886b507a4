package payments

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftwear/oms/internal/service/models/payment"
	"github.com/weftwear/oms/internal/service/services/statussvc"
)

type fakeService struct {
	recordFunc func(ctx context.Context, input statussvc.RecordPaymentInput) (statussvc.RecordPaymentResult, error)
	listFunc   func(ctx context.Context, orderID int64) ([]payment.Payment, error)
}

func (f *fakeService) RecordPayment(ctx context.Context, input statussvc.RecordPaymentInput) (statussvc.RecordPaymentResult, error) {
	return f.recordFunc(ctx, input)
}

func (f *fakeService) GetOrderPayments(ctx context.Context, orderID int64) ([]payment.Payment, error) {
	return f.listFunc(ctx, orderID)
}

func doWebhook(svc service, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	Webhook(rec, req, svc)

	return rec
}

func TestWebhookRecordsPayment(t *testing.T) {
	svc := &fakeService{
		recordFunc: func(_ context.Context, input statussvc.RecordPaymentInput) (statussvc.RecordPaymentResult, error) {
			assert.Equal(t, int64(7), input.OrderID)
			assert.Equal(t, payment.StatusSucceeded, input.Status)
			assert.Equal(t, int64(9279), input.AmountCents)
			return statussvc.RecordPaymentResult{
				Payment: &payment.Payment{ID: 1, OrderID: input.OrderID, Status: input.Status},
			}, nil
		},
	}

	rec := doWebhook(svc, `{"orderId":7,"provider":"stripe","providerRef":"pi_123","status":"SUCCEEDED","amountCents":9279}`)

	require.Equal(t, http.StatusCreated, rec.Code)

	var res statussvc.RecordPaymentResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, int64(1), res.Payment.ID)
}

func TestWebhookRejectsUnknownStatus(t *testing.T) {
	svc := &fakeService{
		recordFunc: func(_ context.Context, _ statussvc.RecordPaymentInput) (statussvc.RecordPaymentResult, error) {
			t.Fatal("service must not be called for an unknown payment status")
			return statussvc.RecordPaymentResult{}, nil
		},
	}

	rec := doWebhook(svc, `{"orderId":7,"provider":"stripe","providerRef":"pi_123","status":"MAYBE","amountCents":100}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookOrderNotFound(t *testing.T) {
	svc := &fakeService{
		recordFunc: func(_ context.Context, _ statussvc.RecordPaymentInput) (statussvc.RecordPaymentResult, error) {
			return statussvc.RecordPaymentResult{}, sql.ErrNoRows
		},
	}

	rec := doWebhook(svc, `{"orderId":404,"provider":"stripe","providerRef":"pi_123","status":"FAILED","amountCents":100}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListByOrder(t *testing.T) {
	svc := &fakeService{
		listFunc: func(_ context.Context, orderID int64) ([]payment.Payment, error) {
			assert.Equal(t, int64(7), orderID)
			return []payment.Payment{{ID: 1, OrderID: orderID, Status: payment.StatusFailed}}, nil
		},
	}

	router := chi.NewRouter()
	router.Get("/api/orders/{orderID}/payments", func(w http.ResponseWriter, r *http.Request) {
		ListByOrder(w, r, svc)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/orders/7/payments", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var attempts []payment.Payment
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&attempts))
	require.Len(t, attempts, 1)
	assert.Equal(t, payment.StatusFailed, attempts[0].Status)
}
