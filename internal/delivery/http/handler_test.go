package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/fulfillment"
	"github.com/feriavirtual/backend/internal/label"
	"github.com/feriavirtual/backend/internal/repository/memory"
	"github.com/feriavirtual/backend/internal/service"
	"github.com/feriavirtual/backend/internal/support"
)

type nopPublisher struct{}

func (nopPublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	return nil
}

const faqJSON = `{
	"root": "q1",
	"nodes": [
		{"id": "q1", "question": "Need help?", "answers": [
			{"label": "Yes", "action": "report"},
			{"label": "No", "action": "solution", "solution": "Great."}
		]}
	]
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	products := memory.NewProductRepository()
	require.NoError(t, products.Seed(context.Background(), []entity.Product{
		{ID: "prod-a", Name: "Yerba 1kg", EAN: "7791234000022", Price: 8.5, Stock: 100, BusinessID: "biz-1"},
		{ID: "prod-b", Name: "Mate kit", EAN: "7791234000015", Price: 20, Stock: 100, BusinessID: "biz-1"},
	}))

	orders := memory.NewOrderRepository()
	eventStore := memory.NewEventStore()
	publisher := nopPublisher{}

	orderSvc := service.NewOrderService(orders, products, eventStore, publisher)
	machine := fulfillment.NewMachine(eventStore, orders, publisher, label.Noop{})
	reportSvc := service.NewReportService(memory.NewReportRepository())
	reviewSvc := service.NewReviewService(memory.NewReviewRepository())
	chatSvc := service.NewChatService(memory.NewChatRepository())
	paymentSvc := service.NewPaymentOptionService(memory.NewPaymentOptionRepository())

	faq, err := support.LoadGraph(strings.NewReader(faqJSON))
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewHandler(orderSvc, machine, reportSvc, reviewSvc, chatSvc, paymentSvc, faq).RegisterRoutes(mux)

	srv := httptest.NewServer(EnableCORS(mux))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, out.Bytes()
}

func placeTestOrder(t *testing.T, srv *httptest.Server, orderID string) {
	t.Helper()
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/orders", entity.PlaceOrder{
		OrderID: orderID,
		BuyerID: "buyer-1",
		Items: []entity.OrderItem{
			{ProductID: "prod-a", Quantity: 3},
			{ProductID: "prod-b", Quantity: 5},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestFulfillmentFlowOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	placeTestOrder(t, srv, "ord-1")

	base := srv.URL + "/api/orders/ord-1"

	// Overpick rejected as a whole.
	resp, _ := doJSON(t, http.MethodPost, base+"/pick", map[string]any{
		"quantities": map[string]int{"prod-a": 4, "prod-b": 5},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, base+"/pick", map[string]any{
		"quantities": map[string]int{"prod-a": 3, "prod-b": 5},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Egress blocked until all items validated.
	resp, _ = doJSON(t, http.MethodPost, base+"/egress", map[string]string{
		"tracking_number": "T1", "courier": "C1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Scan mismatch reports valid=false with 200.
	resp, body := doJSON(t, http.MethodPost, base+"/scan", map[string]string{
		"item_id": "prod-a", "ean": "0000000000000",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var scan map[string]bool
	require.NoError(t, json.Unmarshal(body, &scan))
	assert.False(t, scan["valid"])

	for _, item := range []struct{ id, ean string }{
		{"prod-a", "7791234000022"},
		{"prod-b", "7791234000015"},
	} {
		resp, body = doJSON(t, http.MethodPost, base+"/scan", map[string]string{
			"item_id": item.id, "ean": item.ean,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, json.Unmarshal(body, &scan))
		assert.True(t, scan["valid"], item.id)
	}

	// Missing courier still blocked.
	resp, _ = doJSON(t, http.MethodPost, base+"/egress", map[string]string{
		"tracking_number": "T1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, base+"/egress", map[string]string{
		"tracking_number": "T1", "courier": "C1", "notes": "fragile",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var order entity.Order
	require.NoError(t, json.Unmarshal(body, &order))
	assert.Equal(t, entity.OrderStatusCompleted, order.Status)
	assert.Equal(t, "T1", order.TrackingNumber)

	// Duplicate egress is a state conflict.
	resp, _ = doJSON(t, http.MethodPost, base+"/egress", map[string]string{
		"tracking_number": "T2", "courier": "C2",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Reimprint works on a completed order.
	resp, _ = doJSON(t, http.MethodPost, base+"/reimprint", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestCancelOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	placeTestOrder(t, srv, "ord-2")

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/orders/ord-2/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var order entity.Order
	require.NoError(t, json.Unmarshal(body, &order))
	assert.Equal(t, entity.OrderStatusCanceled, order.Status)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/orders/ord-2/cancel", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUnknownOrderIs404(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/orders/nope/pick", map[string]any{
		"quantities": map[string]int{"prod-a": 1},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStockEndpointTracksPlacement(t *testing.T) {
	srv := newTestServer(t)
	placeTestOrder(t, srv, "ord-1")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/stock", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var levels []entity.StockLevel
	require.NoError(t, json.Unmarshal(body, &levels))
	byID := make(map[string]int, len(levels))
	for _, l := range levels {
		byID[l.ProductID] = l.Stock
	}
	assert.Equal(t, 97, byID["prod-a"])
	assert.Equal(t, 95, byID["prod-b"])
}

func TestReportEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/reports", map[string]string{
		"open_reason": "lost package",
		"description": "never arrived",
		"order_id":    "ord-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var report entity.Report
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, entity.ReportStatusOpen, report.Status)

	resp, body = doJSON(t, http.MethodPatch, srv.URL+"/api/reports/"+report.ID, map[string]any{
		"close": true, "close_reason": "refunded",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &report))
	assert.Equal(t, entity.ReportStatusClosed, report.Status)

	// Closing again is a validation failure.
	resp, _ = doJSON(t, http.MethodPatch, srv.URL+"/api/reports/"+report.ID, map[string]any{"close": true})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReviewValidationOverHTTP(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/reviews", map[string]any{
		"post_id": "post-1", "buyer_id": "buyer-1", "score": 9, "description": "!",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/reviews", map[string]any{
		"post_id": "post-1", "buyer_id": "buyer-1", "score": 4, "description": "rico",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/reviews?post_id=post-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reviews []entity.Review
	require.NoError(t, json.Unmarshal(body, &reviews))
	assert.Len(t, reviews, 1)
}

func TestPaymentOptionEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/payment-options", map[string]any{
		"business_id": "biz-1",
		"kind":        "link",
		"link":        map[string]string{"gateway": "mercadopago", "url": "https://mpago.la/abc"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var opt entity.PaymentOption
	require.NoError(t, json.Unmarshal(body, &opt))
	assert.Equal(t, entity.PaymentKindLink, opt.Kind)

	// Variant mismatch is rejected.
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/payment-options", map[string]any{
		"business_id": "biz-1",
		"kind":        "transfer",
		"link":        map[string]string{"gateway": "x", "url": "y"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/payment-options?business_id=biz-1", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestFAQEndpointServesGraph(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/faq", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var g support.Graph
	require.NoError(t, json.Unmarshal(body, &g))
	assert.Equal(t, "q1", g.Root)
	require.Len(t, g.Nodes, 1)
}

func TestChatEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/chats", map[string]string{
		"kind": "sale", "order_id": "ord-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var chat entity.Chat
	require.NoError(t, json.Unmarshal(body, &chat))

	msgURL := fmt.Sprintf("%s/api/chats/%s/messages", srv.URL, chat.ID)
	resp, _ = doJSON(t, http.MethodPost, msgURL, map[string]string{
		"author": "customer", "body": "¿hay stock?",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/chats/"+chat.ID+"/close", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, msgURL, map[string]string{
		"author": "seller", "body": "late",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
