package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	delivery "github.com/feriavirtual/backend/internal/delivery/http"
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

type recordingNotifier struct {
	mu      sync.Mutex
	entries []string
}

func (n *recordingNotifier) Notify(level Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.entries = append(n.entries, string(level)+": "+message)
}

func (n *recordingNotifier) levels() (success, failure int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.entries {
		if strings.HasPrefix(e, string(LevelSuccess)) {
			success++
		} else {
			failure++
		}
	}
	return
}

const faqJSON = `{
	"root": "q1",
	"nodes": [
		{"id": "q1", "question": "Did the package arrive?", "answers": [
			{"label": "No", "action": "report"},
			{"label": "Yes", "action": "solution", "solution": "Check the contents against the order."}
		]}
	]
}`

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	products := memory.NewProductRepository()
	require.NoError(t, products.Seed(context.Background(), []entity.Product{
		{ID: "prod-a", Name: "Yerba 1kg", EAN: "7791234000022", Price: 8.5, Stock: 100, BusinessID: "biz-1"},
		{ID: "prod-b", Name: "Mate kit", EAN: "7791234000015", Price: 20, Stock: 100, BusinessID: "biz-1"},
	}))

	orders := memory.NewOrderRepository()
	eventStore := memory.NewEventStore()

	orderSvc := service.NewOrderService(orders, products, eventStore, nopPublisher{})
	machine := fulfillment.NewMachine(eventStore, orders, nopPublisher{}, label.Noop{})
	reportSvc := service.NewReportService(memory.NewReportRepository())
	reviewSvc := service.NewReviewService(memory.NewReviewRepository())
	chatSvc := service.NewChatService(memory.NewChatRepository())
	paymentSvc := service.NewPaymentOptionService(memory.NewPaymentOptionRepository())

	faq, err := support.LoadGraph(strings.NewReader(faqJSON))
	require.NoError(t, err)

	mux := http.NewServeMux()
	delivery.NewHandler(orderSvc, machine, reportSvc, reviewSvc, chatSvc, paymentSvc, faq).RegisterRoutes(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T) (*Client, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	return New(newBackend(t).URL, nil, notifier), notifier
}

func placeOrder(t *testing.T, c *Client, orderID string) {
	t.Helper()
	require.NoError(t, c.PlaceOrder(context.Background(), &entity.PlaceOrder{
		OrderID: orderID,
		BuyerID: "buyer-1",
		Items: []entity.OrderItem{
			{ProductID: "prod-a", Quantity: 2},
			{ProductID: "prod-b", Quantity: 1},
		},
	}))
}

func TestStoreSubscribeAndUnsubscribe(t *testing.T) {
	store := NewStore(func(p entity.Product) string { return p.ID })

	var seen [][]entity.Product
	unsubscribe := store.Subscribe(func(items []entity.Product) {
		seen = append(seen, items)
	})

	store.Set([]entity.Product{{ID: "a"}, {ID: "b"}})
	store.Update(entity.Product{ID: "a", Name: "renamed"})
	store.Remove("b")

	require.Len(t, seen, 3)
	assert.Len(t, seen[0], 2)
	assert.Equal(t, "renamed", seen[1][0].Name)
	assert.Len(t, seen[2], 1)

	unsubscribe()
	store.Add(entity.Product{ID: "c"})
	assert.Len(t, seen, 3)

	got, ok := store.Get("a")
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Name)
}

func TestPlaceOrderSyncsStoreWithCatalogPrices(t *testing.T) {
	c, notifier := newTestClient(t)
	placeOrder(t, c, "ord-1")

	order, ok := c.Orders.Get("ord-1")
	require.True(t, ok)
	assert.Equal(t, entity.OrderStatusPending, order.Status)

	// Line prices come from the server's catalog, not from the command.
	line := order.Item("prod-a")
	require.NotNil(t, line)
	assert.Equal(t, 8.5, line.Price)
	assert.Equal(t, "7791234000022", line.EAN)

	success, failure := notifier.levels()
	assert.Equal(t, 1, success)
	assert.Zero(t, failure)
}

func TestFailedMutationLeavesStoreUntouched(t *testing.T) {
	c, notifier := newTestClient(t)

	err := c.PlaceOrder(context.Background(), &entity.PlaceOrder{
		OrderID: "ord-bad",
		BuyerID: "buyer-1",
		Items:   []entity.OrderItem{{ProductID: "no-such-product", Quantity: 1}},
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Zero(t, c.Orders.Len())

	success, failure := notifier.levels()
	assert.Zero(t, success)
	assert.Equal(t, 1, failure)
}

func TestFulfillmentThroughClient(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	placeOrder(t, c, "ord-1")

	require.NoError(t, c.Pick(ctx, "ord-1", map[string]int{"prod-a": 2, "prod-b": 1}))
	order, ok := c.Orders.Get("ord-1")
	require.True(t, ok)
	assert.Equal(t, entity.OrderStatusPrepared, order.Status)

	session := c.NewScanSession("ord-1")

	valid, err := session.Scan(ctx, "prod-a", "0000000000000")
	require.NoError(t, err)
	assert.False(t, valid)
	assert.False(t, session.Validated("prod-a"))

	valid, err = session.Scan(ctx, "prod-a", "7791234000022")
	require.NoError(t, err)
	assert.True(t, valid)

	// A mismatch after a successful match does not un-validate the line.
	valid, err = session.Scan(ctx, "prod-a", "junk")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.True(t, session.Validated("prod-a"))

	assert.False(t, session.AllValidated([]string{"prod-a", "prod-b"}))
	valid, err = session.Scan(ctx, "prod-b", "7791234000015")
	require.NoError(t, err)
	assert.True(t, valid)
	assert.True(t, session.AllValidated([]string{"prod-a", "prod-b"}))

	require.NoError(t, c.Egress(ctx, "ord-1", "TRK-9", "Correo Argentino", "fragile"))
	order, ok = c.Orders.Get("ord-1")
	require.True(t, ok)
	assert.Equal(t, entity.OrderStatusCompleted, order.Status)
	assert.Equal(t, "TRK-9", order.TrackingNumber)

	require.NoError(t, c.Reimprint(ctx, "ord-1"))
}

func TestScanSessionStateIsSessionLocal(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()
	placeOrder(t, c, "ord-1")
	require.NoError(t, c.Pick(ctx, "ord-1", map[string]int{"prod-a": 2, "prod-b": 1}))

	first := c.NewScanSession("ord-1")
	valid, err := first.Scan(ctx, "prod-a", "7791234000022")
	require.NoError(t, err)
	require.True(t, valid)

	// Reopening the modal starts a fresh session with no local marks.
	second := c.NewScanSession("ord-1")
	assert.False(t, second.Validated("prod-a"))
}

func TestCancelThroughClient(t *testing.T) {
	c, notifier := newTestClient(t)
	ctx := context.Background()
	placeOrder(t, c, "ord-1")

	require.NoError(t, c.Cancel(ctx, "ord-1"))
	order, ok := c.Orders.Get("ord-1")
	require.True(t, ok)
	assert.Equal(t, entity.OrderStatusCanceled, order.Status)

	// Second cancel is a server-side conflict, surfaced as an error
	// notification with the store left as the server has it.
	err := c.Cancel(ctx, "ord-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	_, failure := notifier.levels()
	assert.Equal(t, 1, failure)
}

func TestFAQWalkEndsInSubmittedReport(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	graph, err := c.FAQ(ctx)
	require.NoError(t, err)

	walker := support.NewWalker(graph)
	require.NoError(t, walker.Answer(0)) // "No" -> report form
	require.Equal(t, support.StepReport, walker.Step())

	require.NoError(t, walker.SubmitReport(ctx, c, "lost package", "never arrived", "ord-1"))
	require.Equal(t, support.StepDone, walker.Step())

	require.Equal(t, 1, c.Reports.Len())
	report := c.Reports.Snapshot()[0]
	assert.Equal(t, entity.ReportStatusOpen, report.Status)
	assert.Equal(t, "lost package", report.OpenReason)
	assert.Equal(t, "ord-1", report.OrderID)
}

func TestReportLifecycleThroughClient(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.SubmitReport(ctx, "wrong item", "got yerba instead of mate", "ord-2"))
	report := c.Reports.Snapshot()[0]

	require.NoError(t, c.AppendReportNote(ctx, report.ID, "seller contacted"))
	require.NoError(t, c.CloseReport(ctx, report.ID, "replacement shipped"))

	closed, ok := c.Reports.Get(report.ID)
	require.True(t, ok)
	assert.Equal(t, entity.ReportStatusClosed, closed.Status)
	require.Len(t, closed.Notes, 1)

	// A closed report accepts no further notes.
	require.Error(t, c.AppendReportNote(ctx, report.ID, "too late"))
}

func TestReviewsThroughClient(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.Error(t, c.CreateReview(ctx, "post-1", "buyer-1", 6, "demasiado"))
	require.NoError(t, c.CreateReview(ctx, "post-1", "buyer-1", 5, "excelente yerba"))

	reviews, err := c.Reviews(ctx, "post-1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Score)
}

func TestChatThroughClient(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.OpenChat(ctx, entity.ChatKindSale, "ord-1"))
	require.Equal(t, 1, c.Chats.Len())
	chat := c.Chats.Snapshot()[0]

	require.NoError(t, c.PostMessage(ctx, chat.ID, entity.AuthorCustomer, "¿hay stock?"))
	require.NoError(t, c.PostMessage(ctx, chat.ID, entity.AuthorSeller, "sí, quedan 3"))

	msgs, err := c.Messages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "¿hay stock?", msgs[0].Body)

	require.NoError(t, c.CloseChat(ctx, chat.ID))
	require.Error(t, c.PostMessage(ctx, chat.ID, entity.AuthorSeller, "late"))
}

func TestPaymentOptionsThroughClient(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.CreateLinkOption(ctx, "biz-1", "mercadopago", "https://mpago.la/abc"))
	require.NoError(t, c.CreateTransferOption(ctx, "biz-1", entity.BankTransfer{
		BankName:      "Banco Nación",
		AccountNumber: "0000003100012345678901",
		HolderName:    "Feria Virtual SRL",
		TaxID:         "30-12345678-9",
	}))
	require.Equal(t, 2, c.PaymentOptions.Len())

	var linkID string
	for _, opt := range c.PaymentOptions.Snapshot() {
		if opt.Kind == entity.PaymentKindLink {
			linkID = opt.ID
		}
	}
	require.NotEmpty(t, linkID)

	require.NoError(t, c.DeletePaymentOption(ctx, linkID))
	require.Equal(t, 1, c.PaymentOptions.Len())
	assert.Equal(t, entity.PaymentKindTransfer, c.PaymentOptions.Snapshot()[0].Kind)
}

func TestStockSyncThroughClient(t *testing.T) {
	c, _ := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.RefreshStock(ctx))
	level, ok := c.Stock.Get("prod-a")
	require.True(t, ok)
	assert.Equal(t, 100, level.Stock)

	// Placement reserves stock; the storage view reflects it after a
	// refresh, never through a local write.
	placeOrder(t, c, "ord-1")
	level, _ = c.Stock.Get("prod-a")
	assert.Equal(t, 100, level.Stock)

	require.NoError(t, c.RefreshStock(ctx))
	level, ok = c.Stock.Get("prod-a")
	require.True(t, ok)
	assert.Equal(t, 98, level.Stock)
}

func TestRefreshProducts(t *testing.T) {
	c, _ := newTestClient(t)

	require.NoError(t, c.RefreshProducts(context.Background()))
	require.Equal(t, 2, c.Products.Len())

	prod, ok := c.Products.Get("prod-a")
	require.True(t, ok)
	assert.Equal(t, "Yerba 1kg", prod.Name)
}
