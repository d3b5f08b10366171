package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/repository/memory"
)

type fakePublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *fakePublisher) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return nil
}

func seededProducts(t *testing.T) *memory.ProductRepository {
	t.Helper()
	repo := memory.NewProductRepository()
	require.NoError(t, repo.Seed(context.Background(), []entity.Product{
		{ID: "prod-a", Name: "Yerba 1kg", EAN: "7791234000022", Price: 8.5, Stock: 10},
		{ID: "prod-b", Name: "Mate kit", EAN: "7791234000015", Price: 20, Stock: 2},
	}))
	return repo
}

func TestPlaceOrderComputesTotalFromCatalog(t *testing.T) {
	ctx := context.Background()
	orderRepo := memory.NewOrderRepository()
	publisher := &fakePublisher{}
	svc := NewOrderService(orderRepo, seededProducts(t), memory.NewEventStore(), publisher)

	cmd := &entity.PlaceOrder{
		OrderID: "ord-1",
		BuyerID: "buyer-1",
		Items: []entity.OrderItem{
			// Client-supplied price is ignored in favor of the catalog.
			{ProductID: "prod-a", Quantity: 3, Price: 1},
			{ProductID: "prod-b", Quantity: 1},
		},
	}
	require.NoError(t, svc.PlaceOrder(ctx, cmd))

	order, err := svc.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusPending, order.Status)
	assert.InDelta(t, 3*8.5+20, order.TotalPrice, 1e-9)
	assert.Equal(t, "7791234000022", order.Items[0].EAN)
}

func TestPlaceOrderIsIdempotent(t *testing.T) {
	ctx := context.Background()
	products := seededProducts(t)
	svc := NewOrderService(memory.NewOrderRepository(), products, memory.NewEventStore(), &fakePublisher{})

	cmd := &entity.PlaceOrder{
		OrderID: "ord-1",
		Items:   []entity.OrderItem{{ProductID: "prod-a", Quantity: 2}},
	}
	require.NoError(t, svc.PlaceOrder(ctx, cmd))
	require.NoError(t, svc.PlaceOrder(ctx, cmd))

	p, err := products.FindByID(ctx, "prod-a")
	require.NoError(t, err)
	assert.Equal(t, 8, p.Stock, "stock decremented once, not twice")
}

func TestPlaceOrderRejectsEmptyAndUnknown(t *testing.T) {
	ctx := context.Background()
	svc := NewOrderService(memory.NewOrderRepository(), seededProducts(t), memory.NewEventStore(), &fakePublisher{})

	require.Error(t, svc.PlaceOrder(ctx, &entity.PlaceOrder{OrderID: "ord-1"}))
	require.Error(t, svc.PlaceOrder(ctx, &entity.PlaceOrder{
		OrderID: "ord-2",
		Items:   []entity.OrderItem{{ProductID: "prod-x", Quantity: 1}},
	}))
}

func TestPlaceOrderRejectsInsufficientStock(t *testing.T) {
	ctx := context.Background()
	svc := NewOrderService(memory.NewOrderRepository(), seededProducts(t), memory.NewEventStore(), &fakePublisher{})

	err := svc.PlaceOrder(ctx, &entity.PlaceOrder{
		OrderID: "ord-1",
		Items:   []entity.OrderItem{{ProductID: "prod-b", Quantity: 3}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient stock")
}

func TestRejectedOrderLeavesStockUntouched(t *testing.T) {
	ctx := context.Background()
	products := seededProducts(t)
	svc := NewOrderService(memory.NewOrderRepository(), products, memory.NewEventStore(), &fakePublisher{})

	// prod-a is available but prod-b is under-stocked: the order fails as a
	// whole and must not have reserved prod-a in passing.
	err := svc.PlaceOrder(ctx, &entity.PlaceOrder{
		OrderID: "ord-1",
		Items: []entity.OrderItem{
			{ProductID: "prod-a", Quantity: 3},
			{ProductID: "prod-b", Quantity: 5},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient stock")

	p, err := products.FindByID(ctx, "prod-a")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)

	// Same for an unknown product after a valid line.
	err = svc.PlaceOrder(ctx, &entity.PlaceOrder{
		OrderID: "ord-2",
		Items: []entity.OrderItem{
			{ProductID: "prod-a", Quantity: 3},
			{ProductID: "prod-x", Quantity: 1},
		},
	})
	require.Error(t, err)

	p, err = products.FindByID(ctx, "prod-a")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
}

func TestReportLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewReportService(memory.NewReportRepository())

	report, err := svc.CreateReport(ctx, "lost package", "never arrived", "ord-1", "", "")
	require.NoError(t, err)
	assert.Equal(t, entity.ReportStatusOpen, report.Status)

	report, err = svc.AppendNote(ctx, report.ID, "carrier contacted")
	require.NoError(t, err)
	require.Len(t, report.Notes, 1)

	report, err = svc.CloseReport(ctx, report.ID, "refund issued")
	require.NoError(t, err)
	assert.Equal(t, entity.ReportStatusClosed, report.Status)
	assert.NotNil(t, report.ClosedAt)

	_, err = svc.AppendNote(ctx, report.ID, "too late")
	require.ErrorIs(t, err, ErrReportClosed)
	_, err = svc.CloseReport(ctx, report.ID, "again")
	require.ErrorIs(t, err, ErrReportClosed)
}

func TestCreateReportRequiresReason(t *testing.T) {
	svc := NewReportService(memory.NewReportRepository())
	_, err := svc.CreateReport(context.Background(), "", "desc", "", "", "")
	require.Error(t, err)
}

func TestReviewScoreBounds(t *testing.T) {
	ctx := context.Background()
	svc := NewReviewService(memory.NewReviewRepository())

	for _, score := range []int{0, 6, -1} {
		_, err := svc.CreateReview(ctx, "post-1", "buyer-1", score, "meh")
		require.Error(t, err, "score %d", score)
	}

	review, err := svc.CreateReview(ctx, "post-1", "buyer-1", 5, "excellent mate")
	require.NoError(t, err)
	assert.Equal(t, 5, review.Score)

	reviews, err := svc.GetReviews(ctx, "post-1")
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestChatMessagesOrderedAndImmutableLog(t *testing.T) {
	ctx := context.Background()
	svc := NewChatService(memory.NewChatRepository())

	chat, err := svc.OpenChat(ctx, entity.ChatKindSale, "ord-1")
	require.NoError(t, err)

	_, err = svc.PostMessage(ctx, chat.ID, entity.AuthorCustomer, "hola, ¿hay stock?")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = svc.PostMessage(ctx, chat.ID, entity.AuthorSeller, "sí, enviamos hoy")
	require.NoError(t, err)

	msgs, err := svc.GetMessages(ctx, chat.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.AuthorCustomer, msgs[0].Author)
	assert.True(t, !msgs[1].CreatedAt.Before(msgs[0].CreatedAt))

	require.NoError(t, svc.CloseChat(ctx, chat.ID))
	_, err = svc.PostMessage(ctx, chat.ID, entity.AuthorCustomer, "too late")
	require.ErrorIs(t, err, ErrChatClosed)
}

func TestPostMessageValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewChatService(memory.NewChatRepository())
	chat, err := svc.OpenChat(ctx, entity.ChatKindReport, "")
	require.NoError(t, err)

	_, err = svc.PostMessage(ctx, chat.ID, "robot", "beep")
	require.Error(t, err)
	_, err = svc.PostMessage(ctx, chat.ID, entity.AuthorAdmin, "")
	require.Error(t, err)
}

func TestPaymentOptionVariants(t *testing.T) {
	ctx := context.Background()
	svc := NewPaymentOptionService(memory.NewPaymentOptionRepository())

	link, err := svc.CreateLink(ctx, "biz-1", "mercadopago", "https://mpago.la/abc")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentKindLink, link.Kind)
	assert.Nil(t, link.Transfer)

	transfer, err := svc.CreateTransfer(ctx, "biz-1", entity.BankTransfer{
		BankName:      "Banco Nación",
		AccountNumber: "0110012340000123456789",
		HolderName:    "Feria Virtual SRL",
		TaxID:         "30-71234567-8",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentKindTransfer, transfer.Kind)
	assert.Nil(t, transfer.Link)

	_, err = svc.CreateLink(ctx, "biz-1", "", "")
	require.Error(t, err)
	_, err = svc.CreateTransfer(ctx, "biz-1", entity.BankTransfer{})
	require.Error(t, err)

	opts, err := svc.GetOptions(ctx, "biz-1")
	require.NoError(t, err)
	assert.Len(t, opts, 2)

	require.NoError(t, svc.DeleteOption(ctx, link.ID))
	opts, err = svc.GetOptions(ctx, "biz-1")
	require.NoError(t, err)
	assert.Len(t, opts, 1)
}
