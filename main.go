package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/feriavirtual/backend/internal/config"
	delivery "github.com/feriavirtual/backend/internal/delivery/http"
	"github.com/feriavirtual/backend/internal/entity"
	"github.com/feriavirtual/backend/internal/fulfillment"
	"github.com/feriavirtual/backend/internal/label"
	"github.com/feriavirtual/backend/internal/messaging"
	"github.com/feriavirtual/backend/internal/messaging/kafka"
	"github.com/feriavirtual/backend/internal/repository/postgres"
	"github.com/feriavirtual/backend/internal/service"
	"github.com/feriavirtual/backend/internal/support"
)

func main() {
	slog.SetLogLoggerLevel(slog.LevelDebug)
	cfg := config.Load()

	// --- Database ---
	db, err := postgres.InitDB(cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to init database", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	products := postgres.NewProductRepository(db)
	orders := postgres.NewOrderRepository(db)
	eventStore := postgres.NewEventStore(db)
	reports := postgres.NewReportRepository(db)
	reviews := postgres.NewReviewRepository(db)
	chats := postgres.NewChatRepository(db)
	payments := postgres.NewPaymentOptionRepository(db)

	if err := products.Seed(context.Background(), defaultCatalog()); err != nil {
		slog.Error("Failed to seed products", "err", err)
		os.Exit(1)
	}

	// --- FAQ ---
	faq, err := support.LoadGraphFile(cfg.FAQPath)
	if err != nil {
		slog.Error("Failed to load FAQ graph", "path", cfg.FAQPath, "err", err)
		os.Exit(1)
	}

	// --- Kafka ---
	publisher, subscriber, err := kafka.NewBroker(cfg.KafkaBrokers, cfg.KafkaConsumerGroup)
	if err != nil {
		slog.Error("Failed to connect to kafka", "err", err)
		os.Exit(1)
	}

	// --- Labels ---
	labels, err := label.NewFileGenerator(cfg.LabelDir)
	if err != nil {
		slog.Error("Failed to init label spool", "err", err)
		os.Exit(1)
	}

	// --- Services ---
	orderSvc := service.NewOrderService(orders, products, eventStore, publisher)
	machine := fulfillment.NewMachine(eventStore, orders, publisher, labels)
	reportSvc := service.NewReportService(reports)
	reviewSvc := service.NewReviewService(reviews)
	chatSvc := service.NewChatService(chats)
	paymentSvc := service.NewPaymentOptionService(payments)

	// --- HTTP API ---
	mux := http.NewServeMux()
	delivery.NewHandler(orderSvc, machine, reportSvc, reviewSvc, chatSvc, paymentSvc, faq).RegisterRoutes(mux)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: delivery.EnableCORS(mux),
	}

	// --- Start everything ---
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Consumer: orders.shipped → request a rendered label from the external
	// document service.
	go func() {
		err := subscriber.Consume(ctx, messaging.TopicOrdersShipped, func(ctx context.Context, payload []byte) error {
			var event entity.OrderShipped
			if err := json.Unmarshal(payload, &event); err != nil {
				return fmt.Errorf("failed to unmarshal OrderShipped event: %w", err)
			}
			return publisher.PublishEvent(ctx, messaging.TopicLabelRequests, event.OrderID, event)
		})
		if err != nil {
			slog.Error("Shipped-orders consumer stopped", "err", err)
			cancel()
		}
	}()

	go func() {
		slog.Info("🚀 HTTP server starting", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "err", err)
			cancel()
		}
	}()

	slog.Info("🔄 Kafka consumers started", "brokers", cfg.KafkaBrokers, "group", cfg.KafkaConsumerGroup)

	<-ctx.Done()
	slog.Info("Shutting down...")
	httpServer.Shutdown(context.Background())
}

// defaultCatalog seeds the demo listings. Seeding is idempotent: existing
// products are left untouched.
func defaultCatalog() []entity.Product {
	return []entity.Product{
		{ID: "prod-yerba", Name: "Yerba orgánica 1kg", Description: "Secado barbacuá, cosecha 2025", Price: 8.5, EAN: "7791234000022", Category: "almacén", Stock: 120, BusinessID: "biz-almacen-sur", ImageURL: "/img/yerba.jpg"},
		{ID: "prod-mate", Name: "Mate imperial calabaza", Description: "Virola de alpaca, curado listo", Price: 35, EAN: "7791234000015", Category: "almacén", Stock: 18, BusinessID: "biz-almacen-sur", ImageURL: "/img/mate.jpg"},
		{ID: "prod-miel", Name: "Miel de monte 500g", Description: "Multiflora, sin pasteurizar", Price: 6, EAN: "7791234000039", Category: "alimentos", Stock: 60, BusinessID: "biz-granja-rio", ImageURL: "/img/miel.jpg"},
		{ID: "prod-alfajor", Name: "Alfajores de maicena x12", Description: "Dulce de leche y coco", Price: 9.5, EAN: "7791234000046", Category: "alimentos", Stock: 45, BusinessID: "biz-granja-rio", ImageURL: "/img/alfajores.jpg"},
	}
}
