// Package kafka implements messaging on top of Watermill's Kafka transport.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	wkafka "github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"

	"github.com/feriavirtual/backend/internal/messaging"
)

type broker struct {
	publisher *wkafka.Publisher
	brokers   []string
	group     string
	logger    watermill.LoggerAdapter
}

// NewBroker creates a Kafka-backed Publisher/Subscriber pair sharing one
// connection configuration.
func NewBroker(brokers []string, consumerGroup string) (messaging.Publisher, messaging.Subscriber, error) {
	logger := watermill.NewSlogLogger(slog.Default())

	publisher, err := wkafka.NewPublisher(wkafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: wkafka.DefaultMarshaler{},
	}, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	b := &broker{
		publisher: publisher,
		brokers:   brokers,
		group:     consumerGroup,
		logger:    logger,
	}
	return b, b, nil
}

func (b *broker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("partition_key", key)
	msg.SetContext(ctx)

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

func (b *broker) Consume(ctx context.Context, topic string, handler func(ctx context.Context, payload []byte) error) error {
	saramaConfig := wkafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := wkafka.NewSubscriber(wkafka.SubscriberConfig{
		Brokers:               b.brokers,
		Unmarshaler:           wkafka.DefaultMarshaler{},
		OverwriteSaramaConfig: saramaConfig,
		ConsumerGroup:         b.group,
	}, b.logger)
	if err != nil {
		return fmt.Errorf("failed to create kafka subscriber: %w", err)
	}
	defer subscriber.Close()

	messages, err := subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	for msg := range messages {
		if err := handler(msg.Context(), msg.Payload); err != nil {
			slog.Error("Error handling message", "topic", topic, "err", err)
			// Ack anyway: the handlers are idempotent and a poison message
			// must not wedge the consumer group.
		}
		msg.Ack()
	}

	slog.Info("Consumer shutting down", "topic", topic)
	return nil
}
