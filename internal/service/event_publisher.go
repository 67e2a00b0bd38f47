package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prohmpiriya/hotel-booking-engine/internal/domain"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/kafka"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/logger"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/retry"
	"github.com/prohmpiriya/hotel-booking-engine/pkg/telemetry"
	"go.uber.org/zap"
)

// EventPublisher defines the interface for publishing booking and payment events
type EventPublisher interface {
	// PublishBookingEvent publishes a committed booking transition
	PublishBookingEvent(ctx context.Context, event *domain.BookingEvent) error

	// PublishPaymentEvent publishes a committed payment session transition
	PublishPaymentEvent(ctx context.Context, event *domain.PaymentEvent) error

	// Close closes the event publisher
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer     *kafka.Producer
	bookingTopic string
	paymentTopic string
	serviceName  string
	retryConfig  *retry.Config
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers      []string
	BookingTopic string
	PaymentTopic string
	ServiceName  string
	ClientID     string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	bookingTopic := cfg.BookingTopic
	if bookingTopic == "" {
		bookingTopic = "hotel.booking-events"
	}

	paymentTopic := cfg.PaymentTopic
	if paymentTopic == "" {
		paymentTopic = "hotel.payment-events"
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "hotel-booking-engine"
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = serviceName + "-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		BatchSize:     100,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{
		producer:     producer,
		bookingTopic: bookingTopic,
		paymentTopic: paymentTopic,
		serviceName:  serviceName,
		retryConfig: &retry.Config{
			MaxRetries:      2,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2.0,
			JitterFactor:    0.1,
		},
	}, nil
}

// PublishBookingEvent publishes a booking event keyed by booking id
func (p *KafkaEventPublisher) PublishBookingEvent(ctx context.Context, event *domain.BookingEvent) error {
	return p.publish(ctx, p.bookingTopic, string(event.EventType), event.EventID, event.Key(), event.OccurredAt, event)
}

// PublishPaymentEvent publishes a payment event keyed by booking id
func (p *KafkaEventPublisher) PublishPaymentEvent(ctx context.Context, event *domain.PaymentEvent) error {
	return p.publish(ctx, p.paymentTopic, string(event.EventType), event.EventID, event.Key(), event.OccurredAt, event)
}

// HealthCheck pings the brokers
func (p *KafkaEventPublisher) HealthCheck(ctx context.Context) error {
	return p.producer.Ping(ctx)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

func (p *KafkaEventPublisher) publish(ctx context.Context, topic, eventType, eventID, key string, at time.Time, event any) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := telemetry.InjectTraceContext(ctx)
	headers["event_type"] = eventType
	headers["event_id"] = eventID
	headers["source"] = p.serviceName
	headers["content_type"] = "application/json"

	msg := &kafka.Message{
		Topic:     topic,
		Key:       []byte(key),
		Value:     value,
		Headers:   headers,
		Timestamp: at,
	}

	result := retry.Do(ctx, p.retryConfig, func(ctx context.Context) error {
		return p.producer.Produce(ctx, msg)
	})
	if result.Err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, result.Err)
	}
	return nil
}

// NoOpEventPublisher is a no-op implementation of EventPublisher for testing
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

// PublishBookingEvent is a no-op
func (p *NoOpEventPublisher) PublishBookingEvent(ctx context.Context, event *domain.BookingEvent) error {
	return nil
}

// PublishPaymentEvent is a no-op
func (p *NoOpEventPublisher) PublishPaymentEvent(ctx context.Context, event *domain.PaymentEvent) error {
	return nil
}

// Close is a no-op
func (p *NoOpEventPublisher) Close() error {
	return nil
}

// eventEmitter publishes after a committed write. A publish failure is
// logged and never undoes or fails the write.
type eventEmitter struct {
	publisher EventPublisher
	log       *logger.Logger
}

func newEventEmitter(publisher EventPublisher) eventEmitter {
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return eventEmitter{publisher: publisher, log: logger.Get()}
}

func (e eventEmitter) booking(ctx context.Context, eventType domain.BookingEventType, b *domain.Booking, now time.Time) {
	event := domain.NewBookingEvent(eventType, b, now)
	if err := e.publisher.PublishBookingEvent(ctx, event); err != nil {
		e.log.Warn("failed to publish booking event",
			zap.String("event_type", string(eventType)),
			zap.String("booking_id", b.ID),
			zap.Error(err),
		)
	}
}

func (e eventEmitter) payment(ctx context.Context, eventType domain.PaymentEventType, s *domain.PaymentSession, p *domain.Payment, now time.Time) {
	event := domain.NewPaymentEvent(eventType, s, p, now)
	if err := e.publisher.PublishPaymentEvent(ctx, event); err != nil {
		e.log.Warn("failed to publish payment event",
			zap.String("event_type", string(eventType)),
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}
}
