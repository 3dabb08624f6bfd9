package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imran-vz/cocoacomaastore/internal/config"
)

// KafkaPublisher implements Publisher using Kafka.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
	config   *config.Config
}

// NewKafkaPublisher creates a Kafka publisher with idempotent producer
// settings.
func NewKafkaPublisher(cfg *config.Config, logger *zap.Logger) (Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.KafkaClientID
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = cfg.KafkaRetries
	saramaConfig.Producer.Idempotent = true
	saramaConfig.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(cfg.KafkaBrokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{
		producer: producer,
		logger:   logger,
		config:   cfg,
	}, nil
}

// Publish serializes the event and sends it to the topic derived from
// its type.
func (p *KafkaPublisher) Publish(ctx context.Context, event interface{}) error {
	topic, err := p.getTopicForEvent(event)
	if err != nil {
		return fmt.Errorf("failed to determine topic: %w", err)
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(eventJSON),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(p.getEventType(event))},
			{Key: []byte("event-id"), Value: []byte(uuid.New().String())},
			{Key: []byte("timestamp"), Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		},
	}
	if partitionKey := p.getPartitionKey(event); partitionKey != "" {
		message.Key = sarama.StringEncoder(partitionKey)
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.logger.Info("event published",
		zap.String("topic", topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("event_type", p.getEventType(event)),
	)
	return nil
}

// Close shuts the producer down.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

func (p *KafkaPublisher) getEventType(event interface{}) string {
	switch event.(type) {
	case OrderCompletedEvent:
		return "OrderCompleted"
	case OrderCancelledEvent:
		return "OrderCancelled"
	case StockChangedEvent:
		return "StockChanged"
	default:
		return "Unknown"
	}
}

func (p *KafkaPublisher) getTopicForEvent(event interface{}) (string, error) {
	switch event.(type) {
	case OrderCompletedEvent, OrderCancelledEvent:
		return p.config.KafkaTopicOrders, nil
	case StockChangedEvent:
		return p.config.KafkaTopicStock, nil
	default:
		return "", fmt.Errorf("unknown event type %T", event)
	}
}

// getPartitionKey keys order events by order id so per-order ordering is
// preserved, and stock events by dessert id.
func (p *KafkaPublisher) getPartitionKey(event interface{}) string {
	switch e := event.(type) {
	case OrderCompletedEvent:
		return strconv.FormatInt(e.OrderID, 10)
	case OrderCancelledEvent:
		return strconv.FormatInt(e.OrderID, 10)
	case StockChangedEvent:
		return strconv.FormatInt(e.DessertID, 10)
	default:
		return ""
	}
}

// NopPublisher discards events; the fallback when Kafka is not
// reachable so the POS keeps selling.
type NopPublisher struct {
	logger *zap.Logger
}

func NewNopPublisher(logger *zap.Logger) *NopPublisher {
	return &NopPublisher{logger: logger}
}

func (p *NopPublisher) Publish(ctx context.Context, event interface{}) error {
	p.logger.Debug("event discarded (no broker configured)", zap.String("type", fmt.Sprintf("%T", event)))
	return nil
}
