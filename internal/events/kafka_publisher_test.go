package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imran-vz/cocoacomaastore/internal/config"
)

func newRoutingPublisher() *KafkaPublisher {
	return &KafkaPublisher{
		config: &config.Config{
			KafkaTopicOrders: "pos.orders",
			KafkaTopicStock:  "pos.stock",
		},
	}
}

func TestGetEventType(t *testing.T) {
	p := newRoutingPublisher()

	assert.Equal(t, "OrderCompleted", p.getEventType(OrderCompletedEvent{}))
	assert.Equal(t, "OrderCancelled", p.getEventType(OrderCancelledEvent{}))
	assert.Equal(t, "StockChanged", p.getEventType(StockChangedEvent{}))
	assert.Equal(t, "Unknown", p.getEventType("not an event"))
}

func TestGetTopicForEvent(t *testing.T) {
	p := newRoutingPublisher()

	topic, err := p.getTopicForEvent(OrderCompletedEvent{})
	require.NoError(t, err)
	assert.Equal(t, "pos.orders", topic)

	topic, err = p.getTopicForEvent(OrderCancelledEvent{})
	require.NoError(t, err)
	assert.Equal(t, "pos.orders", topic)

	topic, err = p.getTopicForEvent(StockChangedEvent{})
	require.NoError(t, err)
	assert.Equal(t, "pos.stock", topic)

	_, err = p.getTopicForEvent(struct{}{})
	assert.Error(t, err)
}

func TestGetPartitionKey(t *testing.T) {
	p := newRoutingPublisher()

	assert.Equal(t, "42", p.getPartitionKey(OrderCompletedEvent{OrderID: 42}))
	assert.Equal(t, "42", p.getPartitionKey(OrderCancelledEvent{OrderID: 42}))
	assert.Equal(t, "7", p.getPartitionKey(StockChangedEvent{DessertID: 7}))
	assert.Equal(t, "", p.getPartitionKey("not an event"))
}
