package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	event := OrderEvent{
		EventType:   "pingback.direct_payment",
		OrderID:     42,
		ReferenceID: "TX-9",
		Outcome:     "direct_payment",
		OccurredAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != "orders" {
			return errors.New("unexpected topic " + msg.Topic)
		}
		key, err := msg.Key.Encode()
		if err != nil {
			return err
		}
		if string(key) != "42" {
			return errors.New("unexpected key " + string(key))
		}
		raw, err := msg.Value.Encode()
		if err != nil {
			return err
		}
		var got OrderEvent
		if err := json.Unmarshal(raw, &got); err != nil {
			return err
		}
		if got.ReferenceID != "TX-9" || got.OrderID != 42 {
			return errors.New("unexpected payload")
		}
		return nil
	})

	pub := NewKafkaPublisher(producer, "orders", zap.NewNop())
	require.NoError(t, pub.Publish(context.Background(), event))
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	defer producer.Close()

	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewKafkaPublisher(producer, "orders", zap.NewNop())
	err := pub.Publish(context.Background(), OrderEvent{OrderID: 1})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestNoopPublisher(t *testing.T) {
	assert.NoError(t, NoopPublisher{}.Publish(context.Background(), OrderEvent{}))
}
