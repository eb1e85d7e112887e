package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posservice/pkg/common/domain"
	"posservice/pkg/sale/domain/model"
)

type mockWriter struct {
	messages []kafka.Message
	err      error
}

func (w *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

type failingDispatcher struct {
	err   error
	calls int
}

func (d *failingDispatcher) Dispatch(domain.Event) error {
	d.calls++
	return d.err
}

func TestKafkaDispatcher(t *testing.T) {
	saleID := uuid.New()
	event := model.SaleCompleted{SaleID: saleID, Total: decimal.RequireFromString("1100.00"), Currency: "USD", ItemCount: 1}

	t.Run("Publishes envelope keyed by sale", func(t *testing.T) {
		writer := &mockWriter{}
		err := NewKafkaDispatcher(writer).Dispatch(event)
		require.NoError(t, err)
		require.Len(t, writer.messages, 1)

		msg := writer.messages[0]
		assert.Equal(t, saleID.String(), string(msg.Key))

		var decoded struct {
			Type    string `json:"type"`
			Payload struct {
				SaleID string
				Total  string
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(msg.Value, &decoded))
		assert.Equal(t, "SaleCompleted", decoded.Type)
		assert.Equal(t, saleID.String(), decoded.Payload.SaleID)
		assert.Equal(t, "1100", decoded.Payload.Total)
	})

	t.Run("Returns writer error", func(t *testing.T) {
		writer := &mockWriter{err: errors.New("broker down")}
		err := NewKafkaDispatcher(writer).Dispatch(event)
		assert.Error(t, err)
	})
}

func TestMultiDispatcher(t *testing.T) {
	failure := errors.New("unavailable")
	first := &failingDispatcher{err: failure}
	second := &failingDispatcher{}

	err := NewMultiDispatcher(first, second).Dispatch(model.ProductDeleted{ProductID: uuid.New()})
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestLogDispatcher(t *testing.T) {
	logger, hook := test.NewNullLogger()

	err := NewLogDispatcher(logger).Dispatch(model.ProductDeleted{ProductID: uuid.New()})
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, "ProductDeleted", hook.LastEntry().Data["event"])
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092"))
	assert.Empty(t, ParseBrokers(""))
}

func TestNewKafkaWriter(t *testing.T) {
	writer := NewKafkaWriter([]string{"a:9092"}, "pos-sales")
	defer writer.Close()

	assert.Equal(t, "pos-sales", writer.Topic)
	assert.Equal(t, kafka.RequireOne, writer.RequiredAcks)
	assert.LessOrEqual(t, writer.BatchTimeout, 10*time.Millisecond)
	assert.Positive(t, writer.BatchTimeout)
}

func TestMessageKey(t *testing.T) {
	productID := uuid.New()
	assert.Equal(t, productID.String(), messageKey(model.ProductStockAdjusted{ProductID: productID, Delta: -2}))
	assert.Equal(t, productID.String(), messageKey(model.ProductStockReceived{ProductID: productID, Amount: 2}))
	assert.Equal(t, "StoreConfigUpdated", messageKey(model.StoreConfigUpdated{Currency: "USD"}))
}
