package event

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"posservice/pkg/common/domain"
	"posservice/pkg/sale/domain/model"
)

const (
	publishTimeout = 5 * time.Second
	// batchTimeout bounds how long a synchronous publish waits for more
	// messages before flushing. Events go out one per write.
	batchTimeout = 10 * time.Millisecond
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// ParseBrokers splits a comma separated broker list. An empty result means
// publishing is disabled.
func ParseBrokers(brokersCSV string) []string {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: batchTimeout,
	}
}

func NewKafkaDispatcher(writer MessageWriter) domain.EventDispatcher {
	return &kafkaDispatcher{writer: writer}
}

type kafkaDispatcher struct {
	writer MessageWriter
}

type envelope struct {
	Type       string       `json:"type"`
	OccurredAt time.Time    `json:"occurredAt"`
	Payload    domain.Event `json:"payload"`
}

func (d *kafkaDispatcher) Dispatch(event domain.Event) error {
	now := time.Now().UTC()
	data, err := json.Marshal(envelope{Type: event.Type(), OccurredAt: now, Payload: event})
	if err != nil {
		return errors.Wrapf(err, "failed to encode %s", event.Type())
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	err = d.writer.WriteMessages(ctx, kafka.Message{Key: []byte(messageKey(event)), Value: data, Time: now})
	return errors.Wrapf(err, "failed to publish %s", event.Type())
}

// messageKey keeps events of one aggregate on one partition.
func messageKey(event domain.Event) string {
	switch e := event.(type) {
	case model.SaleCompleted:
		return e.SaleID.String()
	case model.StockDecrementRejected:
		return e.SaleID.String()
	case model.ProductCreated:
		return e.ProductID.String()
	case model.ProductDetailsChanged:
		return e.ProductID.String()
	case model.ProductStockReceived:
		return e.ProductID.String()
	case model.ProductStockAdjusted:
		return e.ProductID.String()
	case model.ProductDeleted:
		return e.ProductID.String()
	default:
		return event.Type()
	}
}
