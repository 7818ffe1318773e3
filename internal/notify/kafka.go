package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Kafka writes events to one topic, keyed by reservation or registration id
// so that the events of one booking stay ordered within a partition.
type Kafka struct {
	w *kafka.Writer
}

func NewKafka(brokers []string, topic string) *Kafka {
	return &Kafka{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			BatchTimeout:           50 * time.Millisecond,
			AllowAutoTopicCreation: true,
		},
	}
}

func (k *Kafka) Notify(ctx context.Context, ev Event) error {
	const op = "notify.Kafka.Notify"

	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	key := ev.ReservationID
	if key == "" {
		key = ev.RegistrationID
	}

	if err := k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	}); err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (k *Kafka) Close() error {
	return k.w.Close()
}
