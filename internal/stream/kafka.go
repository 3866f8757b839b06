package stream

import (
	"context"
	"log/slog"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

const flushTimeoutMs = 5000

type KafkaStream struct {
	kafkaServers string
	producer     *kafka.Producer
	logger       *slog.Logger
}

// New connects a producer to kafkaServers. Delivery failures are reported
// asynchronously and logged.
func New(kafkaServers string, logger *slog.Logger) (*KafkaStream, error) {
	producer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":  kafkaServers,
		"enable.idempotence": true,
	})
	if err != nil {
		return nil, err
	}

	st := &KafkaStream{
		kafkaServers: kafkaServers,
		producer:     producer,
		logger:       logger,
	}

	go st.watchDeliveries()

	return st, nil
}

func (st *KafkaStream) watchDeliveries() {
	for e := range st.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				st.logger.Error("kafka delivery failed",
					"topic", *ev.TopicPartition.Topic,
					"key", string(ev.Key),
					"error", ev.TopicPartition.Error,
				)
			}
		case kafka.Error:
			st.logger.Error("kafka producer error", "error", ev)
		}
	}
}

// Publish enqueues value on topic. Messages with the same key keep their
// order.
func (st *KafkaStream) Publish(ctx context.Context, topic, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return st.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(key),
		Value:          value,
	}, nil)
}

type StreamConsumer struct {
	GroupId string
	Topic   string
}

func (st *KafkaStream) CreateConsumer(consumerStruct *StreamConsumer) (*kafka.Consumer, error) {
	consumer, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers": st.kafkaServers,
		"group.id":          consumerStruct.GroupId,
		"auto.offset.reset": "earliest",
	})
	if err != nil {
		return nil, err
	}

	if err := consumer.Subscribe(consumerStruct.Topic, nil); err != nil {
		consumer.Close()
		return nil, err
	}

	return consumer, nil
}

// Close flushes outstanding messages before shutting the producer down.
func (st *KafkaStream) Close() {
	if remaining := st.producer.Flush(flushTimeoutMs); remaining > 0 {
		st.logger.Warn("kafka messages left unflushed", "count", remaining)
	}

	st.producer.Close()
}
