package outbox

import "github.com/segmentio/kafka-go"

// NewKafkaWriter hashes on the message key, so events of one aggregate keep
// their order within a partition.
func NewKafkaWriter(brokers []string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

var _ Producer = (*kafka.Writer)(nil)
