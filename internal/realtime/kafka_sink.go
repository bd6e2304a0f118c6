package realtime

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/comanda-next/internal/logger"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaSink 把事件异步写入 Kafka，按资源键分区
type KafkaSink struct {
	writer *kafka.Writer
}

// ParseKafkaBrokers 解析逗号分隔的 broker 列表
func ParseKafkaBrokers(raw string) []string {
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			brokers = append(brokers, trimmed)
		}
	}
	return brokers
}

// NewKafkaSink 创建 Kafka 导出
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			Async:                  true,
			AllowAutoTopicCreation: true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Warnw("realtime_kafka_write_failed", "messages", len(messages), "error", err)
				}
			},
		},
	}
}

// Export 异步写入，不阻塞调用方
func (s *KafkaSink) Export(ctx context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Warnw("realtime_kafka_encode_failed", "event", event.Name(), "error", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(event.Key()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
			{Key: "event", Value: []byte(event.Name())},
		},
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		logger.Warnw("realtime_kafka_enqueue_failed", "event", event.Name(), "error", err)
	}
}

// Close 刷新并关闭 writer
func (s *KafkaSink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
