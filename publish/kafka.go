package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"matchbook/domain"
)

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends one message per trade, keyed by the resting order id
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher 创建 Kafka 成交发布者
func NewKafkaPublisher(cfg KafkaConfig, logger *slog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll, // 等待所有副本确认
		BatchTimeout:           cfg.BatchTimeout,
	}
	return newKafkaPublisher(writer, cfg.Topic, logger)
}

func newKafkaPublisher(w messageWriter, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "kafka_publisher", "topic", topic)
	logger.Info("kafka trade publisher created")
	return &KafkaPublisher{writer: w, topic: topic, logger: logger}
}

// Publish writes all trades in one batch
func (kp *KafkaPublisher) Publish(ctx context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	msgs, err := tradeMessages(trades)
	if err != nil {
		return err
	}

	if err := kp.writer.WriteMessages(ctx, msgs...); err != nil {
		kp.logger.Error("failed to send trades", "count", len(msgs), "error", err)
		return fmt.Errorf("kafka publish: %w", err)
	}

	kp.logger.Debug("trades sent", "count", len(msgs))
	return nil
}

// Close 关闭生产者
func (kp *KafkaPublisher) Close() error {
	return kp.writer.Close()
}

func tradeMessages(trades []domain.Trade) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(trades))
	for _, t := range trades {
		data, err := json.Marshal(NewTradeEvent(t))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal trade: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(int64(t.RestingID), 10)),
			Value: data,
		})
	}
	return msgs, nil
}
