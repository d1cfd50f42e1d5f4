// Package kafka 提供配置变更事件的 Kafka 发送
package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/metrics"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/mutator"
	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/logger"
)

// TopicConfigChanges 配置变更主题
const TopicConfigChanges = "tunables-changes"

// Producer Kafka 生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// NewProducer 创建 Kafka 生产者
func NewProducer(brokers []string, clientID string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.ClientID = clientID

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return NewProducerWithClient(producer, TopicConfigChanges), nil
}

// NewProducerWithClient 使用已有的 SyncProducer
func NewProducerWithClient(producer sarama.SyncProducer, topic string) *Producer {
	if topic == "" {
		topic = TopicConfigChanges
	}
	return &Producer{producer: producer, topic: topic}
}

// Topic 发送主题
func (p *Producer) Topic() string {
	return p.topic
}

// Close 关闭生产者
func (p *Producer) Close() error {
	return p.producer.Close()
}

// SendConfigChange 发送配置变更事件, 以集合作为分区键保证同一集合有序
func (p *Producer) SendConfigChange(ctx context.Context, event *mutator.ChangeEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Collection),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	metrics.RecordKafkaMessage(p.topic, err == nil)
	if err != nil {
		logger.Error("failed to send config change",
			zap.String("event_id", event.EventID),
			zap.Error(err))
		return err
	}

	logger.Debug("config change sent",
		zap.String("event_id", event.EventID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))

	return nil
}

// ChangeCallback 创建配置变更回调函数
func (p *Producer) ChangeCallback() func(ctx context.Context, event *mutator.ChangeEvent) error {
	return func(ctx context.Context, event *mutator.ChangeEvent) error {
		return p.SendConfigChange(ctx, event)
	}
}
