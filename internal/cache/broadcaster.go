package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/logger"
)

// DefaultChannel 失效广播频道
const DefaultChannel = "eidos:tunables:invalidate"

var ErrBroadcasterClosed = errors.New("broadcaster is closed")

// InvalidationMessage 跨实例失效消息
type InvalidationMessage struct {
	Origin     string `json:"origin"`
	Collection string `json:"collection"`
	Reason     string `json:"reason"`
	At         int64  `json:"at"`
}

// Broadcaster 通过 Redis pub/sub 通知其他实例失效缓存
type Broadcaster struct {
	client   redis.UniversalClient
	channel  string
	instance string

	mu     sync.Mutex
	pubsub *redis.PubSub
	cancel context.CancelFunc
	closed bool
}

// NewBroadcaster 创建广播器
func NewBroadcaster(client redis.UniversalClient, channel string) *Broadcaster {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Broadcaster{
		client:   client,
		channel:  channel,
		instance: uuid.NewString(),
	}
}

// Instance 本实例标识
func (b *Broadcaster) Instance() string {
	return b.instance
}

// Publish 广播失效
func (b *Broadcaster) Publish(ctx context.Context, collection, reason string) error {
	data, err := json.Marshal(InvalidationMessage{
		Origin:     b.instance,
		Collection: collection,
		Reason:     reason,
		At:         time.Now().UnixMilli(),
	})
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, data).Err()
}

// Subscribe 订阅其他实例的失效消息, 自身发出的消息被忽略
func (b *Broadcaster) Subscribe(ctx context.Context, onInvalidate func(InvalidationMessage)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrBroadcasterClosed
	}
	if b.pubsub != nil {
		return nil
	}

	pubsub := b.client.Subscribe(ctx, b.channel)
	// 等待订阅确认
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return err
	}

	subCtx, cancel := context.WithCancel(context.Background())
	b.pubsub = pubsub
	b.cancel = cancel

	go b.handleMessages(subCtx, pubsub, onInvalidate)

	logger.Info("subscribed to invalidation channel", zap.String("channel", b.channel))
	return nil
}

func (b *Broadcaster) handleMessages(ctx context.Context, pubsub *redis.PubSub, onInvalidate func(InvalidationMessage)) {
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var inv InvalidationMessage
			if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				logger.Warn("invalid invalidation message",
					zap.String("payload", msg.Payload),
					zap.Error(err))
				continue
			}
			if inv.Origin == b.instance {
				continue
			}
			onInvalidate(inv)
		}
	}
}

// Close 关闭订阅
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	if b.cancel != nil {
		b.cancel()
	}
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
