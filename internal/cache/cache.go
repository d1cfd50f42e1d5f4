// Package cache 配置快照的进程内 TTL 缓存
package cache

import (
	"sync"
	"time"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/snapshot"
)

// DefaultTTL 默认缓存有效期
const DefaultTTL = 5 * time.Minute

// Clock 时间源
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Record 缓存记录, 存入后不再修改
type Record struct {
	Snapshot  *snapshot.Snapshot
	FetchedAt time.Time
}

// ConfigCache 单写多读的快照缓存
type ConfigCache struct {
	ttl   time.Duration
	clock Clock

	mu         sync.RWMutex
	record     *Record
	generation uint64
}

// New 创建缓存, clock 为空时使用系统时间
func New(ttl time.Duration, clock Clock) *ConfigCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = wallClock{}
	}
	return &ConfigCache{ttl: ttl, clock: clock}
}

// TTL 返回缓存有效期
func (c *ConfigCache) TTL() time.Duration {
	return c.ttl
}

// Get 返回当前记录
func (c *ConfigCache) Get() (*Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.record, c.record != nil
}

// IsFresh 当前记录是否在有效期内, 空记录永远不新鲜
func (c *ConfigCache) IsFresh() bool {
	_, ok := c.Fresh()
	return ok
}

// Fresh 在同一把读锁下判断新鲜度并返回快照
func (c *ConfigCache) Fresh() (*snapshot.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.record == nil {
		return nil, false
	}
	if c.clock.Now().Sub(c.record.FetchedAt) >= c.ttl {
		return nil, false
	}
	return c.record.Snapshot, true
}

// Put 无条件写入
func (c *ConfigCache) Put(s *snapshot.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = &Record{Snapshot: s, FetchedAt: c.clock.Now()}
}

// PutIfGeneration 仅当 gen 之后没有发生失效时写入
func (c *ConfigCache) PutIfGeneration(gen uint64, s *snapshot.Snapshot) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.record = &Record{Snapshot: s, FetchedAt: c.clock.Now()}
	return true
}

// Generation 返回当前失效代数, 拉取前读取
func (c *ConfigCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Invalidate 清空记录; 返回后任何读取都不会命中失效前的快照
func (c *ConfigCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.record = nil
	c.generation++
}
