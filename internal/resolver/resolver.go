// Package resolver 合并远端配置与兜底基线, 管理缓存与最近可用快照
package resolver

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/cache"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/metrics"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/snapshot"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/source"
	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/circuitbreaker"
	bizerr "github.com/eidos-exchange/eidos/eidos-tunables/pkg/errors"
	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/logger"
)

// DefaultFetchTimeout 单个集合读取超时
const DefaultFetchTimeout = 3 * time.Second

// 解析结果, 用于指标
const (
	OutcomeCacheHit    = "cache_hit"
	OutcomeFresh       = "fresh"
	OutcomeFallback    = "fallback"
	OutcomeStale       = "stale"
	OutcomeStrictError = "strict_error"
)

// Options 解析器配置
type Options struct {
	// 单个集合读取超时
	FetchTimeout time.Duration
	// 读取失败时优先返回最近可用快照而不是兜底基线
	ServeStaleOnError bool
	// 读取失败时将兜底基线按正常 TTL 写入缓存
	CacheFallback bool
	// 远端读取熔断配置, 为空时使用默认配置
	Breaker *circuitbreaker.Config
	// 时间源, 为空时使用系统时间
	Clock cache.Clock
}

// Status 解析器状态
type Status struct {
	Cached        bool      `json:"cached"`
	Fresh         bool      `json:"fresh"`
	FetchedAt     time.Time `json:"fetched_at"`
	Origin        string    `json:"origin"`
	LastResolved  time.Time `json:"last_resolved"`
	BreakerState  string    `json:"breaker_state"`
	TTL           string    `json:"ttl"`
	FetchTimeout  string    `json:"fetch_timeout"`
	SourceName    string    `json:"source,omitempty"`
	HasKnownGood  bool      `json:"has_last_known_good"`
	ServeStale    bool      `json:"serve_stale_on_error"`
	CacheFallback bool      `json:"cache_fallback"`
}

// Resolver 唯一持有缓存与最近可用快照
type Resolver struct {
	reader   source.Reader
	cache    *cache.ConfigCache
	opts     Options
	breaker  *circuitbreaker.CircuitBreaker
	baseline *snapshot.Snapshot

	// publishMu 保证 "代数校验 + 写缓存 + 更新最近可用快照" 与失效互斥
	publishMu     sync.Mutex
	lastKnownGood atomic.Pointer[snapshot.Snapshot]
}

// New 创建解析器
func New(reader source.Reader, c *cache.ConfigCache, opts Options) *Resolver {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	breakerCfg := opts.Breaker
	if breakerCfg == nil {
		breakerCfg = circuitbreaker.DefaultConfig()
	}
	if breakerCfg.Now == nil {
		breakerCfg.Now = opts.Clock.Now
	}
	if c == nil {
		c = cache.New(cache.DefaultTTL, opts.Clock)
	}

	return &Resolver{
		reader:   reader,
		cache:    c,
		opts:     opts,
		breaker:  circuitbreaker.New(breakerCfg),
		baseline: snapshot.Baseline(),
	}
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Resolve 尽力而为的解析, 永远返回完整可用的快照
func (r *Resolver) Resolve(ctx context.Context) *snapshot.Snapshot {
	if s, ok := r.cache.Fresh(); ok {
		metrics.RecordResolution(OutcomeCacheHit)
		return s
	}

	gen := r.cache.Generation()
	rows, err := r.fetch(ctx, false)
	if err != nil {
		logger.Error("config resolution failed, serving fallback",
			zap.Bool("serve_stale", r.opts.ServeStaleOnError),
			zap.Error(err))

		if r.opts.ServeStaleOnError {
			if lkg := r.lastKnownGood.Load(); lkg != nil {
				metrics.RecordResolution(OutcomeStale)
				return lkg
			}
		}
		if r.opts.CacheFallback && ctx.Err() == nil {
			r.cache.PutIfGeneration(gen, r.baseline)
		}
		metrics.RecordResolution(OutcomeFallback)
		return r.baseline
	}

	s := snapshot.Merge(r.baseline, rows, r.opts.Clock.Now())
	r.publish(gen, s)
	metrics.RecordResolution(OutcomeFresh)
	return s
}

// ResolveStrict 管理员校验路径: 绕过缓存与熔断, 读取失败时返回 SourceUnavailable
func (r *Resolver) ResolveStrict(ctx context.Context) (*snapshot.Snapshot, error) {
	gen := r.cache.Generation()
	rows, err := r.fetch(ctx, true)
	if err != nil {
		metrics.RecordResolution(OutcomeStrictError)
		if !bizerr.IsSourceUnavailable(err) {
			err = bizerr.Wrap(bizerr.ErrSourceUnavailable, err)
		}
		return nil, err
	}

	s := snapshot.Merge(r.baseline, rows, r.opts.Clock.Now())
	r.publish(gen, s)
	metrics.RecordResolution(OutcomeFresh)
	return s, nil
}

// publish 写缓存并更新最近可用快照; 拉取期间发生过失效则都不更新
func (r *Resolver) publish(gen uint64, s *snapshot.Snapshot) {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()

	if !r.cache.PutIfGeneration(gen, s) {
		logger.Debug("discarding snapshot fetched before invalidation", zap.Uint64("generation", gen))
		return
	}
	r.lastKnownGood.Store(s)
	metrics.SnapshotResolvedAt.Set(float64(r.opts.Clock.Now().Unix()))
}

// fetch 并发读取五个集合, 任一失败则整体失败; strict 时不受熔断拦截
func (r *Resolver) fetch(ctx context.Context, strict bool) (snapshot.Rows, error) {
	if !strict {
		if err := r.breaker.Allow(); err != nil {
			return snapshot.Rows{}, bizerr.Wrap(bizerr.ErrSourceUnavailable, err)
		}
	}

	start := time.Now()
	var rows snapshot.Rows
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		rows.Core, err = read(gctx, r.opts.FetchTimeout, source.CollectionCore, r.reader.ReadCore)
		return err
	})
	g.Go(func() (err error) {
		rows.Segments, err = read(gctx, r.opts.FetchTimeout, source.CollectionSegments, r.reader.ReadSegments)
		return err
	})
	g.Go(func() (err error) {
		rows.Regions, err = read(gctx, r.opts.FetchTimeout, source.CollectionRegions, r.reader.ReadRegions)
		return err
	})
	g.Go(func() (err error) {
		rows.Scenarios, err = read(gctx, r.opts.FetchTimeout, source.CollectionScenarios, r.reader.ReadScenarios)
		return err
	})
	g.Go(func() (err error) {
		rows.EnumLists, err = read(gctx, r.opts.FetchTimeout, source.CollectionEnumLists, r.reader.ReadEnumLists)
		return err
	})

	err := g.Wait()
	metrics.ResolutionDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		// 调用方自己取消或超时不算配置源故障
		if ctx.Err() == nil {
			r.breaker.Failure()
		}
		return snapshot.Rows{}, err
	}
	if strict {
		r.breaker.Reset()
	} else {
		r.breaker.Success()
	}

	for _, name := range rows.Empty() {
		logger.Debug("collection not overridden",
			zap.String("collection", name),
			zap.Error(bizerr.ErrPartialCollection))
	}
	return rows, nil
}

// read 带超时读取单个集合, 超时按读取失败处理
func read[T any](ctx context.Context, timeout time.Duration, collection string, fn func(context.Context) ([]T, error)) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, bizerr.Wrapf(bizerr.ErrSourceUnavailable, err, "read %s", collection)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		rows []T
		err  error
	}
	done := make(chan result, 1)
	go func() {
		rows, err := fn(ctx)
		done <- result{rows: rows, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			metrics.RecordCollectionRead(collection, "error")
			return nil, bizerr.Wrapf(bizerr.ErrSourceUnavailable, res.err, "read %s", collection)
		}
		if len(res.rows) == 0 {
			metrics.RecordCollectionRead(collection, "empty")
		} else {
			metrics.RecordCollectionRead(collection, "ok")
		}
		return res.rows, nil
	case <-ctx.Done():
		metrics.RecordCollectionRead(collection, "error")
		return nil, bizerr.Wrapf(bizerr.ErrSourceUnavailable, ctx.Err(), "read %s", collection)
	}
}

// LastKnownGood 最近一次成功解析的快照, 从未成功时返回兜底基线; 不做任何 I/O
func (r *Resolver) LastKnownGood() *snapshot.Snapshot {
	if s := r.lastKnownGood.Load(); s != nil {
		return s
	}
	return r.baseline
}

// Invalidate 失效缓存并关闭熔断, 下一次 Resolve 必定读取远端
func (r *Resolver) Invalidate() {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()
	r.cache.Invalidate()
	r.breaker.Reset()
}

// InvalidateLastKnownGood 同时失效缓存与最近可用快照
func (r *Resolver) InvalidateLastKnownGood() {
	r.publishMu.Lock()
	defer r.publishMu.Unlock()
	r.cache.Invalidate()
	r.breaker.Reset()
	r.lastKnownGood.Store(nil)
}

// Baseline 内置兜底快照
func (r *Resolver) Baseline() *snapshot.Snapshot {
	return r.baseline
}

// Status 返回解析器当前状态
func (r *Resolver) Status() Status {
	st := Status{
		Origin:        string(snapshot.OriginBaseline),
		BreakerState:  r.breaker.State().String(),
		TTL:           r.cache.TTL().String(),
		FetchTimeout:  r.opts.FetchTimeout.String(),
		ServeStale:    r.opts.ServeStaleOnError,
		CacheFallback: r.opts.CacheFallback,
	}
	if named, ok := r.reader.(interface{ Name() string }); ok {
		st.SourceName = named.Name()
	}
	if rec, ok := r.cache.Get(); ok {
		st.Cached = true
		st.FetchedAt = rec.FetchedAt
		st.Origin = string(rec.Snapshot.Origin)
	}
	st.Fresh = r.cache.IsFresh()
	if lkg := r.lastKnownGood.Load(); lkg != nil {
		st.HasKnownGood = true
		st.LastResolved = lkg.ResolvedAt
	}
	return st
}
