// Package classifier 将连续分值映射为离散风险等级
package classifier

import (
	"context"
	"math"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/metrics"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/snapshot"
)

// Tier 风险等级
type Tier string

const (
	TierLow      Tier = "low"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"
)

// Severity 子项严重度
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

const (
	modeAsync = "async"
	modeSync  = "sync"
)

// SnapshotProvider 快照来源
type SnapshotProvider interface {
	// Resolve 可能阻塞, 总是返回完整快照
	Resolve(ctx context.Context) *snapshot.Snapshot
	// LastKnownGood 不做任何 I/O
	LastKnownGood() *snapshot.Snapshot
	InvalidateLastKnownGood()
}

// Classifier 风险分级器
type Classifier struct {
	provider SnapshotProvider
}

// New 创建分级器
func New(provider SnapshotProvider) *Classifier {
	return &Classifier{provider: provider}
}

// Classify 异步形式: 未提供阈值时先完成一次解析
func (c *Classifier) Classify(ctx context.Context, score float64, thresholds *snapshot.RiskThresholds) Tier {
	th := c.thresholds(ctx, thresholds)
	tier := TierFor(score, th)
	metrics.RecordClassification(modeAsync, string(tier))
	return tier
}

// ClassifySync 同步形式: 使用最近可用快照, 从不阻塞
func (c *Classifier) ClassifySync(score float64) Tier {
	tier := TierFor(score, c.provider.LastKnownGood().RiskThresholds)
	metrics.RecordClassification(modeSync, string(tier))
	return tier
}

// ClassifyComponent 子项严重度, 异步形式
func (c *Classifier) ClassifyComponent(ctx context.Context, score float64, thresholds *snapshot.ComponentThresholds) Severity {
	var th snapshot.ComponentThresholds
	if thresholds != nil && thresholds.Valid() {
		th = *thresholds
	} else {
		th = c.provider.Resolve(ctx).ComponentThresholds
	}
	return SeverityFor(score, th)
}

// ClassifyComponentSync 子项严重度, 同步形式
func (c *Classifier) ClassifyComponentSync(score float64) Severity {
	return SeverityFor(score, c.provider.LastKnownGood().ComponentThresholds)
}

// InvalidateLastKnownGood 管理员修改阈值后调用, 下一次异步分级必定重新解析
func (c *Classifier) InvalidateLastKnownGood() {
	c.provider.InvalidateLastKnownGood()
}

// thresholds 调用方提供的阈值不合法时回退到解析结果
func (c *Classifier) thresholds(ctx context.Context, supplied *snapshot.RiskThresholds) snapshot.RiskThresholds {
	if supplied != nil && supplied.Valid() {
		return *supplied
	}
	return c.provider.Resolve(ctx).RiskThresholds
}

// TierFor 纯函数: score <= LowMax 为低, <= ModerateMax 为中, 否则为高
func TierFor(score float64, th snapshot.RiskThresholds) Tier {
	s := Clamp(score)
	switch {
	case s <= th.LowMax:
		return TierLow
	case s <= th.ModerateMax:
		return TierModerate
	default:
		return TierHigh
	}
}

// SeverityFor 纯函数, 与 TierFor 相同的双边界规则
func SeverityFor(score float64, th snapshot.ComponentThresholds) Severity {
	s := Clamp(score)
	switch {
	case s <= th.LowMax:
		return SeverityLow
	case s <= th.MediumMax:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// Clamp 将分值限制在 [0,100], NaN 视为 0
func Clamp(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Max(0, math.Min(100, score))
}
