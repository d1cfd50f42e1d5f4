// Package mutator 单行配置写入: 校验, upsert, 失效缓存
package mutator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/metrics"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/snapshot"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/source"
	bizerr "github.com/eidos-exchange/eidos/eidos-tunables/pkg/errors"
	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/logger"
)

// 变更动作
const (
	ActionUpsert     = "upsert"
	ActionDeactivate = "deactivate"
)

// Invalidator 缓存失效
type Invalidator interface {
	Invalidate()
}

// ChangeEvent 配置变更事件
type ChangeEvent struct {
	EventID    string `json:"event_id"`
	Collection string `json:"collection"`
	Identity   string `json:"identity"`
	Action     string `json:"action"`
	Value      string `json:"value,omitempty"`
	Operator   string `json:"operator"`
	Timestamp  int64  `json:"timestamp"`
}

// CoreUpdate 核心配置写入
type CoreUpdate struct {
	Category    string         `json:"category"`
	Key         string         `json:"key"`
	Value       any            `json:"value"`
	DataType    model.DataType `json:"data_type"`
	Description string         `json:"description"`
	DisplayName string         `json:"display_name"`
	Operator    string         `json:"-"`
}

// SegmentUpdate 客群配置写入
type SegmentUpdate struct {
	Segment    string                  `json:"segment"`
	ConfigType model.SegmentConfigType `json:"config_type"`
	Value      decimal.Decimal         `json:"value"`
	Operator   string                  `json:"-"`
}

// RegionUpdate 地区系数写入
type RegionUpdate struct {
	RegionCode       string          `json:"region_code"`
	RegionName       string          `json:"region_name"`
	AdjustmentFactor decimal.Decimal `json:"adjustment_factor"`
	Operator         string          `json:"-"`
}

// ScenarioUpdate 场景预设写入
type ScenarioUpdate struct {
	ScenarioID          string              `json:"scenario_id"`
	Name                string              `json:"name"`
	MonthlyContribution decimal.Decimal     `json:"monthly_contribution"`
	TargetAge           int                 `json:"target_age"`
	RiskTolerance       model.RiskTolerance `json:"risk_tolerance"`
	AnnualGrowthRate    decimal.Decimal     `json:"annual_growth_rate"`
	Description         string              `json:"description"`
	DisplayOrder        int                 `json:"display_order"`
	Operator            string              `json:"-"`
}

// Options 变更器配置
type Options struct {
	// 写入失败后的重试次数, 0 表示不重试
	WriteRetries int
	// 首次重试等待, 之后指数增长
	RetryBackoff time.Duration
}

// Mutator 配置变更器
type Mutator struct {
	writer      source.Writer
	invalidator Invalidator
	opts        Options

	broadcast func(ctx context.Context, collection, reason string) error
	onChange  func(ctx context.Context, event *ChangeEvent) error
}

// New 创建变更器
func New(writer source.Writer, invalidator Invalidator, opts Options) *Mutator {
	if opts.WriteRetries < 0 {
		opts.WriteRetries = 0
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 100 * time.Millisecond
	}
	return &Mutator{
		writer:      writer,
		invalidator: invalidator,
		opts:        opts,
	}
}

// SetBroadcast 设置跨实例失效广播
func (m *Mutator) SetBroadcast(fn func(ctx context.Context, collection, reason string) error) {
	m.broadcast = fn
}

// SetChangeCallback 设置变更事件回调
func (m *Mutator) SetChangeCallback(fn func(ctx context.Context, event *ChangeEvent) error) {
	m.onChange = fn
}

// UpdateCore 写入一条核心配置
func (m *Mutator) UpdateCore(ctx context.Context, u CoreUpdate) error {
	entry, err := buildCoreEntry(u)
	if err != nil {
		metrics.RecordMutation(source.CollectionCore, "invalid")
		return err
	}
	return m.write(ctx, source.CollectionCore, u.Category+"/"+u.Key, ActionUpsert, entry.Value, u.Operator,
		func(ctx context.Context) error { return m.writer.UpsertCore(ctx, entry) })
}

// DeactivateCore 逻辑删除一条核心配置
func (m *Mutator) DeactivateCore(ctx context.Context, category, key, operator string) error {
	if strings.TrimSpace(category) == "" || strings.TrimSpace(key) == "" {
		metrics.RecordMutation(source.CollectionCore, "invalid")
		return bizerr.Validationf("category and key are required")
	}
	return m.write(ctx, source.CollectionCore, category+"/"+key, ActionDeactivate, "", operator,
		func(ctx context.Context) error { return m.writer.DeactivateCore(ctx, category, key, operator) })
}

// UpdateSegment 写入一条客群配置
func (m *Mutator) UpdateSegment(ctx context.Context, u SegmentUpdate) error {
	if strings.TrimSpace(u.Segment) == "" {
		metrics.RecordMutation(source.CollectionSegments, "invalid")
		return bizerr.Validationf("segment is required")
	}
	if !u.ConfigType.IsValid() {
		metrics.RecordMutation(source.CollectionSegments, "invalid")
		return bizerr.Validationf("unknown segment config type %q", u.ConfigType)
	}
	if u.ConfigType == model.SegmentAdjustmentFactor && !u.Value.IsPositive() {
		metrics.RecordMutation(source.CollectionSegments, "invalid")
		return bizerr.Validationf("adjustment factor must be positive")
	}

	entry := &model.SegmentEntry{
		Segment:    u.Segment,
		ConfigType: u.ConfigType,
		Value:      u.Value,
		Active:     true,
		UpdatedBy:  u.Operator,
	}
	return m.write(ctx, source.CollectionSegments, u.Segment+"/"+string(u.ConfigType), ActionUpsert, u.Value.String(), u.Operator,
		func(ctx context.Context) error { return m.writer.UpsertSegment(ctx, entry) })
}

// UpdateRegion 写入一条地区系数
func (m *Mutator) UpdateRegion(ctx context.Context, u RegionUpdate) error {
	code := strings.ToUpper(strings.TrimSpace(u.RegionCode))
	if code == "" {
		metrics.RecordMutation(source.CollectionRegions, "invalid")
		return bizerr.Validationf("region code is required")
	}
	if !u.AdjustmentFactor.IsPositive() {
		metrics.RecordMutation(source.CollectionRegions, "invalid")
		return bizerr.Validationf("adjustment factor must be positive")
	}

	entry := &model.RegionEntry{
		RegionCode:       code,
		RegionName:       u.RegionName,
		AdjustmentFactor: u.AdjustmentFactor,
		Active:           true,
		UpdatedBy:        u.Operator,
	}
	return m.write(ctx, source.CollectionRegions, code, ActionUpsert, u.AdjustmentFactor.String(), u.Operator,
		func(ctx context.Context) error { return m.writer.UpsertRegion(ctx, entry) })
}

// UpdateScenario 写入一条场景预设
func (m *Mutator) UpdateScenario(ctx context.Context, u ScenarioUpdate) error {
	if err := validateScenario(u); err != nil {
		metrics.RecordMutation(source.CollectionScenarios, "invalid")
		return err
	}

	preset := &model.ScenarioPreset{
		ScenarioID:          u.ScenarioID,
		Name:                u.Name,
		MonthlyContribution: u.MonthlyContribution,
		TargetAge:           u.TargetAge,
		RiskTolerance:       u.RiskTolerance,
		AnnualGrowthRate:    u.AnnualGrowthRate,
		Description:         u.Description,
		DisplayOrder:        u.DisplayOrder,
		Active:              true,
		UpdatedBy:           u.Operator,
	}
	return m.write(ctx, source.CollectionScenarios, u.ScenarioID, ActionUpsert, "", u.Operator,
		func(ctx context.Context) error { return m.writer.UpsertScenario(ctx, preset) })
}

func buildCoreEntry(u CoreUpdate) (*model.ConfigEntry, error) {
	if strings.TrimSpace(u.Category) == "" || strings.TrimSpace(u.Key) == "" {
		return nil, bizerr.Validationf("category and key are required")
	}
	if !u.DataType.IsValid() {
		return nil, bizerr.Validationf("unknown data type %q", u.DataType)
	}
	if u.Value == nil {
		return nil, bizerr.Validationf("value is required")
	}

	value, err := NormalizeValue(u.Value, u.DataType)
	if err != nil {
		return nil, err
	}

	if err := validateThreshold(u.Category, u.Key, u.DataType, value); err != nil {
		return nil, err
	}

	return &model.ConfigEntry{
		Category:    u.Category,
		Key:         u.Key,
		Value:       value,
		DataType:    u.DataType,
		Description: u.Description,
		DisplayName: u.DisplayName,
		Active:      true,
		UpdatedBy:   u.Operator,
	}, nil
}

// validateThreshold 阈值类配置必须是 [0,100) 内的数值
func validateThreshold(category, key string, dataType model.DataType, value string) error {
	switch category {
	case model.CategoryRiskThresholds:
		if key != snapshot.KeyLowMax && key != snapshot.KeyModerateMax {
			return bizerr.Validationf("unknown risk threshold key %q", key)
		}
	case model.CategoryComponentThresholds:
		if key != snapshot.KeyLowMax && key != snapshot.KeyMediumMax {
			return bizerr.Validationf("unknown component threshold key %q", key)
		}
	default:
		return nil
	}

	if dataType != model.DataTypeNumber {
		return bizerr.Validationf("threshold %s/%s must be a number", category, key)
	}
	d := decimal.RequireFromString(value)
	if d.IsNegative() || d.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return bizerr.Validationf("threshold %s/%s must be within [0, 100)", category, key)
	}
	return nil
}

func validateScenario(u ScenarioUpdate) error {
	switch {
	case strings.TrimSpace(u.ScenarioID) == "":
		return bizerr.Validationf("scenario id is required")
	case strings.TrimSpace(u.Name) == "":
		return bizerr.Validationf("scenario name is required")
	case !u.RiskTolerance.IsValid():
		return bizerr.Validationf("unknown risk tolerance %q", u.RiskTolerance)
	case u.MonthlyContribution.IsNegative():
		return bizerr.Validationf("monthly contribution must not be negative")
	case u.TargetAge < 18 || u.TargetAge > 100:
		return bizerr.Validationf("target age %d out of range", u.TargetAge)
	case u.DisplayOrder < 0:
		return bizerr.Validationf("display order must not be negative")
	}
	return nil
}

// write 执行写入, 成功后失效缓存并发出通知
func (m *Mutator) write(ctx context.Context, collection, identity, action, value, operator string, fn func(context.Context) error) error {
	log := logger.WithContext(ctx)
	if err := m.withRetry(ctx, fn); err != nil {
		metrics.RecordMutation(collection, "error")
		log.Error("config write failed",
			zap.String("collection", collection),
			zap.String("identity", identity),
			zap.String("action", action),
			zap.Error(err))
		return err
	}

	m.invalidator.Invalidate()
	metrics.RecordMutation(collection, "ok")
	metrics.RecordInvalidation("mutation")

	log.Info("config updated",
		zap.String("collection", collection),
		zap.String("identity", identity),
		zap.String("action", action),
		zap.String("operator", operator))

	if m.broadcast != nil {
		if err := m.broadcast(ctx, collection, action); err != nil {
			log.Warn("failed to broadcast invalidation",
				zap.String("collection", collection),
				zap.Error(err))
		}
	}
	if m.onChange != nil {
		event := &ChangeEvent{
			EventID:    uuid.NewString(),
			Collection: collection,
			Identity:   identity,
			Action:     action,
			Value:      value,
			Operator:   operator,
			Timestamp:  time.Now().UnixMilli(),
		}
		if err := m.onChange(ctx, event); err != nil {
			log.Warn("failed to publish config change event",
				zap.String("event_id", event.EventID),
				zap.Error(err))
		}
	}
	return nil
}

// withRetry 指数退避重试, 校验类和不存在错误不重试
func (m *Mutator) withRetry(ctx context.Context, fn func(context.Context) error) error {
	backoff := m.opts.RetryBackoff
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || attempt >= m.opts.WriteRetries || !retryable(err) {
			return err
		}
		logger.WithContext(ctx).Warn("config write failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (retry aborted: %v)", err, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}

func retryable(err error) bool {
	return !bizerr.IsValidation(err) && !bizerr.Is(err, bizerr.ErrNotFound)
}
