// Package snapshot 定义合并后的配置快照与内置兜底基线
package snapshot

import (
	"time"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
)

// Origin 快照来源
type Origin string

const (
	OriginBaseline Origin = "baseline" // 内置兜底
	OriginRemote   Origin = "remote"   // 远端合并
)

// RiskThresholds 风险等级阈值, 需满足 0 <= LowMax < ModerateMax < 100
type RiskThresholds struct {
	LowMax      float64 `json:"low_max"`
	ModerateMax float64 `json:"moderate_max"`
}

// Valid 校验阈值区间
func (t RiskThresholds) Valid() bool {
	return validPair(t.LowMax, t.ModerateMax)
}

// ComponentThresholds 子项严重度阈值
type ComponentThresholds struct {
	LowMax    float64 `json:"low_max"`
	MediumMax float64 `json:"medium_max"`
}

// Valid 校验阈值区间
func (t ComponentThresholds) Valid() bool {
	return validPair(t.LowMax, t.MediumMax)
}

func validPair(low, high float64) bool {
	return low >= 0 && low < high && high < 100
}

// Region 地区系数
type Region struct {
	Name   string  `json:"name"`
	Factor float64 `json:"factor"`
}

// Scenario 场景预设
type Scenario struct {
	ID                  string              `json:"id"`
	Name                string              `json:"name"`
	MonthlyContribution float64             `json:"monthly_contribution"`
	TargetAge           int                 `json:"target_age"`
	RiskTolerance       model.RiskTolerance `json:"risk_tolerance"`
	AnnualGrowthRate    float64             `json:"annual_growth_rate"`
	Description         string              `json:"description"`
	DisplayOrder        int                 `json:"display_order"`
}

// EnumItem 枚举项
type EnumItem struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Snapshot 一次解析得到的完整配置
// 快照发布后不可修改, 刷新时整体替换
type Snapshot struct {
	RiskWeights         map[string]float64              `json:"risk_weights"`
	RiskThresholds      RiskThresholds                  `json:"risk_thresholds"`
	ComponentThresholds ComponentThresholds             `json:"component_thresholds"`
	RateTable           map[string]float64              `json:"rate_table"`
	GrowthRates         map[model.RiskTolerance]float64 `json:"growth_rates"`
	SegmentBaselines    map[string]float64              `json:"segment_baselines"`
	SegmentFactors      map[string]float64              `json:"segment_factors"`
	RegionFactors       map[string]Region               `json:"region_factors"`
	Scenarios           []Scenario                      `json:"scenarios"`
	EnumLists           map[string][]EnumItem           `json:"enum_lists"`

	Origin     Origin    `json:"origin"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Clone 深拷贝
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.RiskWeights = cloneMap(s.RiskWeights)
	out.RateTable = cloneMap(s.RateTable)
	out.GrowthRates = cloneMap(s.GrowthRates)
	out.SegmentBaselines = cloneMap(s.SegmentBaselines)
	out.SegmentFactors = cloneMap(s.SegmentFactors)
	out.RegionFactors = cloneMap(s.RegionFactors)
	out.Scenarios = append([]Scenario(nil), s.Scenarios...)
	out.EnumLists = make(map[string][]EnumItem, len(s.EnumLists))
	for name, items := range s.EnumLists {
		out.EnumLists[name] = append([]EnumItem(nil), items...)
	}
	return &out
}

// GrowthRate 按风险偏好取年化增长率
func (s *Snapshot) GrowthRate(tolerance model.RiskTolerance) float64 {
	if rate, ok := s.GrowthRates[tolerance]; ok {
		return rate
	}
	return s.GrowthRates[model.RiskToleranceModerate]
}

// RegionFactor 取地区系数, 未知地区返回 1
func (s *Snapshot) RegionFactor(code string) float64 {
	if region, ok := s.RegionFactors[code]; ok {
		return region.Factor
	}
	return 1
}

// SegmentFactor 取客群调整系数, 未知客群返回 1
func (s *Snapshot) SegmentFactor(segment string) float64 {
	if factor, ok := s.SegmentFactors[segment]; ok {
		return factor
	}
	return 1
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
