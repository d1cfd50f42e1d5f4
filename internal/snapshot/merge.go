package snapshot

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/logger"
)

// Rows 五个远端集合的启用行
type Rows struct {
	Core      []*model.ConfigEntry
	Segments  []*model.SegmentEntry
	Regions   []*model.RegionEntry
	Scenarios []*model.ScenarioPreset
	EnumLists []*model.EnumListItem
}

// Overrides 按配置段的映射结果
type Overrides struct {
	RiskWeights         Override[map[string]float64]
	RiskThresholds      Override[RiskThresholds]
	ComponentThresholds Override[ComponentThresholds]
	RateTable           Override[map[string]float64]
	GrowthRates         Override[map[model.RiskTolerance]float64]
	SegmentBaselines    Override[map[string]float64]
	SegmentFactors      Override[map[string]float64]
	RegionFactors       Override[map[string]Region]
	Scenarios           Override[[]Scenario]
	EnumLists           Override[map[string][]EnumItem]
}

// Merge 以基线深拷贝为起点, 按段应用远端覆盖; 五个集合都为空时返回与基线完全相同的副本
func Merge(base *Snapshot, rows Rows, resolvedAt time.Time) *Snapshot {
	if rows.AllEmpty() {
		return base.Clone()
	}

	o := MapRows(base, rows)
	out := base.Clone()

	out.RiskWeights = o.RiskWeights.Or(out.RiskWeights)
	out.RiskThresholds = o.RiskThresholds.Or(out.RiskThresholds)
	out.ComponentThresholds = o.ComponentThresholds.Or(out.ComponentThresholds)
	out.RateTable = o.RateTable.Or(out.RateTable)
	out.GrowthRates = o.GrowthRates.Or(out.GrowthRates)
	out.SegmentBaselines = o.SegmentBaselines.Or(out.SegmentBaselines)
	out.SegmentFactors = o.SegmentFactors.Or(out.SegmentFactors)
	out.RegionFactors = o.RegionFactors.Or(out.RegionFactors)
	out.Scenarios = o.Scenarios.Or(out.Scenarios)
	out.EnumLists = o.EnumLists.Or(out.EnumLists)

	out.Origin = OriginRemote
	out.ResolvedAt = resolvedAt
	return out
}

// MapRows 将远端行映射为各段覆盖, 不修改 base
func MapRows(base *Snapshot, rows Rows) Overrides {
	var o Overrides

	byCategory := make(map[string][]*model.ConfigEntry)
	for _, entry := range rows.Core {
		byCategory[entry.Category] = append(byCategory[entry.Category], entry)
	}
	for category := range byCategory {
		switch category {
		case model.CategoryRiskWeights, model.CategoryRiskThresholds, model.CategoryComponentThresholds,
			model.CategoryRateTable, model.CategoryGrowthRates:
		default:
			logger.Debug("ignoring unknown config category", zap.String("category", category))
		}
	}

	o.RiskWeights = mapNumbers(base.RiskWeights, byCategory[model.CategoryRiskWeights])
	o.RateTable = mapNumbers(base.RateTable, byCategory[model.CategoryRateTable])
	o.RiskThresholds = mapRiskThresholds(base.RiskThresholds, byCategory[model.CategoryRiskThresholds])
	o.ComponentThresholds = mapComponentThresholds(base.ComponentThresholds, byCategory[model.CategoryComponentThresholds])
	o.GrowthRates = mapGrowthRates(base.GrowthRates, byCategory[model.CategoryGrowthRates])

	o.SegmentBaselines, o.SegmentFactors = mapSegments(base, rows.Segments)
	o.RegionFactors = mapRegions(base.RegionFactors, rows.Regions)
	o.Scenarios = mapScenarios(rows.Scenarios)
	o.EnumLists = mapEnumLists(base.EnumLists, rows.EnumLists)
	return o
}

// parseNumber 解析核心配置的数值
func parseNumber(entry *model.ConfigEntry) (float64, bool) {
	d, err := decimal.NewFromString(entry.Value)
	if err != nil {
		logger.Warn("config value is not numeric, keeping default",
			zap.String("category", entry.Category),
			zap.String("key", entry.Key),
			zap.String("value", entry.Value),
			zap.Error(err))
		return 0, false
	}
	return d.InexactFloat64(), true
}

// mapNumbers 在基线键集合上应用数值覆盖, 未知键忽略
func mapNumbers(base map[string]float64, entries []*model.ConfigEntry) Override[map[string]float64] {
	out := cloneMap(base)
	applied := 0
	for _, entry := range entries {
		if _, known := base[entry.Key]; !known {
			logger.Debug("ignoring unknown config key",
				zap.String("category", entry.Category),
				zap.String("key", entry.Key))
			continue
		}
		v, ok := parseNumber(entry)
		if !ok {
			continue
		}
		out[entry.Key] = v
		applied++
	}
	if applied == 0 {
		return UseBaseline[map[string]float64]()
	}
	return Overridden(out)
}

func mapRiskThresholds(base RiskThresholds, entries []*model.ConfigEntry) Override[RiskThresholds] {
	out := base
	applied := 0
	for _, entry := range entries {
		var target *float64
		switch entry.Key {
		case KeyLowMax:
			target = &out.LowMax
		case KeyModerateMax:
			target = &out.ModerateMax
		default:
			logger.Debug("ignoring unknown risk threshold key", zap.String("key", entry.Key))
			continue
		}
		if v, ok := parseNumber(entry); ok {
			*target = v
			applied++
		}
	}
	if applied == 0 {
		return UseBaseline[RiskThresholds]()
	}
	if !out.Valid() {
		logger.Warn("remote risk thresholds violate ordering, keeping defaults",
			zap.Float64("low_max", out.LowMax),
			zap.Float64("moderate_max", out.ModerateMax))
		return UseBaseline[RiskThresholds]()
	}
	return Overridden(out)
}

func mapComponentThresholds(base ComponentThresholds, entries []*model.ConfigEntry) Override[ComponentThresholds] {
	out := base
	applied := 0
	for _, entry := range entries {
		var target *float64
		switch entry.Key {
		case KeyLowMax:
			target = &out.LowMax
		case KeyMediumMax:
			target = &out.MediumMax
		default:
			logger.Debug("ignoring unknown component threshold key", zap.String("key", entry.Key))
			continue
		}
		if v, ok := parseNumber(entry); ok {
			*target = v
			applied++
		}
	}
	if applied == 0 {
		return UseBaseline[ComponentThresholds]()
	}
	if !out.Valid() {
		logger.Warn("remote component thresholds violate ordering, keeping defaults",
			zap.Float64("low_max", out.LowMax),
			zap.Float64("medium_max", out.MediumMax))
		return UseBaseline[ComponentThresholds]()
	}
	return Overridden(out)
}

func mapGrowthRates(base map[model.RiskTolerance]float64, entries []*model.ConfigEntry) Override[map[model.RiskTolerance]float64] {
	out := cloneMap(base)
	applied := 0
	for _, entry := range entries {
		tolerance := model.RiskTolerance(entry.Key)
		if !tolerance.IsValid() {
			logger.Debug("ignoring unknown growth rate key", zap.String("key", entry.Key))
			continue
		}
		if v, ok := parseNumber(entry); ok {
			out[tolerance] = v
			applied++
		}
	}
	if applied == 0 {
		return UseBaseline[map[model.RiskTolerance]float64]()
	}
	return Overridden(out)
}

// mapSegments 客群集合同时产出基准值和调整系数两个段
func mapSegments(base *Snapshot, entries []*model.SegmentEntry) (Override[map[string]float64], Override[map[string]float64]) {
	baselines := cloneMap(base.SegmentBaselines)
	factors := cloneMap(base.SegmentFactors)
	var nBaselines, nFactors int

	for _, entry := range entries {
		switch entry.ConfigType {
		case model.SegmentBaselineValue:
			baselines[entry.Segment] = entry.Value.InexactFloat64()
			nBaselines++
		case model.SegmentAdjustmentFactor:
			factors[entry.Segment] = entry.Value.InexactFloat64()
			nFactors++
		default:
			logger.Debug("ignoring unknown segment config type",
				zap.String("segment", entry.Segment),
				zap.String("config_type", string(entry.ConfigType)))
		}
	}

	outBaselines := UseBaseline[map[string]float64]()
	if nBaselines > 0 {
		outBaselines = Overridden(baselines)
	}
	outFactors := UseBaseline[map[string]float64]()
	if nFactors > 0 {
		outFactors = Overridden(factors)
	}
	return outBaselines, outFactors
}

func mapRegions(base map[string]Region, entries []*model.RegionEntry) Override[map[string]Region] {
	if len(entries) == 0 {
		return UseBaseline[map[string]Region]()
	}
	out := cloneMap(base)
	for _, entry := range entries {
		name := entry.RegionName
		if name == "" {
			name = base[entry.RegionCode].Name
		}
		out[entry.RegionCode] = Region{
			Name:   name,
			Factor: entry.AdjustmentFactor.InexactFloat64(),
		}
	}
	return Overridden(out)
}

// mapScenarios 远端场景列表整体替换基线, 按 display_order 排序
func mapScenarios(presets []*model.ScenarioPreset) Override[[]Scenario] {
	out := make([]Scenario, 0, len(presets))
	for _, p := range presets {
		if !p.RiskTolerance.IsValid() {
			logger.Warn("skipping scenario with unknown risk tolerance",
				zap.String("scenario_id", p.ScenarioID),
				zap.String("risk_tolerance", string(p.RiskTolerance)))
			continue
		}
		out = append(out, Scenario{
			ID:                  p.ScenarioID,
			Name:                p.Name,
			MonthlyContribution: p.MonthlyContribution.InexactFloat64(),
			TargetAge:           p.TargetAge,
			RiskTolerance:       p.RiskTolerance,
			AnnualGrowthRate:    p.AnnualGrowthRate.InexactFloat64(),
			Description:         p.Description,
			DisplayOrder:        p.DisplayOrder,
		})
	}
	if len(out) == 0 {
		return UseBaseline[[]Scenario]()
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return Overridden(out)
}

// mapEnumLists 远端出现的列表整体替换同名基线列表
func mapEnumLists(base map[string][]EnumItem, items []*model.EnumListItem) Override[map[string][]EnumItem] {
	if len(items) == 0 {
		return UseBaseline[map[string][]EnumItem]()
	}

	sorted := append([]*model.EnumListItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ListName != sorted[j].ListName {
			return sorted[i].ListName < sorted[j].ListName
		}
		return sorted[i].DisplayOrder < sorted[j].DisplayOrder
	})

	remote := make(map[string][]EnumItem)
	for _, item := range sorted {
		remote[item.ListName] = append(remote[item.ListName], EnumItem{Key: item.ItemKey, Label: item.Label})
	}

	out := make(map[string][]EnumItem, len(base)+len(remote))
	for name, list := range base {
		out[name] = append([]EnumItem(nil), list...)
	}
	for name, list := range remote {
		out[name] = list
	}
	return Overridden(out)
}

// AllEmpty 五个集合都没有返回任何行
func (r Rows) AllEmpty() bool {
	return len(r.Core) == 0 && len(r.Segments) == 0 && len(r.Regions) == 0 &&
		len(r.Scenarios) == 0 && len(r.EnumLists) == 0
}

// Empty 报告哪些集合没有返回任何行
func (r Rows) Empty() []string {
	var empty []string
	if len(r.Core) == 0 {
		empty = append(empty, "core")
	}
	if len(r.Segments) == 0 {
		empty = append(empty, "segments")
	}
	if len(r.Regions) == 0 {
		empty = append(empty, "regions")
	}
	if len(r.Scenarios) == 0 {
		empty = append(empty, "scenarios")
	}
	if len(r.EnumLists) == 0 {
		empty = append(empty, "enum_lists")
	}
	return empty
}
