package snapshot

import (
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
)

// 核心配置键
const (
	KeyLowMax      = "low_max"
	KeyModerateMax = "moderate_max"
	KeyMediumMax   = "medium_max"
)

// baseline 内置兜底配置, 覆盖所有可能用到的键
var baseline = Snapshot{
	RiskWeights: map[string]float64{
		"age":                0.15,
		"income_stability":   0.20,
		"savings_rate":       0.20,
		"debt_ratio":         0.15,
		"investment_horizon": 0.15,
		"emergency_fund":     0.15,
	},
	RiskThresholds: RiskThresholds{
		LowMax:      39,
		ModerateMax: 69,
	},
	ComponentThresholds: ComponentThresholds{
		LowMax:    33,
		MediumMax: 66,
	},
	RateTable: map[string]float64{
		"inflation":         0.03,
		"wage_growth":       0.035,
		"contribution_rate": 0.115,
		"contribution_tax":  0.15,
		"safe_withdrawal":   0.04,
		"life_expectancy":   87,
	},
	GrowthRates: map[model.RiskTolerance]float64{
		model.RiskToleranceConservative: 0.045,
		model.RiskToleranceModerate:     0.065,
		model.RiskToleranceAggressive:   0.085,
	},
	SegmentBaselines: map[string]float64{
		"early_career": 25000,
		"mid_career":   120000,
		"pre_retiree":  350000,
		"retiree":      450000,
	},
	SegmentFactors: map[string]float64{
		"early_career": 1.0,
		"mid_career":   1.0,
		"pre_retiree":  0.95,
		"retiree":      0.9,
	},
	RegionFactors: map[string]Region{
		"NSW": {Name: "New South Wales", Factor: 1.05},
		"VIC": {Name: "Victoria", Factor: 1.03},
		"QLD": {Name: "Queensland", Factor: 1.0},
		"WA":  {Name: "Western Australia", Factor: 1.02},
		"SA":  {Name: "South Australia", Factor: 0.97},
		"TAS": {Name: "Tasmania", Factor: 0.95},
		"ACT": {Name: "Australian Capital Territory", Factor: 1.04},
		"NT":  {Name: "Northern Territory", Factor: 0.98},
	},
	Scenarios: []Scenario{
		{
			ID:                  "steady_saver",
			Name:                "Steady Saver",
			MonthlyContribution: 300,
			TargetAge:           67,
			RiskTolerance:       model.RiskToleranceConservative,
			AnnualGrowthRate:    0.045,
			Description:         "Modest contributions into a capital-stable mix",
			DisplayOrder:        0,
		},
		{
			ID:                  "balanced_builder",
			Name:                "Balanced Builder",
			MonthlyContribution: 600,
			TargetAge:           65,
			RiskTolerance:       model.RiskToleranceModerate,
			AnnualGrowthRate:    0.065,
			Description:         "Regular contributions into a balanced option",
			DisplayOrder:        1,
		},
		{
			ID:                  "growth_seeker",
			Name:                "Growth Seeker",
			MonthlyContribution: 1000,
			TargetAge:           60,
			RiskTolerance:       model.RiskToleranceAggressive,
			AnnualGrowthRate:    0.085,
			Description:         "High contributions into a growth-heavy option",
			DisplayOrder:        2,
		},
	},
	EnumLists: map[string][]EnumItem{
		"employment_status": {
			{Key: "full_time", Label: "Full-time"},
			{Key: "part_time", Label: "Part-time"},
			{Key: "self_employed", Label: "Self-employed"},
			{Key: "not_working", Label: "Not working"},
			{Key: "retired", Label: "Retired"},
		},
		"relationship_status": {
			{Key: "single", Label: "Single"},
			{Key: "partnered", Label: "Partnered"},
		},
		"risk_tolerance": {
			{Key: string(model.RiskToleranceConservative), Label: "Conservative"},
			{Key: string(model.RiskToleranceModerate), Label: "Moderate"},
			{Key: string(model.RiskToleranceAggressive), Label: "Aggressive"},
		},
	},
	Origin: OriginBaseline,
}

// Baseline 返回内置兜底配置的独立副本
func Baseline() *Snapshot {
	return baseline.Clone()
}
