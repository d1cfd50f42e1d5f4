package model

import "github.com/shopspring/decimal"

// RiskTolerance 风险偏好
type RiskTolerance string

const (
	RiskToleranceConservative RiskTolerance = "conservative"
	RiskToleranceModerate     RiskTolerance = "moderate"
	RiskToleranceAggressive   RiskTolerance = "aggressive"
)

// IsValid 检查风险偏好是否合法
func (r RiskTolerance) IsValid() bool {
	switch r {
	case RiskToleranceConservative, RiskToleranceModerate, RiskToleranceAggressive:
		return true
	default:
		return false
	}
}

// ScenarioPreset 场景预设, 身份为 scenario_id, 按 display_order 升序展示
type ScenarioPreset struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ScenarioID          string          `gorm:"column:scenario_id;type:varchar(64);not null;uniqueIndex:uk_tunable_scenarios_identity" json:"scenario_id"`
	Name                string          `gorm:"column:name;type:varchar(128);not null" json:"name"`
	MonthlyContribution decimal.Decimal `gorm:"column:monthly_contribution;type:decimal(20,2);not null" json:"monthly_contribution"`
	TargetAge           int             `gorm:"column:target_age;not null" json:"target_age"`
	RiskTolerance       RiskTolerance   `gorm:"column:risk_tolerance;type:varchar(16);not null" json:"risk_tolerance"`
	AnnualGrowthRate    decimal.Decimal `gorm:"column:annual_growth_rate;type:decimal(10,6);not null" json:"annual_growth_rate"`
	Description         string          `gorm:"column:description;type:varchar(512)" json:"description"`
	DisplayOrder        int             `gorm:"column:display_order;not null;default:0;index" json:"display_order"`
	Active              bool            `gorm:"column:active;not null" json:"active"`
	UpdatedBy           string          `gorm:"column:updated_by;type:varchar(64)" json:"updated_by"`
	CreatedAt           int64           `gorm:"column:created_at;not null;autoCreateTime:milli" json:"created_at"`
	UpdatedAt           int64           `gorm:"column:updated_at;not null;autoUpdateTime:milli" json:"updated_at"`
}

// TableName 返回表名
func (ScenarioPreset) TableName() string {
	return "tunable_scenarios"
}
