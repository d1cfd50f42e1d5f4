package model

import "github.com/shopspring/decimal"

// SegmentConfigType 客群配置类型
type SegmentConfigType string

const (
	SegmentBaselineValue    SegmentConfigType = "baselineValue"    // 基准值
	SegmentAdjustmentFactor SegmentConfigType = "adjustmentFactor" // 调整系数
)

// IsValid 检查客群配置类型是否合法
func (t SegmentConfigType) IsValid() bool {
	return t == SegmentBaselineValue || t == SegmentAdjustmentFactor
}

// SegmentEntry 客群配置, 身份为 (segment, config_type)
type SegmentEntry struct {
	ID         int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	Segment    string            `gorm:"column:segment;type:varchar(64);not null;uniqueIndex:uk_tunable_segments_identity" json:"segment"`
	ConfigType SegmentConfigType `gorm:"column:config_type;type:varchar(32);not null;uniqueIndex:uk_tunable_segments_identity" json:"config_type"`
	Value      decimal.Decimal   `gorm:"column:value;type:decimal(20,8);not null" json:"value"`
	Active     bool              `gorm:"column:active;not null" json:"active"`
	UpdatedBy  string            `gorm:"column:updated_by;type:varchar(64)" json:"updated_by"`
	CreatedAt  int64             `gorm:"column:created_at;not null;autoCreateTime:milli" json:"created_at"`
	UpdatedAt  int64             `gorm:"column:updated_at;not null;autoUpdateTime:milli" json:"updated_at"`
}

// TableName 返回表名
func (SegmentEntry) TableName() string {
	return "tunable_segments"
}
