package model

import "github.com/shopspring/decimal"

// RegionEntry 地区调整系数, 身份为 region_code
type RegionEntry struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	RegionCode       string          `gorm:"column:region_code;type:varchar(16);not null;uniqueIndex:uk_tunable_regions_identity" json:"region_code"`
	RegionName       string          `gorm:"column:region_name;type:varchar(128);not null" json:"region_name"`
	AdjustmentFactor decimal.Decimal `gorm:"column:adjustment_factor;type:decimal(20,8);not null" json:"adjustment_factor"`
	Active           bool            `gorm:"column:active;not null" json:"active"`
	UpdatedBy        string          `gorm:"column:updated_by;type:varchar(64)" json:"updated_by"`
	CreatedAt        int64           `gorm:"column:created_at;not null;autoCreateTime:milli" json:"created_at"`
	UpdatedAt        int64           `gorm:"column:updated_at;not null;autoUpdateTime:milli" json:"updated_at"`
}

// TableName 返回表名
func (RegionEntry) TableName() string {
	return "tunable_regions"
}
