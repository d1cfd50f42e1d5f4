// Package model 定义可调参数的数据模型
package model

// DataType 配置值类型
type DataType string

const (
	DataTypeNumber  DataType = "number"
	DataTypeBoolean DataType = "boolean"
	DataTypeString  DataType = "string"
	DataTypeObject  DataType = "object"
)

// IsValid 检查值类型是否合法
func (t DataType) IsValid() bool {
	switch t {
	case DataTypeNumber, DataTypeBoolean, DataTypeString, DataTypeObject:
		return true
	default:
		return false
	}
}

// 核心配置分类
const (
	CategoryRiskWeights         = "risk_weights"
	CategoryRiskThresholds      = "risk_thresholds"
	CategoryComponentThresholds = "component_thresholds"
	CategoryRateTable           = "rate_table"
	CategoryGrowthRates         = "growth_rates"
)

// ConfigEntry 核心标量配置, 身份为 (category, key)
type ConfigEntry struct {
	ID          int64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Category    string   `gorm:"column:category;type:varchar(64);not null;uniqueIndex:uk_tunable_configs_identity" json:"category"`
	Key         string   `gorm:"column:config_key;type:varchar(128);not null;uniqueIndex:uk_tunable_configs_identity" json:"key"`
	Value       string   `gorm:"column:config_value;type:text;not null" json:"value"` // 按 DataType 规范化后的文本
	DataType    DataType `gorm:"column:data_type;type:varchar(16);not null;default:string" json:"data_type"`
	Description string   `gorm:"column:description;type:varchar(512)" json:"description"`
	DisplayName string   `gorm:"column:display_name;type:varchar(128)" json:"display_name"`
	Active      bool     `gorm:"column:active;not null" json:"active"`
	UpdatedBy   string   `gorm:"column:updated_by;type:varchar(64)" json:"updated_by"`
	CreatedAt   int64    `gorm:"column:created_at;not null;autoCreateTime:milli" json:"created_at"`
	UpdatedAt   int64    `gorm:"column:updated_at;not null;autoUpdateTime:milli" json:"updated_at"`
}

// TableName 返回表名
func (ConfigEntry) TableName() string {
	return "tunable_configs"
}
