package model

// EnumListItem 有序枚举列表项, 身份为 (list_name, item_key)
type EnumListItem struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	ListName     string `gorm:"column:list_name;type:varchar(64);not null;uniqueIndex:uk_tunable_enum_items_identity" json:"list_name"`
	ItemKey      string `gorm:"column:item_key;type:varchar(64);not null;uniqueIndex:uk_tunable_enum_items_identity" json:"item_key"`
	Label        string `gorm:"column:label;type:varchar(128);not null" json:"label"`
	DisplayOrder int    `gorm:"column:display_order;not null;default:0" json:"display_order"`
	Active       bool   `gorm:"column:active;not null" json:"active"`
	CreatedAt    int64  `gorm:"column:created_at;not null;autoCreateTime:milli" json:"created_at"`
	UpdatedAt    int64  `gorm:"column:updated_at;not null;autoUpdateTime:milli" json:"updated_at"`
}

// TableName 返回表名
func (EnumListItem) TableName() string {
	return "tunable_enum_items"
}
