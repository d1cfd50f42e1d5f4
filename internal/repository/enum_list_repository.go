package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
)

// EnumListRepository 枚举列表仓储
type EnumListRepository struct {
	db *gorm.DB
}

// NewEnumListRepository 创建枚举列表仓储
func NewEnumListRepository(db *gorm.DB) *EnumListRepository {
	return &EnumListRepository{db: db}
}

// ListActive 按列表名和 display_order 查询启用的枚举项
func (r *EnumListRepository) ListActive(ctx context.Context) ([]*model.EnumListItem, error) {
	var items []*model.EnumListItem
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("list_name ASC, display_order ASC, item_key ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Upsert 按 (list_name, item_key) 插入或替换, 供数据初始化使用
func (r *EnumListRepository) Upsert(ctx context.Context, item *model.EnumListItem) error {
	now := time.Now().UnixMilli()
	item.CreatedAt = now
	item.UpdatedAt = now

	return r.db.WithContext(ctx).
		Clauses(upsertClause(
			[]string{"list_name", "item_key"},
			[]string{"label", "display_order", "active"},
		)).
		Create(item).Error
}
