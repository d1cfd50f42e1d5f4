package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
)

// ConfigEntryRepository 核心配置仓储
type ConfigEntryRepository struct {
	db *gorm.DB
}

// NewConfigEntryRepository 创建核心配置仓储
func NewConfigEntryRepository(db *gorm.DB) *ConfigEntryRepository {
	return &ConfigEntryRepository{db: db}
}

// ListActive 查询所有启用的配置
func (r *ConfigEntryRepository) ListActive(ctx context.Context) ([]*model.ConfigEntry, error) {
	var entries []*model.ConfigEntry
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("category ASC, config_key ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Upsert 按 (category, key) 插入或替换
func (r *ConfigEntryRepository) Upsert(ctx context.Context, entry *model.ConfigEntry) error {
	now := time.Now().UnixMilli()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	return r.db.WithContext(ctx).
		Clauses(upsertClause(
			[]string{"category", "config_key"},
			[]string{"config_value", "data_type", "description", "display_name", "active", "updated_by"},
		)).
		Create(entry).Error
}

// SetActive 启用或逻辑删除配置
func (r *ConfigEntryRepository) SetActive(ctx context.Context, category, key string, active bool, operator string) error {
	result := r.db.WithContext(ctx).
		Model(&model.ConfigEntry{}).
		Where("category = ? AND config_key = ?", category, key).
		Updates(map[string]interface{}{
			"active":     active,
			"updated_by": operator,
			"updated_at": time.Now().UnixMilli(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrConfigNotFound
	}
	return nil
}
