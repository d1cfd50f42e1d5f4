package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
)

// RegionRepository 地区系数仓储
type RegionRepository struct {
	db *gorm.DB
}

// NewRegionRepository 创建地区系数仓储
func NewRegionRepository(db *gorm.DB) *RegionRepository {
	return &RegionRepository{db: db}
}

// ListActive 查询所有启用的地区
func (r *RegionRepository) ListActive(ctx context.Context) ([]*model.RegionEntry, error) {
	var entries []*model.RegionEntry
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("region_code ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Upsert 按 region_code 插入或替换
func (r *RegionRepository) Upsert(ctx context.Context, entry *model.RegionEntry) error {
	now := time.Now().UnixMilli()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	return r.db.WithContext(ctx).
		Clauses(upsertClause(
			[]string{"region_code"},
			[]string{"region_name", "adjustment_factor", "active", "updated_by"},
		)).
		Create(entry).Error
}
