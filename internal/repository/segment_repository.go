package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
)

// SegmentRepository 客群配置仓储
type SegmentRepository struct {
	db *gorm.DB
}

// NewSegmentRepository 创建客群配置仓储
func NewSegmentRepository(db *gorm.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// ListActive 查询所有启用的客群配置
func (r *SegmentRepository) ListActive(ctx context.Context) ([]*model.SegmentEntry, error) {
	var entries []*model.SegmentEntry
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("segment ASC, config_type ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Upsert 按 (segment, config_type) 插入或替换
func (r *SegmentRepository) Upsert(ctx context.Context, entry *model.SegmentEntry) error {
	now := time.Now().UnixMilli()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	return r.db.WithContext(ctx).
		Clauses(upsertClause(
			[]string{"segment", "config_type"},
			[]string{"value", "active", "updated_by"},
		)).
		Create(entry).Error
}
