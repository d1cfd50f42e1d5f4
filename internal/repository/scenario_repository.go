package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
)

// ScenarioRepository 场景预设仓储
type ScenarioRepository struct {
	db *gorm.DB
}

// NewScenarioRepository 创建场景预设仓储
func NewScenarioRepository(db *gorm.DB) *ScenarioRepository {
	return &ScenarioRepository{db: db}
}

// ListActive 按 display_order 升序查询启用的场景
func (r *ScenarioRepository) ListActive(ctx context.Context) ([]*model.ScenarioPreset, error) {
	var presets []*model.ScenarioPreset
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("display_order ASC, scenario_id ASC").
		Find(&presets).Error
	if err != nil {
		return nil, err
	}
	return presets, nil
}

// Upsert 按 scenario_id 插入或替换
func (r *ScenarioRepository) Upsert(ctx context.Context, preset *model.ScenarioPreset) error {
	now := time.Now().UnixMilli()
	preset.CreatedAt = now
	preset.UpdatedAt = now

	return r.db.WithContext(ctx).
		Clauses(upsertClause(
			[]string{"scenario_id"},
			[]string{
				"name", "monthly_contribution", "target_age", "risk_tolerance",
				"annual_growth_rate", "description", "display_order", "active", "updated_by",
			},
		)).
		Create(preset).Error
}
