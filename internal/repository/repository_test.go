package repository

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
)

// setupTestDB 创建测试数据库
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库每个连接独立, 限制为单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.ConfigEntry{},
		&model.SegmentEntry{},
		&model.RegionEntry{},
		&model.ScenarioPreset{},
		&model.EnumListItem{},
	)
	require.NoError(t, err)
	return db
}

// findOne 按条件直接查询单行, 用于校验写入结果
func findOne[T any](t *testing.T, db *gorm.DB, query string, args ...interface{}) (*T, error) {
	t.Helper()
	var row T
	if err := db.Where(query, args...).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func TestConfigEntryRepository_UpsertReplacesNonIdentityFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewConfigEntryRepository(db)
	ctx := context.Background()

	first := &model.ConfigEntry{
		Category:    model.CategoryRiskThresholds,
		Key:         "low_max",
		Value:       "39",
		DataType:    model.DataTypeNumber,
		DisplayName: "Low max",
		Active:      true,
		UpdatedBy:   "alice",
	}
	require.NoError(t, repo.Upsert(ctx, first))

	second := &model.ConfigEntry{
		Category:  model.CategoryRiskThresholds,
		Key:       "low_max",
		Value:     "35",
		DataType:  model.DataTypeNumber,
		Active:    true,
		UpdatedBy: "bob",
	}
	require.NoError(t, repo.Upsert(ctx, second))

	var count int64
	db.Model(&model.ConfigEntry{}).Count(&count)
	assert.Equal(t, int64(1), count)

	got, err := findOne[model.ConfigEntry](t, db, "category = ? AND config_key = ?", model.CategoryRiskThresholds, "low_max")
	require.NoError(t, err)
	assert.Equal(t, "35", got.Value)
	assert.Equal(t, "bob", got.UpdatedBy)
	assert.Empty(t, got.DisplayName)
}

func TestConfigEntryRepository_UpsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewConfigEntryRepository(db)
	ctx := context.Background()

	upsert := func() {
		require.NoError(t, repo.Upsert(ctx, &model.ConfigEntry{
			Category: model.CategoryRateTable,
			Key:      "base_rate",
			Value:    "0.045",
			DataType: model.DataTypeNumber,
			Active:   true,
		}))
	}
	upsert()
	before, err := findOne[model.ConfigEntry](t, db, "category = ? AND config_key = ?", model.CategoryRateTable, "base_rate")
	require.NoError(t, err)
	upsert()
	after, err := findOne[model.ConfigEntry](t, db, "category = ? AND config_key = ?", model.CategoryRateTable, "base_rate")
	require.NoError(t, err)

	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Value, after.Value)
	assert.Equal(t, before.DataType, after.DataType)
	assert.Equal(t, before.Active, after.Active)
}

func TestConfigEntryRepository_ListActiveSkipsInactive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewConfigEntryRepository(db)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Upsert(ctx, &model.ConfigEntry{
			Category: model.CategoryRiskWeights,
			Key:      key,
			Value:    "1",
			DataType: model.DataTypeNumber,
			Active:   true,
		}))
	}
	require.NoError(t, repo.SetActive(ctx, model.CategoryRiskWeights, "b", false, "admin"))

	entries, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Key)
	assert.Equal(t, "c", entries[1].Key)
}

func TestConfigEntryRepository_SetActiveUnknownKey(t *testing.T) {
	db := setupTestDB(t)
	repo := NewConfigEntryRepository(db)

	err := repo.SetActive(context.Background(), model.CategoryRiskWeights, "missing", false, "admin")
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestSegmentRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSegmentRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.SegmentEntry{
		Segment:    "young_professional",
		ConfigType: model.SegmentAdjustmentFactor,
		Value:      decimal.RequireFromString("1.1"),
		Active:     true,
	}))
	require.NoError(t, repo.Upsert(ctx, &model.SegmentEntry{
		Segment:    "young_professional",
		ConfigType: model.SegmentAdjustmentFactor,
		Value:      decimal.RequireFromString("1.25"),
		Active:     true,
	}))
	require.NoError(t, repo.Upsert(ctx, &model.SegmentEntry{
		Segment:    "young_professional",
		ConfigType: model.SegmentBaselineValue,
		Value:      decimal.RequireFromString("50000"),
		Active:     true,
	}))

	entries, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	got, err := findOne[model.SegmentEntry](t, db, "segment = ? AND config_type = ?", "young_professional", model.SegmentAdjustmentFactor)
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(decimal.RequireFromString("1.25")))

	_, err = findOne[model.SegmentEntry](t, db, "segment = ? AND config_type = ?", "retiree", model.SegmentAdjustmentFactor)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRegionRepository_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRegionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.RegionEntry{
		RegionCode:       "NSW",
		RegionName:       "New South Wales",
		AdjustmentFactor: decimal.RequireFromString("1.05"),
		Active:           true,
	}))
	require.NoError(t, repo.Upsert(ctx, &model.RegionEntry{
		RegionCode:       "NSW",
		RegionName:       "NSW",
		AdjustmentFactor: decimal.RequireFromString("1.08"),
		Active:           true,
	}))

	got, err := findOne[model.RegionEntry](t, db, "region_code = ?", "NSW")
	require.NoError(t, err)
	assert.Equal(t, "NSW", got.RegionName)
	assert.True(t, got.AdjustmentFactor.Equal(decimal.RequireFromString("1.08")))

	entries, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = findOne[model.RegionEntry](t, db, "region_code = ?", "VIC")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestScenarioRepository_ListActiveOrdersByDisplayOrder(t *testing.T) {
	db := setupTestDB(t)
	repo := NewScenarioRepository(db)
	ctx := context.Background()

	for _, p := range []struct {
		id    string
		order int
	}{{"late", 2}, {"early", 0}, {"middle", 1}} {
		require.NoError(t, repo.Upsert(ctx, &model.ScenarioPreset{
			ScenarioID:          p.id,
			Name:                p.id,
			MonthlyContribution: decimal.NewFromInt(500),
			TargetAge:           65,
			RiskTolerance:       model.RiskToleranceModerate,
			AnnualGrowthRate:    decimal.RequireFromString("0.06"),
			DisplayOrder:        p.order,
			Active:              true,
		}))
	}

	presets, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 3)
	assert.Equal(t, "early", presets[0].ScenarioID)
	assert.Equal(t, "middle", presets[1].ScenarioID)
	assert.Equal(t, "late", presets[2].ScenarioID)

	got, err := findOne[model.ScenarioPreset](t, db, "scenario_id = ?", "middle")
	require.NoError(t, err)
	assert.Equal(t, 1, got.DisplayOrder)

	_, err = findOne[model.ScenarioPreset](t, db, "scenario_id = ?", "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEnumListRepository_ListActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewEnumListRepository(db)
	ctx := context.Background()

	items := []*model.EnumListItem{
		{ListName: "employment", ItemKey: "self", Label: "Self-employed", DisplayOrder: 1, Active: true},
		{ListName: "employment", ItemKey: "full", Label: "Full-time", DisplayOrder: 0, Active: true},
		{ListName: "employment", ItemKey: "gone", Label: "Retired", DisplayOrder: 2, Active: false},
	}
	for _, item := range items {
		require.NoError(t, repo.Upsert(ctx, item))
	}

	got, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "full", got[0].ItemKey)
	assert.Equal(t, "self", got[1].ItemKey)
}

func TestIsConnectionError(t *testing.T) {
	assert.False(t, IsConnectionError(nil))
	assert.False(t, IsConnectionError(assert.AnError))

	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = NewConfigEntryRepository(db).ListActive(context.Background())
	require.Error(t, err)
	assert.True(t, IsConnectionError(err))
}
