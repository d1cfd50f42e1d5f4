package source

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
	bizerr "github.com/eidos-exchange/eidos/eidos-tunables/pkg/errors"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&model.ConfigEntry{},
		&model.SegmentEntry{},
		&model.RegionEntry{},
		&model.ScenarioPreset{},
		&model.EnumListItem{},
	))
	return db
}

func scenario(id string, order int) *model.ScenarioPreset {
	return &model.ScenarioPreset{
		ScenarioID:          id,
		Name:                id,
		MonthlyContribution: decimal.NewFromInt(500),
		TargetAge:           65,
		RiskTolerance:       model.RiskToleranceModerate,
		AnnualGrowthRate:    decimal.RequireFromString("0.06"),
		DisplayOrder:        order,
		Active:              true,
	}
}

// exerciseSource 两种配置源共享的行为
func exerciseSource(t *testing.T, src Source) {
	ctx := context.Background()

	core, err := src.ReadCore(ctx)
	require.NoError(t, err)
	assert.Empty(t, core)

	require.NoError(t, src.UpsertCore(ctx, &model.ConfigEntry{
		Category: model.CategoryRiskThresholds, Key: "low_max", Value: "39",
		DataType: model.DataTypeNumber, Active: true,
	}))
	require.NoError(t, src.UpsertCore(ctx, &model.ConfigEntry{
		Category: model.CategoryRiskThresholds, Key: "low_max", Value: "35",
		DataType: model.DataTypeNumber, Active: true,
	}))
	core, err = src.ReadCore(ctx)
	require.NoError(t, err)
	require.Len(t, core, 1)
	assert.Equal(t, "35", core[0].Value)

	require.NoError(t, src.DeactivateCore(ctx, model.CategoryRiskThresholds, "low_max", "admin"))
	core, err = src.ReadCore(ctx)
	require.NoError(t, err)
	assert.Empty(t, core)

	err = src.DeactivateCore(ctx, model.CategoryRiskThresholds, "missing", "admin")
	assert.True(t, bizerr.Is(err, bizerr.ErrNotFound))

	require.NoError(t, src.UpsertSegment(ctx, &model.SegmentEntry{
		Segment: "retiree", ConfigType: model.SegmentAdjustmentFactor,
		Value: decimal.RequireFromString("0.9"), Active: true,
	}))
	segments, err := src.ReadSegments(ctx)
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.True(t, segments[0].Value.Equal(decimal.RequireFromString("0.9")))

	require.NoError(t, src.UpsertRegion(ctx, &model.RegionEntry{
		RegionCode: "VIC", RegionName: "Victoria",
		AdjustmentFactor: decimal.RequireFromString("1.03"), Active: true,
	}))
	regions, err := src.ReadRegions(ctx)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "VIC", regions[0].RegionCode)

	for _, p := range []*model.ScenarioPreset{scenario("c", 2), scenario("a", 0), scenario("b", 1)} {
		require.NoError(t, src.UpsertScenario(ctx, p))
	}
	presets, err := src.ReadScenarios(ctx)
	require.NoError(t, err)
	require.Len(t, presets, 3)
	for i, p := range presets {
		assert.Equal(t, i, p.DisplayOrder)
	}

	items, err := src.ReadEnumLists(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDBSource(t *testing.T) {
	src := NewDBSource(setupTestDB(t))
	assert.Equal(t, "db", src.Name())
	exerciseSource(t, src)
}

func TestDBSource_ClosedDatabaseIsUnavailable(t *testing.T) {
	db := setupTestDB(t)
	src := NewDBSource(db)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = src.ReadCore(context.Background())
	assert.True(t, bizerr.IsSourceUnavailable(err))

	err = src.UpsertRegion(context.Background(), &model.RegionEntry{RegionCode: "NT", Active: true})
	assert.True(t, bizerr.IsSourceUnavailable(err))
}

// fakeConfigClient 内存版 Nacos 配置客户端
type fakeConfigClient struct {
	mu        sync.Mutex
	docs      map[string]string
	listeners map[string]func(namespace, group, dataId, data string)
	cancelled map[string]bool
	getErr    error
}

func newFakeConfigClient() *fakeConfigClient {
	return &fakeConfigClient{
		docs:      make(map[string]string),
		listeners: make(map[string]func(namespace, group, dataId, data string)),
		cancelled: make(map[string]bool),
	}
}

func (f *fakeConfigClient) GetConfig(param vo.ConfigParam) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.docs[param.Group+"/"+param.DataId], nil
}

func (f *fakeConfigClient) PublishConfig(param vo.ConfigParam) (bool, error) {
	f.mu.Lock()
	f.docs[param.Group+"/"+param.DataId] = param.Content
	listener := f.listeners[param.Group+"/"+param.DataId]
	f.mu.Unlock()
	if listener != nil {
		listener("public", param.Group, param.DataId, param.Content)
	}
	return true, nil
}

func (f *fakeConfigClient) ListenConfig(param vo.ConfigParam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners[param.Group+"/"+param.DataId] = param.OnChange
	return nil
}

func (f *fakeConfigClient) CancelListenConfig(param vo.ConfigParam) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listeners, param.Group+"/"+param.DataId)
	f.cancelled[param.Group+"/"+param.DataId] = true
	return nil
}

func (f *fakeConfigClient) cancelledCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cancelled)
}

func TestNacosSource(t *testing.T) {
	src := NewNacosSource(newFakeConfigClient(), "", "")
	assert.Equal(t, "nacos", src.Name())
	assert.Equal(t, "tunables-core.json", src.DataID(CollectionCore))
	exerciseSource(t, src)
}

func TestNacosSource_ReadsPublishedDocument(t *testing.T) {
	client := newFakeConfigClient()
	src := NewNacosSource(client, "G", "t")
	client.docs["G/t-enum_lists.json"] = `[
		{"list_name":"employment_status","item_key":"full_time","label":"Full-time","display_order":0,"active":true},
		{"list_name":"employment_status","item_key":"old","label":"Old","display_order":1,"active":false}
	]`

	items, err := src.ReadEnumLists(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "full_time", items[0].ItemKey)
}

func TestNacosSource_ClientErrorIsUnavailable(t *testing.T) {
	client := newFakeConfigClient()
	client.getErr = errors.New("dial tcp: connection refused")
	src := NewNacosSource(client, "", "")

	_, err := src.ReadRegions(context.Background())
	assert.True(t, bizerr.IsSourceUnavailable(err))
}

func TestNacosSource_MalformedDocument(t *testing.T) {
	client := newFakeConfigClient()
	src := NewNacosSource(client, "G", "t")
	client.docs["G/t-core.json"] = `{not json`

	_, err := src.ReadCore(context.Background())
	require.Error(t, err)
	assert.False(t, bizerr.IsSourceUnavailable(err))
}

func TestNacosSource_CancelledContext(t *testing.T) {
	src := NewNacosSource(newFakeConfigClient(), "", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.ReadScenarios(ctx)
	assert.True(t, bizerr.IsSourceUnavailable(err))
}

func TestNacosSource_WatchNotifiesAndCancels(t *testing.T) {
	client := newFakeConfigClient()
	src := NewNacosSource(client, "", "")

	changed := make(chan string, 8)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, src.Watch(ctx, func(collection string) { changed <- collection }))

	require.NoError(t, src.UpsertRegion(context.Background(), &model.RegionEntry{
		RegionCode: "WA", AdjustmentFactor: decimal.NewFromInt(1), Active: true,
	}))
	assert.Equal(t, CollectionRegions, <-changed)

	cancel()
	assert.Eventually(t, func() bool {
		return client.cancelledCount() == len(Collections)
	}, time.Second, 10*time.Millisecond)
}
