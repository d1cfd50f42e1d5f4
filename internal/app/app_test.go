package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/classifier"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/config"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/mutator"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/source"
)

func testConfig(t *testing.T) *config.Config {
	cfg, err := config.Parse([]byte("tunables:\n  breaker:\n    enabled: true\n"))
	require.NoError(t, err)
	return cfg
}

func setupDB(t *testing.T) *gorm.DB {
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

// newTestApp 跳过 Postgres 与端口监听, 只装配核心组件
func newTestApp(t *testing.T, db *gorm.DB, mr *miniredis.Miniredis) *App {
	a := New(testConfig(t))
	t.Cleanup(a.cancel)
	a.source = source.NewDBSource(db)
	if mr != nil {
		a.redisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { a.redisClient.Close() })
	}
	a.initCore()
	a.startWatchers()
	return a
}

func TestInitCore_WiresComponents(t *testing.T) {
	a := newTestApp(t, setupDB(t), nil)

	assert.NotNil(t, a.resolver)
	assert.NotNil(t, a.mutator)
	assert.NotNil(t, a.classifier)
	assert.Nil(t, a.broadcaster)

	st := a.resolver.Status()
	assert.Equal(t, "5m0s", st.TTL)
	assert.Equal(t, "3s", st.FetchTimeout)
	assert.Equal(t, "closed", st.BreakerState)
}

func TestPeerInvalidation(t *testing.T) {
	mr := miniredis.RunT(t)
	db := setupDB(t)

	writer := newTestApp(t, db, mr)
	reader := newTestApp(t, db, mr)
	require.NotNil(t, reader.broadcaster)

	ctx := context.Background()
	reader.resolver.Resolve(ctx)
	require.True(t, reader.resolver.Status().Cached)

	err := writer.mutator.UpdateCore(ctx, mutator.CoreUpdate{
		Category: model.CategoryRateTable,
		Key:      "inflation",
		Value:    0.031,
		DataType: model.DataTypeNumber,
		Operator: "tester",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return !reader.resolver.Status().Cached
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 0.031, reader.resolver.Resolve(ctx).RateTable["inflation"])
}

func TestWarmup_Failure(t *testing.T) {
	db := setupDB(t)
	a := newTestApp(t, db, nil)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	a.warmup()
	assert.False(t, a.resolver.Status().HasKnownGood)
	assert.Equal(t, classifier.TierLow, a.classifier.ClassifySync(39))
	assert.Equal(t, classifier.TierModerate, a.classifier.ClassifySync(40))
}

func TestInitSource_Unknown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Tunables.Source = "etcd"
	a := New(cfg)
	defer a.cancel()

	assert.Error(t, a.initSource())
}
