// Package source 远程配置源: 五个集合的读取与四类单行写入
package source

import (
	"context"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
)

// 集合名称, 用于日志和指标标签
const (
	CollectionCore      = "core"
	CollectionSegments  = "segments"
	CollectionRegions   = "regions"
	CollectionScenarios = "scenarios"
	CollectionEnumLists = "enum_lists"
)

// Collections 全部集合
var Collections = []string{
	CollectionCore,
	CollectionSegments,
	CollectionRegions,
	CollectionScenarios,
	CollectionEnumLists,
}

// Reader 读取启用行, 场景按 display_order 升序
type Reader interface {
	ReadCore(ctx context.Context) ([]*model.ConfigEntry, error)
	ReadSegments(ctx context.Context) ([]*model.SegmentEntry, error)
	ReadRegions(ctx context.Context) ([]*model.RegionEntry, error)
	ReadScenarios(ctx context.Context) ([]*model.ScenarioPreset, error)
	ReadEnumLists(ctx context.Context) ([]*model.EnumListItem, error)
}

// Writer 按身份字段 upsert, 冲突时替换全部非身份字段
type Writer interface {
	UpsertCore(ctx context.Context, entry *model.ConfigEntry) error
	UpsertSegment(ctx context.Context, entry *model.SegmentEntry) error
	UpsertRegion(ctx context.Context, entry *model.RegionEntry) error
	UpsertScenario(ctx context.Context, preset *model.ScenarioPreset) error
	// DeactivateCore 逻辑删除核心配置
	DeactivateCore(ctx context.Context, category, key, operator string) error
}

// Source 远程配置源
type Source interface {
	Reader
	Writer
	Name() string
}
