package source

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
	"github.com/eidos-exchange/eidos/eidos-tunables/internal/repository"
	bizerr "github.com/eidos-exchange/eidos/eidos-tunables/pkg/errors"
)

// DBSource 基于 PostgreSQL 的配置源
type DBSource struct {
	configs   *repository.ConfigEntryRepository
	segments  *repository.SegmentRepository
	regions   *repository.RegionRepository
	scenarios *repository.ScenarioRepository
	enums     *repository.EnumListRepository
}

// NewDBSource 创建数据库配置源
func NewDBSource(db *gorm.DB) *DBSource {
	return &DBSource{
		configs:   repository.NewConfigEntryRepository(db),
		segments:  repository.NewSegmentRepository(db),
		regions:   repository.NewRegionRepository(db),
		scenarios: repository.NewScenarioRepository(db),
		enums:     repository.NewEnumListRepository(db),
	}
}

// Name 返回配置源名称
func (s *DBSource) Name() string {
	return "db"
}

func (s *DBSource) ReadCore(ctx context.Context) ([]*model.ConfigEntry, error) {
	entries, err := s.configs.ListActive(ctx)
	return entries, classify(err)
}

func (s *DBSource) ReadSegments(ctx context.Context) ([]*model.SegmentEntry, error) {
	entries, err := s.segments.ListActive(ctx)
	return entries, classify(err)
}

func (s *DBSource) ReadRegions(ctx context.Context) ([]*model.RegionEntry, error) {
	entries, err := s.regions.ListActive(ctx)
	return entries, classify(err)
}

func (s *DBSource) ReadScenarios(ctx context.Context) ([]*model.ScenarioPreset, error) {
	presets, err := s.scenarios.ListActive(ctx)
	return presets, classify(err)
}

func (s *DBSource) ReadEnumLists(ctx context.Context) ([]*model.EnumListItem, error) {
	items, err := s.enums.ListActive(ctx)
	return items, classify(err)
}

func (s *DBSource) UpsertCore(ctx context.Context, entry *model.ConfigEntry) error {
	return classify(s.configs.Upsert(ctx, entry))
}

func (s *DBSource) UpsertSegment(ctx context.Context, entry *model.SegmentEntry) error {
	return classify(s.segments.Upsert(ctx, entry))
}

func (s *DBSource) UpsertRegion(ctx context.Context, entry *model.RegionEntry) error {
	return classify(s.regions.Upsert(ctx, entry))
}

func (s *DBSource) UpsertScenario(ctx context.Context, preset *model.ScenarioPreset) error {
	return classify(s.scenarios.Upsert(ctx, preset))
}

func (s *DBSource) DeactivateCore(ctx context.Context, category, key, operator string) error {
	return classify(s.configs.SetActive(ctx, category, key, false, operator))
}

// classify 将仓储错误映射为业务错误
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repository.ErrConfigNotFound):
		return bizerr.Wrap(bizerr.ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled),
		repository.IsConnectionError(err):
		return bizerr.Wrap(bizerr.ErrSourceUnavailable, err)
	}
	return err
}
