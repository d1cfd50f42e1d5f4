package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/nacos-group/nacos-sdk-go/v2/clients"
	"github.com/nacos-group/nacos-sdk-go/v2/common/constant"
	"github.com/nacos-group/nacos-sdk-go/v2/vo"
	"go.uber.org/zap"

	"github.com/eidos-exchange/eidos/eidos-tunables/internal/model"
	bizerr "github.com/eidos-exchange/eidos/eidos-tunables/pkg/errors"
	"github.com/eidos-exchange/eidos/eidos-tunables/pkg/logger"
)

// ConfigClient NacosSource 使用的配置客户端方法, 与 config_client.IConfigClient 一致
type ConfigClient interface {
	GetConfig(param vo.ConfigParam) (string, error)
	PublishConfig(param vo.ConfigParam) (bool, error)
	ListenConfig(param vo.ConfigParam) error
	CancelListenConfig(param vo.ConfigParam) error
}

// NacosSourceConfig Nacos 配置源配置
type NacosSourceConfig struct {
	ServerAddr string
	Namespace  string
	Group      string
	DataPrefix string
	Username   string
	Password   string
	LogDir     string
	CacheDir   string
	TimeoutMs  uint64
}

// NacosSource 每个集合对应配置中心里的一个 JSON 文档
type NacosSource struct {
	client ConfigClient
	group  string
	prefix string

	// 写入为读-改-发布, 串行化避免本实例内丢失更新
	writeMu sync.Mutex
}

// NewNacosConfigClient 创建 Nacos 配置客户端
func NewNacosConfigClient(cfg *NacosSourceConfig) (ConfigClient, error) {
	host, portStr, err := net.SplitHostPort(cfg.ServerAddr)
	if err != nil {
		return nil, fmt.Errorf("parse nacos server addr %q: %w", cfg.ServerAddr, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse nacos port %q: %w", portStr, err)
	}

	timeout := cfg.TimeoutMs
	if timeout == 0 {
		timeout = 5000
	}

	clientConfig := constant.ClientConfig{
		NamespaceId:         cfg.Namespace,
		TimeoutMs:           timeout,
		NotLoadCacheAtStart: true,
		LogDir:              cfg.LogDir,
		CacheDir:            cfg.CacheDir,
		Username:            cfg.Username,
		Password:            cfg.Password,
	}

	return clients.NewConfigClient(vo.NacosClientParam{
		ClientConfig:  &clientConfig,
		ServerConfigs: []constant.ServerConfig{{IpAddr: host, Port: port}},
	})
}

// NewNacosSource 创建 Nacos 配置源
func NewNacosSource(client ConfigClient, group, prefix string) *NacosSource {
	if group == "" {
		group = "EIDOS_GROUP"
	}
	if prefix == "" {
		prefix = "tunables"
	}
	return &NacosSource{client: client, group: group, prefix: prefix}
}

// Name 返回配置源名称
func (s *NacosSource) Name() string {
	return "nacos"
}

// DataID 集合对应的 dataId
func (s *NacosSource) DataID(collection string) string {
	return fmt.Sprintf("%s-%s.json", s.prefix, collection)
}

func (s *NacosSource) param(collection string) vo.ConfigParam {
	return vo.ConfigParam{DataId: s.DataID(collection), Group: s.group}
}

// load 读取并解析一个集合文档, 文档不存在时返回空
func load[T any](ctx context.Context, s *NacosSource, collection string) ([]*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, bizerr.Wrap(bizerr.ErrSourceUnavailable, err)
	}

	content, err := s.client.GetConfig(s.param(collection))
	if err != nil {
		logger.Error("failed to get config from nacos",
			zap.String("data_id", s.DataID(collection)),
			zap.String("group", s.group),
			zap.Error(err))
		return nil, bizerr.Wrap(bizerr.ErrSourceUnavailable, err)
	}
	if content == "" {
		return nil, nil
	}

	var rows []*T
	if err := json.Unmarshal([]byte(content), &rows); err != nil {
		return nil, fmt.Errorf("parse nacos document %s: %w", s.DataID(collection), err)
	}
	return rows, nil
}

// publish 序列化并发布集合文档
func publish[T any](s *NacosSource, collection string, rows []*T) error {
	data, err := json.Marshal(rows)
	if err != nil {
		return err
	}
	param := s.param(collection)
	param.Content = string(data)
	param.Type = "json"

	ok, err := s.client.PublishConfig(param)
	if err != nil {
		return bizerr.Wrap(bizerr.ErrSourceUnavailable, err)
	}
	if !ok {
		return bizerr.Wrapf(bizerr.ErrSourceUnavailable, nil, "nacos rejected publish of %s", param.DataId)
	}
	return nil
}

func activeOnly[T any](rows []*T, active func(*T) bool) []*T {
	out := make([]*T, 0, len(rows))
	for _, row := range rows {
		if row != nil && active(row) {
			out = append(out, row)
		}
	}
	return out
}

func (s *NacosSource) ReadCore(ctx context.Context) ([]*model.ConfigEntry, error) {
	rows, err := load[model.ConfigEntry](ctx, s, CollectionCore)
	if err != nil {
		return nil, err
	}
	return activeOnly(rows, func(e *model.ConfigEntry) bool { return e.Active }), nil
}

func (s *NacosSource) ReadSegments(ctx context.Context) ([]*model.SegmentEntry, error) {
	rows, err := load[model.SegmentEntry](ctx, s, CollectionSegments)
	if err != nil {
		return nil, err
	}
	return activeOnly(rows, func(e *model.SegmentEntry) bool { return e.Active }), nil
}

func (s *NacosSource) ReadRegions(ctx context.Context) ([]*model.RegionEntry, error) {
	rows, err := load[model.RegionEntry](ctx, s, CollectionRegions)
	if err != nil {
		return nil, err
	}
	return activeOnly(rows, func(e *model.RegionEntry) bool { return e.Active }), nil
}

func (s *NacosSource) ReadScenarios(ctx context.Context) ([]*model.ScenarioPreset, error) {
	rows, err := load[model.ScenarioPreset](ctx, s, CollectionScenarios)
	if err != nil {
		return nil, err
	}
	presets := activeOnly(rows, func(p *model.ScenarioPreset) bool { return p.Active })
	sort.SliceStable(presets, func(i, j int) bool {
		if presets[i].DisplayOrder != presets[j].DisplayOrder {
			return presets[i].DisplayOrder < presets[j].DisplayOrder
		}
		return presets[i].ScenarioID < presets[j].ScenarioID
	})
	return presets, nil
}

func (s *NacosSource) ReadEnumLists(ctx context.Context) ([]*model.EnumListItem, error) {
	rows, err := load[model.EnumListItem](ctx, s, CollectionEnumLists)
	if err != nil {
		return nil, err
	}
	return activeOnly(rows, func(i *model.EnumListItem) bool { return i.Active }), nil
}

// upsertRow 读-改-发布: 同身份行被替换, 否则追加
func upsertRow[T any](ctx context.Context, s *NacosSource, collection string, row *T, same func(a, b *T) bool) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rows, err := load[T](ctx, s, collection)
	if err != nil {
		return err
	}

	replaced := false
	for i, existing := range rows {
		if existing != nil && same(existing, row) {
			rows[i] = row
			replaced = true
			break
		}
	}
	if !replaced {
		rows = append(rows, row)
	}
	return publish(s, collection, rows)
}

func (s *NacosSource) UpsertCore(ctx context.Context, entry *model.ConfigEntry) error {
	stamp(&entry.CreatedAt, &entry.UpdatedAt)
	return upsertRow(ctx, s, CollectionCore, entry, func(a, b *model.ConfigEntry) bool {
		return a.Category == b.Category && a.Key == b.Key
	})
}

func (s *NacosSource) UpsertSegment(ctx context.Context, entry *model.SegmentEntry) error {
	stamp(&entry.CreatedAt, &entry.UpdatedAt)
	return upsertRow(ctx, s, CollectionSegments, entry, func(a, b *model.SegmentEntry) bool {
		return a.Segment == b.Segment && a.ConfigType == b.ConfigType
	})
}

func (s *NacosSource) UpsertRegion(ctx context.Context, entry *model.RegionEntry) error {
	stamp(&entry.CreatedAt, &entry.UpdatedAt)
	return upsertRow(ctx, s, CollectionRegions, entry, func(a, b *model.RegionEntry) bool {
		return a.RegionCode == b.RegionCode
	})
}

func (s *NacosSource) UpsertScenario(ctx context.Context, preset *model.ScenarioPreset) error {
	stamp(&preset.CreatedAt, &preset.UpdatedAt)
	return upsertRow(ctx, s, CollectionScenarios, preset, func(a, b *model.ScenarioPreset) bool {
		return a.ScenarioID == b.ScenarioID
	})
}

func (s *NacosSource) DeactivateCore(ctx context.Context, category, key, operator string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rows, err := load[model.ConfigEntry](ctx, s, CollectionCore)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if row != nil && row.Category == category && row.Key == key {
			row.Active = false
			row.UpdatedBy = operator
			row.UpdatedAt = time.Now().UnixMilli()
			return publish(s, CollectionCore, rows)
		}
	}
	return bizerr.ErrNotFound.WithMessagef("config %s/%s not found", category, key)
}

// Watch 监听所有集合文档, 任一变化时回调 onChange(collection)
// ctx 结束时取消监听
func (s *NacosSource) Watch(ctx context.Context, onChange func(collection string)) error {
	for _, collection := range Collections {
		collection := collection // per-iteration copy; go directive is 1.21
		param := s.param(collection)
		param.OnChange = func(namespace, group, dataId, data string) {
			logger.Info("nacos config changed",
				zap.String("data_id", dataId),
				zap.String("group", group))
			onChange(collection)
		}
		if err := s.client.ListenConfig(param); err != nil {
			return fmt.Errorf("listen nacos config %s: %w", param.DataId, err)
		}
	}

	go func() {
		<-ctx.Done()
		for _, collection := range Collections {
			if err := s.client.CancelListenConfig(s.param(collection)); err != nil {
				logger.Warn("cancel nacos listen failed",
					zap.String("data_id", s.DataID(collection)),
					zap.Error(err))
			}
		}
	}()
	return nil
}

func stamp(createdAt, updatedAt *int64) {
	now := time.Now().UnixMilli()
	if *createdAt == 0 {
		*createdAt = now
	}
	*updatedAt = now
}
