// Package metrics 提供 eidos-tunables 服务的 Prometheus 监控指标
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "eidos_tunables"

// 配置解析指标
var (
	// ResolutionsTotal 配置解析次数
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "配置解析次数",
		},
		[]string{"outcome"}, // cache_hit/fresh/fallback/stale/strict_error
	)

	// ResolutionDuration 远端解析耗时
	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "resolution_duration_seconds",
			Help:      "远端解析耗时(秒)",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 3},
		},
	)

	// CollectionReadsTotal 集合读取次数
	CollectionReadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_reads_total",
			Help:      "集合读取次数",
		},
		[]string{"collection", "result"}, // result: ok/empty/error
	)

	// CacheInvalidationsTotal 缓存失效次数
	CacheInvalidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_invalidations_total",
			Help:      "缓存失效次数",
		},
		[]string{"reason"}, // mutation/remote/nacos/last_known_good
	)

	// SnapshotResolvedAt 最近一次成功解析的时间
	SnapshotResolvedAt = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_resolved_timestamp_seconds",
			Help:      "最近一次成功解析的时间戳",
		},
	)
)

// 变更与分级指标
var (
	// MutationsTotal 配置变更次数
	MutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "配置变更次数",
		},
		[]string{"collection", "result"}, // result: ok/invalid/error
	)

	// ClassificationsTotal 风险分级次数
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "风险分级次数",
		},
		[]string{"mode", "tier"}, // mode: async/sync
	)

	// KafkaMessagesProduced Kafka 生产消息数
	KafkaMessagesProduced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "kafka_messages_produced_total",
			Help:      "Kafka 生产消息数",
		},
		[]string{"topic", "result"},
	)
)

// RecordResolution 记录一次解析结果
func RecordResolution(outcome string) {
	ResolutionsTotal.WithLabelValues(outcome).Inc()
}

// RecordCollectionRead 记录集合读取
func RecordCollectionRead(collection, result string) {
	CollectionReadsTotal.WithLabelValues(collection, result).Inc()
}

// RecordInvalidation 记录缓存失效
func RecordInvalidation(reason string) {
	CacheInvalidationsTotal.WithLabelValues(reason).Inc()
}

// RecordMutation 记录配置变更
func RecordMutation(collection, result string) {
	MutationsTotal.WithLabelValues(collection, result).Inc()
}

// RecordClassification 记录风险分级
func RecordClassification(mode, tier string) {
	ClassificationsTotal.WithLabelValues(mode, tier).Inc()
}

// RecordKafkaMessage 记录 Kafka 消息
func RecordKafkaMessage(topic string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	KafkaMessagesProduced.WithLabelValues(topic, result).Inc()
}
