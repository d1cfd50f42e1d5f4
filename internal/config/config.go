// Package config 提供参数配置服务的配置管理
package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// 参数来源
const (
	SourceDB    = "db"
	SourceNacos = "nacos"
)

// Config 服务配置
type Config struct {
	Service  ServiceConfig  `yaml:"service" json:"service"`
	Nacos    NacosConfig    `yaml:"nacos" json:"nacos"`
	Postgres PostgresConfig `yaml:"postgres" json:"postgres"`
	Redis    RedisConfig    `yaml:"redis" json:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka" json:"kafka"`
	Tunables TunablesConfig `yaml:"tunables" json:"tunables"`
	Log      LogConfig      `yaml:"log" json:"log"`
}

// ServiceConfig 服务配置
type ServiceConfig struct {
	Name     string `yaml:"name" json:"name"`
	GRPCPort int    `yaml:"grpc_port" json:"grpc_port"`
	HTTPPort int    `yaml:"http_port" json:"http_port"`
	Env      string `yaml:"env" json:"env"`
}

// NacosConfig Nacos 配置中心
type NacosConfig struct {
	Enabled    bool   `yaml:"enabled" json:"enabled"`
	ServerAddr string `yaml:"server_addr" json:"server_addr"`
	Namespace  string `yaml:"namespace" json:"namespace"`
	Group      string `yaml:"group" json:"group"`
	DataPrefix string `yaml:"data_prefix" json:"data_prefix"`
	Username   string `yaml:"username" json:"username"`
	Password   string `yaml:"password" json:"password"`
	LogDir     string `yaml:"log_dir" json:"log_dir"`
	CacheDir   string `yaml:"cache_dir" json:"cache_dir"`
	TimeoutMs  uint64 `yaml:"timeout_ms" json:"timeout_ms"`
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host                   string `yaml:"host" json:"host"`
	Port                   int    `yaml:"port" json:"port"`
	Database               string `yaml:"database" json:"database"`
	User                   string `yaml:"user" json:"user"`
	Password               string `yaml:"password" json:"password"`
	SSLMode                string `yaml:"ssl_mode" json:"ssl_mode"`
	MaxConnections         int    `yaml:"max_connections" json:"max_connections"`
	MaxIdleConns           int    `yaml:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes" json:"conn_max_lifetime_minutes"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Addrs    []string `yaml:"addrs" json:"addrs"`
	Password string   `yaml:"password" json:"password"`
	DB       int      `yaml:"db" json:"db"`
	PoolSize int      `yaml:"pool_size" json:"pool_size"`
	Channel  string   `yaml:"channel" json:"channel"`
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Brokers  []string `yaml:"brokers" json:"brokers"`
	ClientID string   `yaml:"client_id" json:"client_id"`
	Topic    string   `yaml:"topic" json:"topic"`
}

// TunablesConfig 参数解析配置
type TunablesConfig struct {
	Source            string        `yaml:"source" json:"source"` // db, nacos
	CacheTTLSec       int           `yaml:"cache_ttl_sec" json:"cache_ttl_sec"`
	FetchTimeoutMs    int           `yaml:"fetch_timeout_ms" json:"fetch_timeout_ms"`
	ServeStaleOnError bool          `yaml:"serve_stale_on_error" json:"serve_stale_on_error"`
	CacheFallback     bool          `yaml:"cache_fallback" json:"cache_fallback"`
	WriteRetries      int           `yaml:"write_retries" json:"write_retries"`
	RetryBackoffMs    int           `yaml:"retry_backoff_ms" json:"retry_backoff_ms"`
	Breaker           BreakerConfig `yaml:"breaker" json:"breaker"`
}

// BreakerConfig 远程读取熔断配置
type BreakerConfig struct {
	Enabled          bool `yaml:"enabled" json:"enabled"`
	FailureThreshold int  `yaml:"failure_threshold" json:"failure_threshold"`
	SuccessThreshold int  `yaml:"success_threshold" json:"success_threshold"`
	OpenTimeoutSec   int  `yaml:"open_timeout_sec" json:"open_timeout_sec"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// CacheTTL 缓存有效期
func (c *TunablesConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSec) * time.Second
}

// FetchTimeout 单集合读取超时
func (c *TunablesConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMs) * time.Millisecond
}

// RetryBackoff 写入重试等待
func (c *TunablesConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

// Load 加载配置
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse 解析配置内容
func Parse(data []byte) (*Config, error) {
	// 环境变量替换
	content := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(content), &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)

	return &cfg, nil
}

// expandEnvVars 展开环境变量 ${VAR:default}
func expandEnvVars(s string) string {
	result := s
	for {
		start := strings.Index(result, "${")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}")
		if end == -1 {
			break
		}
		end += start

		expr := result[start+2 : end]
		parts := strings.SplitN(expr, ":", 2)
		varName := parts[0]
		defaultVal := ""
		if len(parts) > 1 {
			defaultVal = parts[1]
		}

		value := os.Getenv(varName)
		if value == "" {
			value = defaultVal
		}

		result = result[:start] + value + result[end+1:]
	}
	return result
}

// setDefaults 设置默认值
func setDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "eidos-tunables"
	}
	if cfg.Service.GRPCPort == 0 {
		cfg.Service.GRPCPort = 50058
	}
	if cfg.Service.HTTPPort == 0 {
		cfg.Service.HTTPPort = 8080
	}
	if cfg.Service.Env == "" {
		cfg.Service.Env = "dev"
	}

	if cfg.Nacos.Group == "" {
		cfg.Nacos.Group = "EIDOS_GROUP"
	}
	if cfg.Nacos.DataPrefix == "" {
		cfg.Nacos.DataPrefix = "tunables"
	}
	if cfg.Nacos.TimeoutMs == 0 {
		cfg.Nacos.TimeoutMs = 5000
	}

	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = 5432
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = "disable"
	}
	if cfg.Postgres.MaxConnections == 0 {
		cfg.Postgres.MaxConnections = 20
	}
	if cfg.Postgres.MaxIdleConns == 0 {
		cfg.Postgres.MaxIdleConns = 5
	}
	if cfg.Postgres.ConnMaxLifetimeMinutes == 0 {
		cfg.Postgres.ConnMaxLifetimeMinutes = 60
	}

	if len(cfg.Redis.Addrs) == 0 {
		cfg.Redis.Addrs = []string{"localhost:6379"}
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = 20
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "eidos:tunables:invalidate"
	}

	if cfg.Kafka.ClientID == "" {
		cfg.Kafka.ClientID = cfg.Service.Name
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "tunables-changes"
	}

	// 参数解析默认值
	if cfg.Tunables.Source == "" {
		cfg.Tunables.Source = SourceDB
	}
	if cfg.Tunables.CacheTTLSec == 0 {
		cfg.Tunables.CacheTTLSec = 300
	}
	if cfg.Tunables.FetchTimeoutMs == 0 {
		cfg.Tunables.FetchTimeoutMs = 3000
	}
	if cfg.Tunables.RetryBackoffMs == 0 {
		cfg.Tunables.RetryBackoffMs = 100
	}
	if cfg.Tunables.Breaker.FailureThreshold == 0 {
		cfg.Tunables.Breaker.FailureThreshold = 5
	}
	if cfg.Tunables.Breaker.SuccessThreshold == 0 {
		cfg.Tunables.Breaker.SuccessThreshold = 2
	}
	if cfg.Tunables.Breaker.OpenTimeoutSec == 0 {
		cfg.Tunables.Breaker.OpenTimeoutSec = 30
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}
