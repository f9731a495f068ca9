// Package config 提供配置加载和管理功能
package config

import (
	"net"
	"strconv"
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	HTTP          HTTPConfig          `yaml:"http" mapstructure:"http"`
	Postgres      PostgresConfig      `yaml:"postgres" mapstructure:"postgres"`
	Redis         RedisConfig         `yaml:"redis" mapstructure:"redis"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	UsageStream   UsageStreamConfig   `yaml:"usage_stream" mapstructure:"usage_stream"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
	Quota         QuotaConfig         `yaml:"quota" mapstructure:"quota"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// HTTPConfig api-gateway 监听配置
type HTTPConfig struct {
	Host        string        `yaml:"host" mapstructure:"host"`
	Port        int           `yaml:"port" mapstructure:"port"`
	ReadTimeout time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	// WriteTimeout 覆盖整段 SSE，需大于单次生成的最长耗时
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// Addr host:port
func (c HTTPConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// PostgresConfig PostgreSQL 配置
type PostgresConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	User            string        `yaml:"user" mapstructure:"user"`
	Password        string        `yaml:"password" mapstructure:"password"`
	Database        string        `yaml:"database" mapstructure:"database"`
	SSLMode         string        `yaml:"ssl_mode" mapstructure:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" mapstructure:"conn_max_idle_time"`
	SlowThreshold   time.Duration `yaml:"slow_threshold" mapstructure:"slow_threshold"`
}

// RedisConfig 额度快照缓存、限流计数与流水 Stream 共用
type RedisConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// Addr host:port
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// LLMConfig 远端模型配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
}

// ProviderConfig OpenAI 兼容接口的 provider
type ProviderConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	// Temperature 为空时不下发，由上游决定
	Temperature *float64      `yaml:"temperature" mapstructure:"temperature"`
	Reasoning   bool          `yaml:"reasoning" mapstructure:"reasoning"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// UsageStreamConfig 生成流水 Stream 的投递与消费
type UsageStreamConfig struct {
	// MaxLen 为 0 时不裁剪
	MaxLen       int           `yaml:"max_len" mapstructure:"max_len"`
	Workers      int           `yaml:"workers" mapstructure:"workers"`
	BlockTimeout time.Duration `yaml:"block_timeout" mapstructure:"block_timeout"`
	RetryLimit   int           `yaml:"retry_limit" mapstructure:"retry_limit"`
	RetryBackoff BackoffConfig `yaml:"retry_backoff" mapstructure:"retry_backoff"`
	// DLQAlertThreshold 死信数超过该值时告警
	DLQAlertThreshold int64 `yaml:"dlq_alert_threshold" mapstructure:"dlq_alert_threshold"`
}

// BackoffConfig 退避配置
type BackoffConfig struct {
	Initial    time.Duration `yaml:"initial" mapstructure:"initial"`
	Max        time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging struct {
		Level  string `yaml:"level" mapstructure:"level"`
		Format string `yaml:"format" mapstructure:"format"`
	} `yaml:"logging" mapstructure:"logging"`
	Tracing struct {
		Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
		Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
		SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
	} `yaml:"tracing" mapstructure:"tracing"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"metrics" mapstructure:"metrics"`
}

// SecurityConfig 鉴权、限流与跨域
type SecurityConfig struct {
	JWT struct {
		Secret string `yaml:"secret" mapstructure:"secret"`
		Issuer string `yaml:"issuer" mapstructure:"issuer"`
	} `yaml:"jwt" mapstructure:"jwt"`
	RateLimit struct {
		Enabled bool `yaml:"enabled" mapstructure:"enabled"`
		// GenerationsPerMinute 单用户每分钟生成请求上限
		GenerationsPerMinute int `yaml:"generations_per_minute" mapstructure:"generations_per_minute"`
	} `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS struct {
		AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
		AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
		AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
	} `yaml:"cors" mapstructure:"cors"`
}

// QuotaConfig 额度配置
type QuotaConfig struct {
	// DefaultUnitLimit 新用户及迁移后用户的字数上限
	DefaultUnitLimit int64 `yaml:"default_unit_limit" mapstructure:"default_unit_limit"`
	// LegacyFloor 低于该值的上限视为旧版按调用次数计的记录
	LegacyFloor int64 `yaml:"legacy_floor" mapstructure:"legacy_floor"`
	// FlatCharge 非成文模式的固定扣费
	FlatCharge    int64         `yaml:"flat_charge" mapstructure:"flat_charge"`
	UsageCacheTTL time.Duration `yaml:"usage_cache_ttl" mapstructure:"usage_cache_ttl"`
}
