// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// envPattern 匹配 ${VAR} 或 ${VAR:default}
// g1: 变量名, g2: 默认值部分（含冒号）, g3: 默认值内容
var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// insecureJWTSecret 示例配置中的占位密钥
const insecureJWTSecret = "change-me"

// Load 从 configs 目录加载配置
func Load() (*Config, error) {
	return LoadFrom("configs")
}

// LoadFrom 从指定目录加载配置
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), false); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	// 执行环境变量替换
	expanded := expandEnv(string(content))

	// 加载到 viper
	reader := strings.NewReader(expanded)
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		// 手动标记已加载文件，防止后续 ReadInConfig 报错
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPattern.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		val, ok := os.LookupEnv(key)
		if ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match // 保留原样以便识别未定义的变量
	})
}

// Validate 校验关键配置
func (c *Config) Validate() error {
	if c.Quota.DefaultUnitLimit <= 0 {
		return fmt.Errorf("quota.default_unit_limit must be positive, got %d", c.Quota.DefaultUnitLimit)
	}
	if c.Quota.LegacyFloor > c.Quota.DefaultUnitLimit {
		return fmt.Errorf("quota.legacy_floor (%d) must not exceed quota.default_unit_limit (%d)",
			c.Quota.LegacyFloor, c.Quota.DefaultUnitLimit)
	}
	if c.Quota.FlatCharge < 0 {
		return fmt.Errorf("quota.flat_charge must not be negative, got %d", c.Quota.FlatCharge)
	}
	if c.App.Env == "production" && (c.Security.JWT.Secret == "" || c.Security.JWT.Secret == insecureJWTSecret) {
		return fmt.Errorf("security.jwt.secret must be set in production")
	}
	if _, ok := c.LLM.Providers[c.LLM.DefaultProvider]; c.LLM.DefaultProvider != "" && !ok {
		return fmt.Errorf("llm.default_provider %q has no provider entry", c.LLM.DefaultProvider)
	}
	return nil
}

// defaults 兜底默认值，键为 viper 路径
var defaults = map[string]any{
	"app.name":    "solidwriter-api",
	"app.version": "v0.0.0",
	"app.env":     "development",

	"http.host":             "0.0.0.0",
	"http.port":             8080,
	"http.read_timeout":     "30s",
	"http.write_timeout":    "300s",
	"http.idle_timeout":     "120s",
	"http.shutdown_timeout": "30s",

	"postgres.host":               "localhost",
	"postgres.port":               5432,
	"postgres.user":               "postgres",
	"postgres.database":           "solidwriter",
	"postgres.ssl_mode":           "disable",
	"postgres.max_open_conns":     50,
	"postgres.max_idle_conns":     10,
	"postgres.conn_max_lifetime":  "30m",
	"postgres.conn_max_idle_time": "5m",
	"postgres.slow_threshold":     "200ms",

	"redis.host":           "localhost",
	"redis.port":           6379,
	"redis.pool_size":      100,
	"redis.min_idle_conns": 10,
	"redis.dial_timeout":   "5s",
	"redis.read_timeout":   "3s",
	"redis.write_timeout":  "3s",

	"llm.default_provider": "openrouter",

	"usage_stream.max_len":                  100000,
	"usage_stream.workers":                  2,
	"usage_stream.block_timeout":            "5s",
	"usage_stream.retry_limit":              5,
	"usage_stream.retry_backoff.initial":    "1s",
	"usage_stream.retry_backoff.max":        "60s",
	"usage_stream.retry_backoff.multiplier": 2.0,
	"usage_stream.dlq_alert_threshold":      100,

	"observability.logging.level":      "info",
	"observability.logging.format":     "json",
	"observability.tracing.endpoint":   "localhost:4317",
	"observability.tracing.sample_rate": 1.0,
	"observability.metrics.enabled":    true,
	"observability.metrics.path":       "/metrics",

	"security.jwt.issuer":                        "solidwriter",
	"security.rate_limit.enabled":                true,
	"security.rate_limit.generations_per_minute": 20,

	"quota.default_unit_limit": 25000,
	"quota.legacy_floor":       25000,
	"quota.flat_charge":        1,
	"quota.usage_cache_ttl":    "60s",
}

func setDefaults(v *viper.Viper) {
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
}
