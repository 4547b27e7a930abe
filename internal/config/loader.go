package config

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("RedisURL", "redis://localhost:6379/0")
	v.SetDefault("RedisPoolSize", 200)
	v.SetDefault("RedisDialTimeout", "1s")
	v.SetDefault("RedisReadTimeout", "1500ms")
	v.SetDefault("Namespace", "weather:v1")
	v.SetDefault("FreshTTL", 300)
	v.SetDefault("StaleTTL", "24h")
	v.SetDefault("JitterMax", 30)
	v.SetDefault("LockTTL", 5)
	v.SetDefault("WaitDeadline", "2s")
	v.SetDefault("PollInterval", "20ms")
	v.SetDefault("UpstreamTimeout", "2s")
	v.SetDefault("UpstreamRetries", 1)
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if g.Namespace == "" {
		g.Namespace = "weather:v1"
	}
	if g.FreshTTL.DurationValue() == 0 {
		g.FreshTTL = Duration(5 * time.Minute)
	}
	if g.StaleTTL.DurationValue() == 0 {
		g.StaleTTL = Duration(24 * time.Hour)
	}
	if g.LockTTL.DurationValue() == 0 {
		g.LockTTL = Duration(5 * time.Second)
	}
	if g.WaitDeadline.DurationValue() == 0 {
		g.WaitDeadline = Duration(2 * time.Second)
	}
	if g.PollInterval.DurationValue() == 0 {
		g.PollInterval = Duration(20 * time.Millisecond)
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(2 * time.Second)
	}
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
