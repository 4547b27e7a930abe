package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if err := validateRedisURL(g.RedisURL); err != nil {
		return fmt.Errorf("Global.RedisURL: %w", err)
	}
	if g.RedisPoolSize <= 0 {
		return newFieldError("Global.RedisPoolSize", "必须大于 0")
	}
	if err := validateNamespace(g.Namespace); err != nil {
		return fmt.Errorf("Global.Namespace: %w", err)
	}
	if g.FreshTTL.DurationValue() <= 0 {
		return newFieldError("Global.FreshTTL", "必须大于 0")
	}
	if g.StaleTTL.DurationValue() <= 0 {
		return newFieldError("Global.StaleTTL", "必须大于 0")
	}
	if g.StaleTTL.DurationValue() < g.FreshTTL.DurationValue() {
		return newFieldError("Global.StaleTTL", "不应小于 FreshTTL")
	}
	if g.JitterMax.DurationValue() < 0 {
		return newFieldError("Global.JitterMax", "不能为负数")
	}
	if g.LockTTL.DurationValue() <= 0 {
		return newFieldError("Global.LockTTL", "必须大于 0")
	}
	if g.WaitDeadline.DurationValue() <= 0 {
		return newFieldError("Global.WaitDeadline", "必须大于 0")
	}
	if g.PollInterval.DurationValue() <= 0 {
		return newFieldError("Global.PollInterval", "必须大于 0")
	}
	if g.PollInterval.DurationValue() > g.WaitDeadline.DurationValue() {
		return newFieldError("Global.PollInterval", "不应大于 WaitDeadline")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}
	if g.UpstreamRetries < 0 {
		return newFieldError("Global.UpstreamRetries", "不能为负数")
	}

	return nil
}

func validateRedisURL(raw string) error {
	if raw == "" {
		return errors.New("不能为空")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "redis" && parsed.Scheme != "rediss" && parsed.Scheme != "unix" {
		return fmt.Errorf("仅支持 redis/rediss/unix，当前: %s", raw)
	}
	if parsed.Scheme != "unix" && parsed.Host == "" {
		return fmt.Errorf("缺少 Host: %s", raw)
	}
	return nil
}

func validateNamespace(ns string) error {
	if ns == "" {
		return errors.New("不能为空")
	}
	if strings.ContainsAny(ns, " \t\n") {
		return errors.New("不允许包含空白字符")
	}
	return nil
}
