package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testConfigPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join("testdata", name)
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("写入临时配置失败: %v", err)
	}
	return path
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:    5000,
			RedisURL:      "redis://localhost:6379/0",
			RedisPoolSize: 200,
			Namespace:     "weather:v1",
			FreshTTL:      Duration(5 * time.Minute),
			StaleTTL:      Duration(24 * time.Hour),
			JitterMax:     Duration(30 * time.Second),
			LockTTL:       Duration(5 * time.Second),
			WaitDeadline:  Duration(2 * time.Second),
			PollInterval:  Duration(20 * time.Millisecond),

			UpstreamTimeout: Duration(2 * time.Second),
		},
	}
}
