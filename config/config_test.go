package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("写入配置文件失败: %v", err)
	}
	return path
}

func TestLoad_DefaultsAndFile(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: "0123456789abcdef0123"
attendance:
  timezone: "America/Bogota"
  lock_wait_timeout: "3s"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 应成功: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("期望默认端口 8080，实际=%d", cfg.Server.Port)
	}
	if cfg.Attendance.LockWaitTimeout != 3*time.Second {
		t.Errorf("期望 lock_wait_timeout=3s，实际=%v", cfg.Attendance.LockWaitTimeout)
	}
	if cfg.Attendance.RetryBackoff != 50*time.Millisecond {
		t.Errorf("期望默认 retry_backoff=50ms，实际=%v", cfg.Attendance.RetryBackoff)
	}
	if cfg.RateLimit.CheckInPerMinute != 120 {
		t.Errorf("期望默认 check_in_per_minute=120，实际=%d", cfg.RateLimit.CheckInPerMinute)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	if _, err := Load(path); err == nil {
		t.Fatal("缺少 jwt_secret 时应返回错误")
	}
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := &Config{
		Server:     ServerConfig{Port: 8080},
		Auth:       AuthConfig{JWTSecret: "0123456789abcdef0123"},
		Attendance: AttendanceConfig{Timezone: "Mars/Olympus", LockWaitTimeout: time.Second, MaxRangeDays: 10},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("无效时区应校验失败")
	}
}

func TestValidate_SweepCron(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Auth:   AuthConfig{JWTSecret: "0123456789abcdef0123"},
		Attendance: AttendanceConfig{
			Timezone:        "America/Bogota",
			LockWaitTimeout: time.Second,
			MaxRangeDays:    10,
			SweepEnabled:    true,
			SweepCron:       "every ten minutes",
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("无效 cron 表达式应校验失败")
	}

	cfg.Attendance.SweepCron = "*/10 * * * *"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("合法 cron 表达式不应报错: %v", err)
	}

	cfg.Attendance.SweepCron = ""
	cfg.Attendance.SweepEnabled = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("关闭补录时不校验 cron: %v", err)
	}
}
