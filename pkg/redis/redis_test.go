package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func getTestConfig() *Config {
	cfg := DefaultConfig()
	if host := os.Getenv("TEST_REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	if password := os.Getenv("TEST_REDIS_PASSWORD"); password != "" {
		cfg.Password = password
	}
	return cfg
}

func skipIfNoIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Host != "localhost" {
		t.Errorf("Expected host 'localhost', got '%s'", cfg.Host)
	}
	if cfg.Port != 6379 {
		t.Errorf("Expected port 6379, got %d", cfg.Port)
	}
	if cfg.PoolTimeout != 4*time.Second {
		t.Errorf("Expected pool timeout 4s, got %v", cfg.PoolTimeout)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("Expected max retries 3, got %d", cfg.MaxRetries)
	}
}

func TestConfig_Addr(t *testing.T) {
	cfg := &Config{Host: "redis.example.com", Port: 6380}
	if got := cfg.Addr(); got != "redis.example.com:6380" {
		t.Errorf("Expected addr 'redis.example.com:6380', got '%s'", got)
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &Config{
		Host:          "127.0.0.1",
		Port:          1,
		MaxRetries:    0,
		RetryInterval: 10 * time.Millisecond,
		DialTimeout:   200 * time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := NewClient(ctx, cfg); err == nil {
		t.Error("Expected error for unreachable redis")
	}
}

func TestComputeSHA1(t *testing.T) {
	// SHA1 of "return 1" as reported by SCRIPT LOAD
	if got := computeSHA1("return 1"); got != "e0e1f9fabfc9d4800c877a703b823ac0578ff8db" {
		t.Errorf("computeSHA1() = %s", got)
	}
}

func TestIsNoScriptError(t *testing.T) {
	if isNoScriptError(nil) {
		t.Error("nil should not be a NOSCRIPT error")
	}
	if !isNoScriptError(errors.New("NOSCRIPT No matching script. Please use EVAL.")) {
		t.Error("expected NOSCRIPT error to be detected")
	}
	if isNoScriptError(errors.New("ERR something else")) {
		t.Error("unexpected NOSCRIPT match")
	}
}

func TestLock_Integration(t *testing.T) {
	skipIfNoIntegration(t)

	ctx := context.Background()
	client, err := NewClient(ctx, getTestConfig())
	if err != nil {
		t.Fatalf("Failed to connect to redis: %v", err)
	}
	defer client.Close()

	key := "test:lock:" + time.Now().Format("150405.000000")
	defer client.Del(ctx, key)

	first, err := client.AcquireLock(ctx, key, 5*time.Second)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	if _, err := client.AcquireLock(ctx, key, 5*time.Second); !errors.Is(err, ErrLockNotAcquired) {
		t.Errorf("second AcquireLock() error = %v, want ErrLockNotAcquired", err)
	}

	if err := first.Release(ctx); err != nil {
		t.Errorf("Release() error = %v", err)
	}
	if err := first.Release(ctx); !errors.Is(err, ErrLockNotAcquired) {
		t.Errorf("double Release() error = %v, want ErrLockNotAcquired", err)
	}

	again, err := client.AcquireLock(ctx, key, 5*time.Second)
	if err != nil {
		t.Fatalf("AcquireLock() after release error = %v", err)
	}
	_ = again.Release(ctx)
}
