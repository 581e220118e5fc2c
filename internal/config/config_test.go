package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != DefaultHost {
		t.Errorf("Expected host %s, got %s", DefaultHost, cfg.Server.Host)
	}
	if cfg.Server.ListenPort != DefaultListenPort {
		t.Errorf("Expected listen_port %d, got %d", DefaultListenPort, cfg.Server.ListenPort)
	}
	if cfg.Server.IdleTimeout != DefaultIdleTimeout {
		t.Errorf("Expected idle_timeout %s, got %s", DefaultIdleTimeout, cfg.Server.IdleTimeout)
	}

	if cfg.Cache.MaxObjectBytes != DefaultMaxObjectBytes {
		t.Errorf("Expected max_object_bytes %d, got %d", DefaultMaxObjectBytes, cfg.Cache.MaxObjectBytes)
	}
	if cfg.Cache.MaxCacheBytes != DefaultMaxCacheBytes {
		t.Errorf("Expected max_cache_bytes %d, got %d", DefaultMaxCacheBytes, cfg.Cache.MaxCacheBytes)
	}

	if cfg.Proxy.ProxyID != DefaultProxyID {
		t.Errorf("Expected proxy_id %s, got %s", DefaultProxyID, cfg.Proxy.ProxyID)
	}
	if cfg.Proxy.WorkerPoolSize != DefaultWorkerPoolSize {
		t.Errorf("Expected worker_pool_size %d, got %d", DefaultWorkerPoolSize, cfg.Proxy.WorkerPoolSize)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Expected log level 'info', got %s", cfg.Logging.Level)
	}
}

func TestConfigValidate_DefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() returned unexpected error: %v", err)
	}
}

func TestConfigValidate_RejectsBadFields(t *testing.T) {
	testCases := []struct {
		name        string
		modify      func(*Config)
		errContains string
	}{
		{
			name:        "listen_port zero",
			modify:      func(c *Config) { c.Server.ListenPort = 0 },
			errContains: "listen_port",
		},
		{
			name:        "listen_port above 65535",
			modify:      func(c *Config) { c.Server.ListenPort = 99999 },
			errContains: "listen_port",
		},
		{
			name:        "idle_timeout zero",
			modify:      func(c *Config) { c.Server.IdleTimeout = 0 },
			errContains: "idle_timeout",
		},
		{
			name:        "max_object_bytes zero",
			modify:      func(c *Config) { c.Cache.MaxObjectBytes = 0 },
			errContains: "max_object_bytes",
		},
		{
			name: "max_cache_bytes smaller than max_object_bytes",
			modify: func(c *Config) {
				c.Cache.MaxObjectBytes = 1 << 20
				c.Cache.MaxCacheBytes = 1 << 10
			},
			errContains: "max_cache_bytes",
		},
		{
			name:        "empty proxy_id",
			modify:      func(c *Config) { c.Proxy.ProxyID = "" },
			errContains: "proxy_id",
		},
		{
			name:        "worker_pool_size zero",
			modify:      func(c *Config) { c.Proxy.WorkerPoolSize = 0 },
			errContains: "worker_pool_size",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.modify(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tc.errContains)
			}
			if !strings.Contains(err.Error(), tc.errContains) {
				t.Errorf("Expected error containing %q, got %q", tc.errContains, err.Error())
			}
		})
	}
}

func TestLoadConfig_WithoutFile(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.ListenPort != DefaultListenPort {
		t.Errorf("Expected default listen_port %d, got %d", DefaultListenPort, cfg.Server.ListenPort)
	}
}

func TestLoadConfig_WithEnvironmentVariables(t *testing.T) {
	testEnvVars := map[string]string{
		"OLLA_SERVER_LISTEN_PORT": "9090",
		"OLLA_SERVER_HOST":        "127.0.0.1",
		"OLLA_PROXY_PROXY_ID":     "test-proxy",
		"OLLA_LOGGING_LEVEL":      "debug",
	}

	for key, value := range testEnvVars {
		os.Setenv(key, value)
	}
	defer func() {
		for key := range testEnvVars {
			os.Unsetenv(key)
		}
	}()

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load with env vars failed: %v", err)
	}

	if cfg.Server.ListenPort != 9090 {
		t.Errorf("Expected listen_port 9090 from env var, got %d", cfg.Server.ListenPort)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Expected host 127.0.0.1 from env var, got %s", cfg.Server.Host)
	}
	if cfg.Proxy.ProxyID != "test-proxy" {
		t.Errorf("Expected proxy_id test-proxy from env var, got %s", cfg.Proxy.ProxyID)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug from env var, got %s", cfg.Logging.Level)
	}
}

func TestConfigTypes(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.IdleTimeout.String() == "" {
		t.Error("IdleTimeout should be a valid duration")
	}
	if cfg.Proxy.TunnelTimeout != 5*time.Minute {
		t.Errorf("Expected default tunnel timeout 5m, got %v", cfg.Proxy.TunnelTimeout)
	}
}
