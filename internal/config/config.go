package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultHost       = "0.0.0.0"
	DefaultListenPort = 8080

	DefaultIdleTimeout     = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultTunnelTimeout   = 5 * time.Minute

	DefaultMaxObjectBytes = 1 << 20  // 1 MiB
	DefaultMaxCacheBytes  = 64 << 20 // 64 MiB

	DefaultWorkerPoolSize = 30
	DefaultProxyID        = "go-proxy"

	DefaultFileWriteDelay = 150 * time.Millisecond // lets a just-written config file settle before reload
)

var (
	lastReload  time.Time
	reloadMutex sync.Mutex
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			ListenPort:      DefaultListenPort,
			IdleTimeout:     DefaultIdleTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Cache: CacheConfig{
			MaxObjectBytes: DefaultMaxObjectBytes,
			MaxCacheBytes:  DefaultMaxCacheBytes,
		},
		Proxy: ProxyConfig{
			ProxyID:        DefaultProxyID,
			WorkerPoolSize: DefaultWorkerPoolSize,
			TunnelTimeout:  DefaultTunnelTimeout,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Theme:      "default",
			PrettyLogs: true,
			FileOutput: false,
			LogDir:     "./logs",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Validate checks that the configuration's values are within the ranges the
// proxy can actually operate under, returning the first violation found.
func (c *Config) Validate() error {
	if c.Server.ListenPort < 1 || c.Server.ListenPort > 65535 {
		return fmt.Errorf("server.listen_port must be between 1 and 65535, got %d", c.Server.ListenPort)
	}
	if c.Server.IdleTimeout <= 0 {
		return fmt.Errorf("server.idle_timeout must be positive, got %s", c.Server.IdleTimeout)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive, got %s", c.Server.ShutdownTimeout)
	}
	if c.Cache.MaxObjectBytes <= 0 {
		return fmt.Errorf("cache.max_object_bytes must be positive, got %d", c.Cache.MaxObjectBytes)
	}
	if c.Cache.MaxCacheBytes < c.Cache.MaxObjectBytes {
		return fmt.Errorf("cache.max_cache_bytes (%d) must be >= cache.max_object_bytes (%d)", c.Cache.MaxCacheBytes, c.Cache.MaxObjectBytes)
	}
	if c.Proxy.ProxyID == "" {
		return fmt.Errorf("proxy.proxy_id must not be empty")
	}
	if c.Proxy.WorkerPoolSize <= 0 {
		return fmt.Errorf("proxy.worker_pool_size must be positive, got %d", c.Proxy.WorkerPoolSize)
	}
	if c.Proxy.TunnelTimeout <= 0 {
		return fmt.Errorf("proxy.tunnel_timeout must be positive, got %s", c.Proxy.TunnelTimeout)
	}
	return nil
}

// Load loads configuration from file and environment variables, falling
// back to DefaultConfig for anything unset.
func Load(onConfigChange func()) (*Config, error) {
	cfg := DefaultConfig()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetEnvPrefix("OLLA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		if configFile := os.Getenv("OLLA_CONFIG_FILE"); configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
			}
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	viper.WatchConfig()

	if onConfigChange != nil {
		viper.OnConfigChange(func(e fsnotify.Event) {
			reloadMutex.Lock()
			defer reloadMutex.Unlock()

			now := time.Now()
			if now.Sub(lastReload) < 500*time.Millisecond {
				return // ignore rapid-fire duplicate events
			}
			lastReload = now

			// on some platforms this event fires before the write completes
			time.Sleep(DefaultFileWriteDelay)
			onConfigChange()
		})
	}
	return cfg, nil
}
