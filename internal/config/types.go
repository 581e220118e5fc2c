package config

import "time"

// Config holds all configuration for the proxy.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Proxy   ProxyConfig   `yaml:"proxy"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig holds listener and connection lifecycle configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	ListenPort      int           `yaml:"listen_port"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CacheConfig holds the bounded LRU cache's admission and capacity limits.
type CacheConfig struct {
	MaxObjectBytes int64 `yaml:"max_object_bytes"`
	MaxCacheBytes  int64 `yaml:"max_cache_bytes"`
}

// ProxyConfig holds proxy-identity and concurrency configuration.
type ProxyConfig struct {
	ProxyID        string        `yaml:"proxy_id"`
	WorkerPoolSize int           `yaml:"worker_pool_size"`
	TunnelTimeout  time.Duration `yaml:"tunnel_timeout"`
}

// LoggingConfig holds logging sink configuration.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Theme      string `yaml:"theme"`
	PrettyLogs bool   `yaml:"pretty_logs"`
	FileOutput bool   `yaml:"file_output"`
	LogDir     string `yaml:"log_dir"`
	MaxSize    int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age_days"`
}
