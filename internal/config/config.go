// Package config загрузка конфигурации сервиса из TOML
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config конфигурация сервиса
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Redis     RedisConfig     `toml:"redis"`
	Lifecycle LifecycleConfig `toml:"lifecycle"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Logs      LogsConfig      `toml:"logs"`
}

// ServerConfig настройки HTTP-сервера
type ServerConfig struct {
	HTTPPort        int `toml:"http_port"`
	ReadTimeout     int `toml:"read_timeout"`     // секунды
	WriteTimeout    int `toml:"write_timeout"`    // секунды
	IdleTimeout     int `toml:"idle_timeout"`     // секунды
	ShutdownTimeout int `toml:"shutdown_timeout"` // секунды
}

// DatabaseConfig настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	DBName          string `toml:"dbname"`
	SSLMode         string `toml:"sslmode"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime int    `toml:"conn_max_lifetime"` // секунды
}

// DSN строка подключения к базе данных
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisConfig настройки подключения к Redis
type RedisConfig struct {
	Addr          string `toml:"addr"`
	Password      string `toml:"password"`
	DB            int    `toml:"db"`
	StatusTTLSecs int    `toml:"status_ttl"` // TTL витрины занятости, секунды
}

// StatusTTL TTL витрины занятости
func (r *RedisConfig) StatusTTL() time.Duration {
	return time.Duration(r.StatusTTLSecs) * time.Second
}

// LifecycleConfig настройки жизненного цикла бронирований
type LifecycleConfig struct {
	HourlyRate            float64 `toml:"hourly_rate"`
	NoShowGraceMinutes    int     `toml:"no_show_grace_minutes"`
	OverstayGraceMinutes  int     `toml:"overstay_grace_minutes"`
	ReconcileIntervalSecs int     `toml:"reconcile_interval"` // секунды
}

// ReconcileInterval период фоновой реконсиляции
func (l *LifecycleConfig) ReconcileInterval() time.Duration {
	return time.Duration(l.ReconcileIntervalSecs) * time.Second
}

// MetricsConfig настройки Prometheus-метрик
type MetricsConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
	Path        string `toml:"path"`
}

// LogsConfig настройки логирования
type LogsConfig struct {
	File  string `toml:"file"`
	Level string `toml:"level"`
}

// Load читает конфигурацию из TOML-файла
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("decode config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Server.HTTPPort <= 0 {
		return fmt.Errorf("server.http_port must be positive")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if c.Lifecycle.ReconcileIntervalSecs <= 0 {
		return fmt.Errorf("lifecycle.reconcile_interval must be positive")
	}
	return nil
}
