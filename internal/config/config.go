package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"threadpool/internal/logger"
	"threadpool/internal/pool"
	"threadpool/internal/scenario"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// 環境変数名
const (
	EnvPoolSize      = "THREADPOOL_SIZE"
	EnvLogLevel      = "THREADPOOL_LOG_LEVEL"
	EnvServerAddr    = "THREADPOOL_ADDR"
	EnvAdminAddr     = "THREADPOOL_ADMIN_ADDR"
	EnvMaxConns      = "THREADPOOL_MAX_CONNS"
	EnvRecoverPanics = "THREADPOOL_RECOVER_PANICS"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// FileConfig は設定ファイルの構造
type FileConfig struct {
	Pool     PoolConfig     `yaml:"pool" json:"pool"`
	Log      LogConfig      `yaml:"log" json:"log"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Scenario ScenarioConfig `yaml:"scenario" json:"scenario"`
}

// PoolConfig はプール設定
type PoolConfig struct {
	Size          int   `yaml:"size" json:"size" validate:"gte=0"`
	RecoverPanics *bool `yaml:"recover_panics" json:"recover_panics"`
}

// LogConfig はログ設定
type LogConfig struct {
	Level string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Addr          string `yaml:"addr" json:"addr" validate:"omitempty,hostname_port"`
	AdminAddr     string `yaml:"admin_addr" json:"admin_addr" validate:"omitempty,hostname_port"`
	MaxConns      int    `yaml:"max_conns" json:"max_conns" validate:"gte=0"`
	SleepDelay    string `yaml:"sleep_delay" json:"sleep_delay"`
	StatsInterval string `yaml:"stats_interval" json:"stats_interval"`
}

// ScenarioConfig はシナリオ設定
type ScenarioConfig struct {
	Preset        string `yaml:"preset" json:"preset"`
	Name          string `yaml:"name" json:"name"`
	Description   string `yaml:"description" json:"description"`
	Producers     int    `yaml:"producers" json:"producers" validate:"gte=0"`
	Jobs          int    `yaml:"jobs" json:"jobs" validate:"gte=0"`
	JobDuration   string `yaml:"job_duration" json:"job_duration"`
	PanicEvery    int    `yaml:"panic_every" json:"panic_every" validate:"gte=0"`
	TeardownBound string `yaml:"teardown_bound" json:"teardown_bound"`
}

// LoadFile は設定ファイルを読み込む
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config FileConfig
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}

	return &config, nil
}

// LoadEnv は .env ファイルを環境変数に読み込む
// ファイルが存在しない場合は何もしない
func LoadEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// ApplyEnv は THREADPOOL_* 環境変数で設定を上書きする
func (f *FileConfig) ApplyEnv() error {
	if v := os.Getenv(EnvPoolSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPoolSize, err)
		}
		f.Pool.Size = n
	}
	if v := os.Getenv(EnvRecoverPanics); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvRecoverPanics, err)
		}
		f.Pool.RecoverPanics = &b
	}
	if v := os.Getenv(EnvMaxConns); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvMaxConns, err)
		}
		f.Server.MaxConns = n
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		f.Log.Level = v
	}
	if v := os.Getenv(EnvServerAddr); v != "" {
		f.Server.Addr = v
	}
	if v := os.Getenv(EnvAdminAddr); v != "" {
		f.Server.AdminAddr = v
	}
	return nil
}

// Validate は設定を検証する
func (f *FileConfig) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	durations := map[string]string{
		"server.sleep_delay":      f.Server.SleepDelay,
		"server.stats_interval":   f.Server.StatsInterval,
		"scenario.job_duration":   f.Scenario.JobDuration,
		"scenario.teardown_bound": f.Scenario.TeardownBound,
	}
	for field, v := range durations {
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", field, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative", field)
		}
	}

	if f.Scenario.Preset != "" {
		if _, ok := scenario.GetPreset(f.Scenario.Preset); !ok {
			return fmt.Errorf("unknown scenario preset: %s", f.Scenario.Preset)
		}
	}

	return nil
}

// ToPoolConfig は pool.Config に変換する
func (f *FileConfig) ToPoolConfig() pool.Config {
	config := pool.DefaultConfig()
	if f.Pool.Size > 0 {
		config.Size = f.Pool.Size
	}
	if f.Pool.RecoverPanics != nil {
		config.RecoverPanics = *f.Pool.RecoverPanics
	}
	return config
}

// LogLevel はログレベルを返す
func (f *FileConfig) LogLevel() (logger.Level, error) {
	return logger.ParseLevel(f.Log.Level)
}

// ToScenarioConfig は scenario.Config に変換する
func (f *FileConfig) ToScenarioConfig() (scenario.Config, error) {
	sc := f.Scenario

	config := scenario.DefaultConfig()
	if sc.Preset != "" {
		preset, ok := scenario.GetPreset(sc.Preset)
		if !ok {
			return config, fmt.Errorf("unknown scenario preset: %s", sc.Preset)
		}
		config = preset
	}

	if sc.Name != "" {
		config.Name = sc.Name
	}
	if sc.Description != "" {
		config.Description = sc.Description
	}
	if f.Pool.Size > 0 {
		config.Workers = f.Pool.Size
	}
	if sc.Producers > 0 {
		config.Producers = sc.Producers
	}
	if sc.Jobs > 0 {
		config.Jobs = sc.Jobs
	}
	if sc.PanicEvery > 0 {
		config.PanicEvery = sc.PanicEvery
	}
	if sc.JobDuration != "" {
		d, err := time.ParseDuration(sc.JobDuration)
		if err != nil {
			return config, fmt.Errorf("invalid job duration: %w", err)
		}
		config.JobDuration = d
	}
	if sc.TeardownBound != "" {
		d, err := time.ParseDuration(sc.TeardownBound)
		if err != nil {
			return config, fmt.Errorf("invalid teardown bound: %w", err)
		}
		config.TeardownBound = d
	}

	return config, nil
}

// Durations はサーバー関連の時間設定を返す（未指定は 0）
func (s ServerConfig) Durations() (sleepDelay, statsInterval time.Duration, err error) {
	if s.SleepDelay != "" {
		if sleepDelay, err = time.ParseDuration(s.SleepDelay); err != nil {
			return 0, 0, fmt.Errorf("invalid sleep delay: %w", err)
		}
	}
	if s.StatsInterval != "" {
		if statsInterval, err = time.ParseDuration(s.StatsInterval); err != nil {
			return 0, 0, fmt.Errorf("invalid stats interval: %w", err)
		}
	}
	return sleepDelay, statsInterval, nil
}
