package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	API       APIConfig       `mapstructure:"api" yaml:"api"`
	Cache     CacheConfig     `mapstructure:"cache" yaml:"cache"`
	Workspace WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
}

// LoggerConfig controls the zap logger set up in internal/observability.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// APIConfig locates the remote model/settings service.
type APIConfig struct {
	BaseURL string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// CacheConfig locates the durable workspace cache.
type CacheConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// WorkspaceConfig carries editor preferences applied when the remote settings
// service has nothing stored yet.
type WorkspaceConfig struct {
	AutoSave            bool `mapstructure:"auto_save" yaml:"auto_save"`
	AutoSaveIntervalSec int  `mapstructure:"auto_save_interval_sec" yaml:"auto_save_interval_sec"`
	SnapToGrid          bool `mapstructure:"snap_to_grid" yaml:"snap_to_grid"`
	GridSize            int  `mapstructure:"grid_size" yaml:"grid_size"`
}

// ServerConfig configures the embedded reference backend (dvw serve).
type ServerConfig struct {
	Addr           string   `mapstructure:"addr" yaml:"addr"`
	DSN            string   `mapstructure:"dsn" yaml:"dsn"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// setDefaults registers every default with viper so that config files and
// DVW_* environment variables only need to override what they change.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "dvw")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)

	v.SetDefault("api.base_url", "http://localhost:8000/api")
	v.SetDefault("api.timeout", 15*time.Second)

	v.SetDefault("cache.path", ".dvw/workspace.json")

	v.SetDefault("workspace.auto_save", false)
	v.SetDefault("workspace.auto_save_interval_sec", 30)
	v.SetDefault("workspace.snap_to_grid", false)
	v.SetDefault("workspace.grid_size", 16)

	v.SetDefault("server.addr", "127.0.0.1:8000")
	v.SetDefault("server.dsn", ".dvw/models.db")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
}

// Init wires defaults, the optional config file and the environment into the
// shared viper instance. cfgFile may be empty, in which case ./config.yaml is
// used when present.
func Init(v *viper.Viper, cfgFile string) error {
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("DVW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file is fine; defaults and env vars apply.
	}
	return nil
}

// Load unmarshals the current viper state into a Config.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}
