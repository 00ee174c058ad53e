package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Query     QueryConfig     `yaml:"query" mapstructure:"query"`
	Duplicate DuplicateConfig `yaml:"duplicate" mapstructure:"duplicate"`
	Phone     PhoneConfig     `yaml:"phone" mapstructure:"phone"`
	Geocode   GeocodeConfig   `yaml:"geocode" mapstructure:"geocode"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Export    ExportConfig    `yaml:"export" mapstructure:"export"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// QueryConfig controls pagination and geo resolution of entry queries.
type QueryConfig struct {
	ItemsPerPage  int `yaml:"items_per_page" mapstructure:"items_per_page"`
	GeoCandidates int `yaml:"geo_candidates" mapstructure:"geo_candidates"`
}

// DuplicateConfig controls duplicate candidate scoring on submission.
type DuplicateConfig struct {
	Threshold     float64 `yaml:"threshold" mapstructure:"threshold"`
	AddressWeight float64 `yaml:"address_weight" mapstructure:"address_weight"`
}

// PhoneConfig controls telephone normalization.
type PhoneConfig struct {
	DefaultRegion string `yaml:"default_region" mapstructure:"default_region"`
}

// GeocodeConfig holds address geocoder settings.
type GeocodeConfig struct {
	APIURL     string `yaml:"api_url" mapstructure:"api_url"`
	UserAgent  string `yaml:"user_agent" mapstructure:"user_agent"`
	IntervalMS int    `yaml:"interval_ms" mapstructure:"interval_ms"`
	QueueSize  int    `yaml:"queue_size" mapstructure:"queue_size"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// AuthConfig holds the shared secret used to verify bearer tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" mapstructure:"jwt_secret"`
}

// ExportConfig controls where backups are written.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml and DIRECTORY_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("DIRECTORY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("query.items_per_page", 10)
	v.SetDefault("query.geo_candidates", 6)
	v.SetDefault("duplicate.threshold", 3)
	v.SetDefault("duplicate.address_weight", 0.5)
	v.SetDefault("phone.default_region", "DE")
	v.SetDefault("geocode.api_url", "https://nominatim.openstreetmap.org/search")
	v.SetDefault("geocode.user_agent", "directory/1.0")
	v.SetDefault("geocode.interval_ms", 1100)
	v.SetDefault("geocode.queue_size", 256)
	v.SetDefault("server.port", 1300)
	v.SetDefault("server.cors_origins", []string{"http://localhost:8080"})
	v.SetDefault("export.dir", "./files/backups")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger replaces the global zap logger according to cfg.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
