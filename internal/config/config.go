// Package config loads workspace configuration with viper. Values come from,
// in increasing precedence: built-in defaults, the user config file, the
// workspace config file, and PROV_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/provenance/internal/paths"
	"github.com/mesh-intelligence/provenance/pkg/types"
)

// EnvPrefix is prepended to every environment override, e.g.
// PROV_LOG_LEVEL for log.level.
const EnvPrefix = "PROV"

type LogCfg struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type DatabaseCfg struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	DSN     string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

type S3Cfg struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Region    string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style,omitempty"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix,omitempty"`
}

type MirrorCfg struct {
	S3 S3Cfg `mapstructure:"s3" yaml:"s3,omitempty"`
}

type StoreCfg struct {
	Mirror MirrorCfg `mapstructure:"mirror" yaml:"mirror,omitempty"`
}

type MetricsCfg struct {
	Textfile string `mapstructure:"textfile" yaml:"textfile,omitempty"`
}

// Config is the resolved configuration of one workspace.
type Config struct {
	Log      LogCfg      `mapstructure:"log" yaml:"log"`
	Database DatabaseCfg `mapstructure:"database" yaml:"database"`
	Store    StoreCfg    `mapstructure:"store" yaml:"store,omitempty"`
	Metrics  MetricsCfg  `mapstructure:"metrics" yaml:"metrics,omitempty"`
}

// Default returns the configuration written by init.
func Default() Config {
	return Config{
		Log:      LogCfg{Level: "warn", Format: "console"},
		Database: DatabaseCfg{Backend: types.BackendSQLite},
		Store:    StoreCfg{Mirror: MirrorCfg{S3: S3Cfg{Region: "us-east-1"}}},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("database.backend", d.Database.Backend)
	v.SetDefault("database.dsn", "")
	v.SetDefault("store.mirror.s3.bucket", "")
	v.SetDefault("store.mirror.s3.region", d.Store.Mirror.S3.Region)
	v.SetDefault("store.mirror.s3.endpoint", "")
	v.SetDefault("store.mirror.s3.path_style", false)
	v.SetDefault("store.mirror.s3.prefix", "")
	v.SetDefault("metrics.textfile", "")
}

// Load resolves the configuration of the workspace rooted at top. Missing
// config files are not an error.
func Load(top string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	if dir, err := paths.DefaultConfigDir(); err == nil {
		if err := merge(v, filepath.Join(dir, paths.ConfigFileName)); err != nil {
			return nil, err
		}
	}
	if top != "" {
		if err := merge(v, paths.ConfigFile(top)); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func merge(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.MergeInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// Backend returns the storage configuration for the workspace rooted at
// top. The SQLite database lives in the workspace directory.
func (c *Config) Backend(top string) types.Config {
	return types.Config{
		Backend: c.Database.Backend,
		DataDir: paths.WorkspaceDir(top),
		DSN:     c.Database.DSN,
	}
}

// Write stores cfg as the workspace config file of top.
func Write(top string, cfg Config) error {
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := []byte("# prov workspace configuration\n")
	return os.WriteFile(paths.ConfigFile(top), append(header, data...), 0o644)
}
