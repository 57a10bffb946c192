// Copyright (c) 2025 Sheetlink
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package config loads CLI and relay settings with Viper from config.yaml in the XDG
// config dir, SHEETLINK_* environment variables and bound command flags, in rising
// order of precedence.
//
// The Databricks access token may live here or in SHEETLINK_DATABRICKS_TOKEN. It is
// passed through to the relay verbatim and never validated or refreshed.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	serrors "sheetlink/cli/internal/errors"
	"sheetlink/cli/internal/xdg"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	envPrefix      = "SHEETLINK"
)

// Config holds every setting the commands read.
type Config struct {
	Relay      RelayConfig      `mapstructure:"relay"`
	Databricks DatabricksConfig `mapstructure:"databricks"`
	Workbook   WorkbookConfig   `mapstructure:"workbook"`
	Poll       PollConfig       `mapstructure:"poll"`
	Display    DisplayConfig    `mapstructure:"display"`
	Log        LogConfig        `mapstructure:"log"`
}

// RelayConfig configures both the relay server and the client's view of it.
type RelayConfig struct {
	URL            string `mapstructure:"url"`
	Addr           string `mapstructure:"addr"`
	CORSOrigin     string `mapstructure:"cors_origin"`
	RatePerMinute  int    `mapstructure:"rate_per_minute"`
	GRPCHealthAddr string `mapstructure:"grpc_health_addr"`
	PostgresDSN    string `mapstructure:"postgres_dsn"`
}

// DatabricksConfig is the workspace connection passed to every relay call.
type DatabricksConfig struct {
	Host        string `mapstructure:"host"`
	WarehouseID string `mapstructure:"warehouse_id"`
	SpaceID     string `mapstructure:"space_id"`
	Token       string `mapstructure:"token"`
}

// WorkbookConfig points at the spreadsheet results are written to.
type WorkbookConfig struct {
	Path string `mapstructure:"path"`
}

// PollConfig tunes Genie status polling.
type PollConfig struct {
	Interval    time.Duration `mapstructure:"interval"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// DisplayConfig controls terminal result tables.
type DisplayConfig struct {
	RowsPerPage int `mapstructure:"rows_per_page"`
}

// LogConfig controls the relay logger.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type kind int

const (
	kindString kind = iota
	kindInt
	kindBool
	kindDuration
)

var keys = map[string]kind{
	"relay.url":               kindString,
	"relay.addr":              kindString,
	"relay.cors_origin":       kindString,
	"relay.rate_per_minute":   kindInt,
	"relay.grpc_health_addr":  kindString,
	"relay.postgres_dsn":      kindString,
	"databricks.host":         kindString,
	"databricks.warehouse_id": kindString,
	"databricks.space_id":     kindString,
	"databricks.token":        kindString,
	"workbook.path":           kindString,
	"poll.interval":           kindDuration,
	"poll.max_attempts":       kindInt,
	"display.rows_per_page":   kindInt,
	"log.level":               kindString,
	"log.json":                kindBool,
}

var defaults = map[string]any{
	"relay.url":             "http://localhost:3001",
	"relay.addr":            ":3001",
	"relay.cors_origin":     "*",
	"relay.rate_per_minute": 120,
	"workbook.path":         "sheetlink.xlsx",
	"poll.interval":         5 * time.Second,
	"poll.max_attempts":     60,
	"display.rows_per_page": 25,
	"log.level":             "info",
	"log.json":              false,
}

// Secret reports whether key holds a credential that must be masked on display.
func Secret(key string) bool {
	return key == "databricks.token" || key == "relay.postgres_dsn"
}

// Keys lists every supported key in sorted order.
func Keys() []string {
	out := make([]string, 0, len(keys))
	for k := range keys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Store is a loaded configuration bound to its file.
type Store struct {
	v   *viper.Viper
	dir string
}

// Open reads config.yaml from dir, or from the XDG config dir when dir is empty.
// A missing file is not an error.
func Open(dir string) (*Store, error) {
	if dir == "" {
		d, err := xdg.ConfigDir()
		if err != nil {
			return nil, serrors.Wrap(serrors.Config, "resolve config dir", err)
		}
		dir = d
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for k := range keys {
		// BindEnv makes env-only keys visible to Unmarshal.
		_ = v.BindEnv(k)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, serrors.Wrap(serrors.Config, "read config", err)
		}
	}
	return &Store{v: v, dir: dir}, nil
}

// Viper exposes the underlying instance so commands can bind their flags.
func (s *Store) Viper() *viper.Viper { return s.v }

// Path is the config file location, whether or not it exists yet.
func (s *Store) Path() string {
	return filepath.Join(s.dir, configFileName+"."+configFileType)
}

// Config decodes the effective settings.
func (s *Store) Config() (Config, error) {
	var c Config
	if err := s.v.Unmarshal(&c); err != nil {
		return c, serrors.Wrap(serrors.Config, "decode config", err)
	}
	return c, nil
}

// Get returns the effective value of key as text.
func (s *Store) Get(key string) string {
	return fmt.Sprint(s.v.Get(key))
}

// Set validates value for key and persists it to the config file. Only the file's own
// contents are written back; environment and flag overrides stay out of it.
func (s *Store) Set(key, value string) error {
	k, ok := keys[key]
	if !ok {
		return serrors.New(serrors.Config, fmt.Sprintf("unknown config key %q", key))
	}
	typed, err := parse(k, value)
	if err != nil {
		return serrors.Wrap(serrors.Config, fmt.Sprintf("invalid value for %s", key), err)
	}

	file := viper.New()
	file.SetConfigFile(s.Path())
	file.SetConfigType(configFileType)
	if err := file.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return serrors.Wrap(serrors.Config, "read config", err)
	}
	file.Set(key, typed)
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return serrors.Wrap(serrors.Config, "create config dir", err)
	}
	if err := file.WriteConfigAs(s.Path()); err != nil {
		return serrors.Wrap(serrors.Config, "write config", err)
	}
	if err := os.Chmod(s.Path(), 0o600); err != nil {
		return serrors.Wrap(serrors.Config, "protect config", err)
	}
	s.v.Set(key, typed)
	return nil
}

func parse(k kind, value string) (any, error) {
	switch k {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, err
		}
		if n <= 0 {
			return nil, errors.New("must be positive")
		}
		return n, nil
	case kindBool:
		return strconv.ParseBool(value)
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, err
		}
		if d <= 0 {
			return nil, errors.New("must be positive")
		}
		return value, nil
	}
	return value, nil
}

// RequireWarehouse checks the settings a SQL query needs.
func (c Config) RequireWarehouse() error {
	return requireFields(map[string]string{
		"databricks.host":         c.Databricks.Host,
		"databricks.token":        c.Databricks.Token,
		"databricks.warehouse_id": c.Databricks.WarehouseID,
	})
}

// RequireGenie checks the settings a Genie question needs.
func (c Config) RequireGenie() error {
	return requireFields(map[string]string{
		"databricks.host":     c.Databricks.Host,
		"databricks.token":    c.Databricks.Token,
		"databricks.space_id": c.Databricks.SpaceID,
	})
}

func requireFields(fields map[string]string) error {
	var missing []string
	for k, v := range fields {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return serrors.New(serrors.Config, "missing configuration: "+strings.Join(missing, ", ")+
		" (set with 'sheetlink config set <key> <value>' or SHEETLINK_* environment variables)")
}
