package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user configuration directory under $HOME.
const DirName = ".excelinsight"

// Global configuration structure.
type Global struct {
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	PreviewRows int    `mapstructure:"preview_rows" yaml:"preview_rows"`
	ServerAddr  string `mapstructure:"server_addr" yaml:"server_addr"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// Chart image size in pixels
	ChartWidth  int `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int `mapstructure:"chart_height" yaml:"chart_height"`

	// Trip generator
	TripsCount int   `mapstructure:"trips_count" yaml:"trips_count"`
	TripsSeed  int64 `mapstructure:"trips_seed" yaml:"trips_seed"`

	// Export sink: local or minio
	ExportSink string `mapstructure:"export_sink" yaml:"export_sink"`
	ExportDir  string `mapstructure:"export_dir" yaml:"export_dir"`

	MinioEndpoint  string `mapstructure:"minio_endpoint" yaml:"minio_endpoint"`
	MinioAccessKey string `mapstructure:"minio_access_key" yaml:"minio_access_key"`
	MinioSecretKey string `mapstructure:"minio_secret_key" yaml:"minio_secret_key"`
	MinioBucket    string `mapstructure:"minio_bucket" yaml:"minio_bucket"`
	MinioPrefix    string `mapstructure:"minio_prefix" yaml:"minio_prefix"`
	MinioRegion    string `mapstructure:"minio_region" yaml:"minio_region"`
	MinioUseSSL    bool   `mapstructure:"minio_use_ssl" yaml:"minio_use_ssl"`

	// Server caches
	WorkbookTTLMin int `mapstructure:"workbook_ttl_min" yaml:"workbook_ttl_min"`
	DownloadTTLMin int `mapstructure:"download_ttl_min" yaml:"download_ttl_min"`
}

// MaxUploadBytes is MaxUploadMB in bytes.
func (c *Global) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

func defaults(v *viper.Viper) {
	v.SetDefault("max_upload_mb", 20)
	v.SetDefault("preview_rows", 10)
	v.SetDefault("server_addr", "127.0.0.1:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("chart_width", 1100)
	v.SetDefault("chart_height", 600)
	v.SetDefault("trips_count", 1000)
	v.SetDefault("trips_seed", 42)
	v.SetDefault("export_sink", "local")
	v.SetDefault("export_dir", ".")
	v.SetDefault("minio_endpoint", "")
	v.SetDefault("minio_access_key", "")
	v.SetDefault("minio_secret_key", "")
	v.SetDefault("minio_bucket", "")
	v.SetDefault("minio_prefix", "excelinsight")
	v.SetDefault("minio_region", "us-east-1")
	v.SetDefault("minio_use_ssl", false)
	v.SetDefault("workbook_ttl_min", 30)
	v.SetDefault("download_ttl_min", 10)
}

// Default returns the built-in configuration without reading a file or the
// environment.
func Default() *Global {
	v := viper.New()
	defaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

func defaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, DirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.excelinsight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := defaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("EXCELINSIGHT")
	v.AutomaticEnv()
	defaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		p, err := defaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(p))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// The file is optional; a broken one is not.
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects values no command can work with.
func (c *Global) Validate() error {
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.MaxUploadMB)
	}
	if c.ChartWidth <= 0 || c.ChartHeight <= 0 {
		return fmt.Errorf("chart size must be positive, got %dx%d", c.ChartWidth, c.ChartHeight)
	}
	switch strings.ToLower(c.ExportSink) {
	case "", "local", "minio", "s3":
	default:
		return fmt.Errorf("invalid export_sink: %s (use local or minio)", c.ExportSink)
	}
	return nil
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"max_upload_mb", "preview_rows", "server_addr", "log_level", "log_format",
	"chart_width", "chart_height", "trips_count", "trips_seed",
	"export_sink", "export_dir",
	"minio_endpoint", "minio_access_key", "minio_secret_key", "minio_bucket", "minio_prefix", "minio_region", "minio_use_ssl",
	"workbook_ttl_min", "download_ttl_min",
}

// Set assigns one key from its string form.
func (c *Global) Set(key, val string) error {
	atoi := func(dst *int) error {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*dst = i
		return nil
	}
	switch key {
	case "max_upload_mb":
		return atoi(&c.MaxUploadMB)
	case "preview_rows":
		return atoi(&c.PreviewRows)
	case "server_addr":
		c.ServerAddr = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "json", "console":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use json or console)", val)
		}
	case "chart_width":
		return atoi(&c.ChartWidth)
	case "chart_height":
		return atoi(&c.ChartHeight)
	case "trips_count":
		return atoi(&c.TripsCount)
	case "trips_seed":
		i, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid int for trips_seed: %w", err)
		}
		c.TripsSeed = i
	case "export_sink":
		switch strings.ToLower(val) {
		case "local":
			c.ExportSink = "local"
		case "minio", "s3":
			c.ExportSink = "minio"
		default:
			return fmt.Errorf("invalid export_sink: %s (use local or minio)", val)
		}
	case "export_dir":
		c.ExportDir = val
	case "minio_endpoint":
		c.MinioEndpoint = val
	case "minio_access_key":
		c.MinioAccessKey = val
	case "minio_secret_key":
		c.MinioSecretKey = val
	case "minio_bucket":
		c.MinioBucket = val
	case "minio_prefix":
		c.MinioPrefix = val
	case "minio_region":
		c.MinioRegion = val
	case "minio_use_ssl":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for minio_use_ssl: %w", err)
		}
		c.MinioUseSSL = b
	case "workbook_ttl_min":
		return atoi(&c.WorkbookTTLMin)
	case "download_ttl_min":
		return atoi(&c.DownloadTTLMin)
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Get returns the string form of key for display; secrets are masked.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "max_upload_mb":
		return strconv.Itoa(c.MaxUploadMB), nil
	case "preview_rows":
		return strconv.Itoa(c.PreviewRows), nil
	case "server_addr":
		return c.ServerAddr, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "chart_width":
		return strconv.Itoa(c.ChartWidth), nil
	case "chart_height":
		return strconv.Itoa(c.ChartHeight), nil
	case "trips_count":
		return strconv.Itoa(c.TripsCount), nil
	case "trips_seed":
		return strconv.FormatInt(c.TripsSeed, 10), nil
	case "export_sink":
		return c.ExportSink, nil
	case "export_dir":
		return c.ExportDir, nil
	case "minio_endpoint":
		return c.MinioEndpoint, nil
	case "minio_access_key":
		return c.MinioAccessKey, nil
	case "minio_secret_key":
		return Mask(c.MinioSecretKey), nil
	case "minio_bucket":
		return c.MinioBucket, nil
	case "minio_prefix":
		return c.MinioPrefix, nil
	case "minio_region":
		return c.MinioRegion, nil
	case "minio_use_ssl":
		return strconv.FormatBool(c.MinioUseSSL), nil
	case "workbook_ttl_min":
		return strconv.Itoa(c.WorkbookTTLMin), nil
	case "download_ttl_min":
		return strconv.Itoa(c.DownloadTTLMin), nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

// Mask hides the middle of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
