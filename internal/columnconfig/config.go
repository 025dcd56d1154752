// Package columnconfig loads columnctl's configuration from a YAML/JSON
// file plus flag overrides, using github.com/spf13/viper bound against
// github.com/spf13/pflag flags.
package columnconfig

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/zeebo/errs"
)

// Class is this package's error wrapping class.
var Class = errs.Class("columnconfig")

// Config is the subset of columnctl's configuration read from file or
// flags.
type Config struct {
	DBPrefix     string `mapstructure:"db_prefix"`
	ServerID     int    `mapstructure:"server_id"`
	MaxOpenFiles int    `mapstructure:"max_open_files"`
	BlobBufferMB int    `mapstructure:"blob_buffer_mb"`
	Metrics      bool   `mapstructure:"metrics"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

// Defaults returns the configuration used when no file or flags
// override a field.
func Defaults() Config {
	return Config{
		ServerID:     0,
		MaxOpenFiles: 64,
		BlobBufferMB: 63,
		MetricsAddr:  ":9090",
	}
}

// BindFlags registers columnctl's persistent flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	d := Defaults()
	fs.String("db", "", "path to the column database prefix")
	fs.Int("server-id", d.ServerID, "disjoint log-number space for this server")
	fs.Int("max-open-files", d.MaxOpenFiles, "handle cache capacity")
	fs.Int("blob-buffer-mb", d.BlobBufferMB, "mirror buffer size in MiB")
	fs.Bool("metrics", d.Metrics, "expose Prometheus metrics")
	fs.String("metrics-addr", d.MetricsAddr, "listen address for the metrics endpoint")
}

// Load reads configFile (if non-empty) via viper, overlays it with any
// flags in fs that were explicitly set, and returns the merged Config.
func Load(configFile string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COLUMNDB")
	v.AutomaticEnv()

	cfg := Defaults()
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return cfg, Class.Wrap(err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return cfg, Class.Wrap(err)
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return cfg, Class.Wrap(err)
	}
	if db := v.GetString("db"); db != "" {
		cfg.DBPrefix = db
	}
	if fs.Changed("server-id") {
		cfg.ServerID = v.GetInt("server-id")
	}
	if fs.Changed("max-open-files") {
		cfg.MaxOpenFiles = v.GetInt("max-open-files")
	}
	if fs.Changed("blob-buffer-mb") {
		cfg.BlobBufferMB = v.GetInt("blob-buffer-mb")
	}
	if fs.Changed("metrics") {
		cfg.Metrics = v.GetBool("metrics")
	}
	if fs.Changed("metrics-addr") {
		cfg.MetricsAddr = v.GetString("metrics-addr")
	}

	return cfg, nil
}
