package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/ridoystarlord/redatlas/utils"
)

// Config is the full runtime configuration. It is loaded once by the CLI and
// handed to every component explicitly.
type Config struct {
	Sources  SourcesConfig  `mapstructure:"sources" yaml:"sources"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Ingest   IngestConfig   `mapstructure:"ingest" yaml:"ingest"`
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	Boundary BoundaryConfig `mapstructure:"boundary" yaml:"boundary"`
	Colors   ColorsConfig   `mapstructure:"colors" yaml:"colors"`
	S3       S3Config       `mapstructure:"s3" yaml:"s3"`
	Tables   []TableSource  `mapstructure:"tables" yaml:"tables"`
	Filters  []string       `mapstructure:"filters" yaml:"filters"`     // recognized flat-table filter columns
	LogLevel string         `mapstructure:"log_level" yaml:"log_level"` // debug, info, warn, error
}

// TableSource names a tab-separated table shown in the table view. Path is a
// local file or an s3://bucket/key URL.
type TableSource struct {
	Name string `mapstructure:"name" yaml:"name"`
	Path string `mapstructure:"path" yaml:"path"`
}

// ContinentColor is one entry of the boundary fill table.
type ContinentColor struct {
	Continent string `mapstructure:"continent" yaml:"continent"`
	Color     string `mapstructure:"color" yaml:"color"`
}

// SourcesConfig points at the two ingestion spreadsheets.
type SourcesConfig struct {
	Loci        string `mapstructure:"loci" yaml:"loci"`
	Coordinates string `mapstructure:"coordinates" yaml:"coordinates"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver" yaml:"driver"` // sqlite or postgres
	DSN          string `mapstructure:"dsn" yaml:"dsn"`       // file path for sqlite, URL for postgres
	MaxOpenConns int    `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	LogSQL       bool   `mapstructure:"log_sql" yaml:"log_sql"`
}

// IngestConfig controls how the spreadsheets are persisted.
type IngestConfig struct {
	Mode    string `mapstructure:"mode" yaml:"mode"`         // replace or append
	OnStart bool   `mapstructure:"on_start" yaml:"on_start"` // serve loads an empty store before listening
}

// ServerConfig configures the explorer web server.
type ServerConfig struct {
	Addr         string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// BoundaryConfig configures the background country layer.
type BoundaryConfig struct {
	URL             string           `mapstructure:"url" yaml:"url"`
	Timeout         time.Duration    `mapstructure:"timeout" yaml:"timeout"`
	Retries         int              `mapstructure:"retries" yaml:"retries"`
	CacheTTL        time.Duration    `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	ContinentColors []ContinentColor `mapstructure:"continent_colors" yaml:"continent_colors"`
	DefaultColor    string           `mapstructure:"default_color" yaml:"default_color"`
}

// S3Config is used for table paths of the form s3://bucket/key. Credentials
// come from the default AWS chain.
type S3Config struct {
	Region    string `mapstructure:"region" yaml:"region"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"` // optional, e.g. MinIO
	PathStyle bool   `mapstructure:"path_style" yaml:"path_style"`
}

// ColorsConfig holds the marker palette.
type ColorsConfig struct {
	Palette []string `mapstructure:"palette" yaml:"palette"`
	Stable  bool     `mapstructure:"stable" yaml:"stable"` // hash names instead of ranking them per query
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	ModeReplace = "replace"
	ModeAppend  = "append"
)

// DefaultPalette is the ordered marker palette, cycled by sort rank.
var DefaultPalette = []string{
	"red", "blue", "green", "purple", "orange", "yellow", "brown", "aquamarine",
	"darkred", "lightred", "beige", "darkblue", "lightblue", "lightgreen",
	"darkgreen", "cadetblue", "darkpurple", "pink", "gray", "black", "lightgray",
	"cyan", "magenta", "navy", "teal", "coral", "olive", "gold", "indigo",
}

// DefaultContinentColors drives the fill of the boundary layer.
var DefaultContinentColors = []ContinentColor{
	{Continent: "Africa", Color: "#90ee90"},
	{Continent: "Asia", Color: "#ffcccb"},
	{Continent: "Europe", Color: "#add8e6"},
	{Continent: "North America", Color: "#dab6fc"},
	{Continent: "South America", Color: "#ffd580"},
	{Continent: "Oceania", Color: "#ffb6c1"},
	{Continent: "Antarctica", Color: "#d3d3d3"},
}

// DefaultBoundaryURL is the world country outline used behind the markers.
const DefaultBoundaryURL = "https://raw.githubusercontent.com/datasets/geo-boundaries-world-110m/refs/heads/main/countries.geojson"

// Default returns a configuration matching the layout of the original dataset
// directory.
func Default() *Config {
	return &Config{
		Sources: SourcesConfig{
			Loci:        "repid.xlsx",
			Coordinates: "coordinate_info.xlsx",
		},
		Database: DatabaseConfig{
			Driver:       DriverSQLite,
			DSN:          "repid.db",
			MaxOpenConns: 4,
		},
		Ingest: IngestConfig{
			Mode:    ModeReplace,
			OnStart: true,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Boundary: BoundaryConfig{
			URL:             DefaultBoundaryURL,
			Timeout:         10 * time.Second,
			Retries:         2,
			CacheTTL:        time.Hour,
			ContinentColors: append([]ContinentColor(nil), DefaultContinentColors...),
			DefaultColor:    "gray",
		},
		Colors: ColorsConfig{
			Palette: append([]string(nil), DefaultPalette...),
		},
		S3: S3Config{
			Region: "us-east-1",
		},
		Tables: []TableSource{
			{Name: "Summary Table", Path: "summary_all.tsv"},
			{Name: "Population Table", Path: "all_REDatlas.tsv"},
		},
		Filters:  []string{"AlleleClass", "Locus", "Superpopulation", "Population", "Sample"},
		LogLevel: "info",
	}
}

// Load reads the configuration. An explicit path must exist; without one,
// config.yaml is looked up in the working directory and ./config and the
// defaults apply when it is absent. Values from .env and REDATLAS_* variables
// take precedence over the file.
func Load(path string) (*Config, error) {
	utils.LoadEnv()

	v := viper.New()
	setDefaults(v, Default())

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("REDATLAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// List-valued settings are not registered as viper defaults, so decoding
	// on top of Default keeps them unless the file replaces them.
	cfg := Default()
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.ZeroFields = true }); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	overrideFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("sources.loci", d.Sources.Loci)
	v.SetDefault("sources.coordinates", d.Sources.Coordinates)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.max_open_conns", d.Database.MaxOpenConns)
	v.SetDefault("database.log_sql", d.Database.LogSQL)
	v.SetDefault("ingest.mode", d.Ingest.Mode)
	v.SetDefault("ingest.on_start", d.Ingest.OnStart)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("boundary.url", d.Boundary.URL)
	v.SetDefault("boundary.timeout", d.Boundary.Timeout)
	v.SetDefault("boundary.retries", d.Boundary.Retries)
	v.SetDefault("boundary.cache_ttl", d.Boundary.CacheTTL)
	v.SetDefault("boundary.default_color", d.Boundary.DefaultColor)
	v.SetDefault("colors.stable", d.Colors.Stable)
	v.SetDefault("s3.region", d.S3.Region)
	v.SetDefault("s3.endpoint", d.S3.Endpoint)
	v.SetDefault("s3.path_style", d.S3.PathStyle)
	v.SetDefault("log_level", d.LogLevel)
}

// ContinentColorMap returns the continent fill table keyed by continent name.
func (b BoundaryConfig) ContinentColorMap() map[string]string {
	out := make(map[string]string, len(b.ContinentColors))
	for _, c := range b.ContinentColors {
		out[c.Continent] = c.Color
	}
	return out
}

// overrideFromEnv applies the DATABASE_URL convention: when set it always
// wins and implies the postgres driver.
func overrideFromEnv(cfg *Config) {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.Driver = DriverPostgres
		cfg.Database.DSN = url
	}
}

// Validate checks the values the components cannot recover from.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("unsupported database driver %q (want %s or %s)", c.Database.Driver, DriverSQLite, DriverPostgres)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	switch c.Ingest.Mode {
	case ModeReplace, ModeAppend:
	default:
		return fmt.Errorf("unsupported ingest mode %q (want %s or %s)", c.Ingest.Mode, ModeReplace, ModeAppend)
	}
	if len(c.Colors.Palette) == 0 {
		return fmt.Errorf("colors.palette must not be empty")
	}
	for _, t := range c.Tables {
		if t.Name == "" || t.Path == "" {
			return fmt.Errorf("tables entries need both name and path")
		}
	}
	if c.Boundary.Retries < 0 {
		return fmt.Errorf("boundary.retries must not be negative")
	}
	return nil
}
