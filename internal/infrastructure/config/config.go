// Package config loads service configuration from config.toml and the
// environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Scan store backends
const (
	ScanStoreMemory   = "memory"
	ScanStoreRedis    = "redis"
	ScanStorePostgres = "postgres"
	ScanStoreSQLite   = "sqlite"
)

// Image storage backends
const (
	ImageBackendLocal = "local"
	ImageBackendS3    = "s3"
)

// Database drivers
const (
	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
)

// POSAdapterOdoo is the only POS adapter that can take checkouts.
const POSAdapterOdoo = "odoo"

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Log       LogConfig
	Odoo      OdooConfig
	POS       POSConfig
	Scan      ScanConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name    string
	Env     string
	Port    string
	Version string
}

// HTTPConfig holds HTTP server settings
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	TrustedProxies  []string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// OdooConfig holds the ERP connection settings.
type OdooConfig struct {
	URL                 string
	Database            string
	Username            string
	Password            string
	Timeout             time.Duration
	DefaultPartnerID    int64
	DefaultPricelistID  *int64
	DefaultPOSSessionID *int64
	CreatePOSDraft      bool
	SKUField            string
}

// Configured reports whether all connection credentials are present.
func (o OdooConfig) Configured() bool {
	return o.URL != "" && o.Database != "" && o.Username != "" && o.Password != ""
}

// POSConfig selects the POS integration.
type POSConfig struct {
	Adapter string
}

// ScanConfig selects where scans and their images are kept.
type ScanConfig struct {
	Store        string
	ImageBackend string
	ImageDir     string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string
	Path            string // sqlite file
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	Prefix       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// TelemetryConfig holds OpenTelemetry settings
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// envBindings maps config keys to the unprefixed variable names operators
// already use.
var envBindings = map[string]string{
	"odoo.url":                    "ODOO_URL",
	"odoo.database":               "ODOO_DB",
	"odoo.username":               "ODOO_USER",
	"odoo.password":               "ODOO_PASSWORD",
	"odoo.timeout":                "ODOO_TIMEOUT",
	"odoo.default_partner_id":     "DEFAULT_PARTNER_ID",
	"odoo.default_pricelist_id":   "DEFAULT_PRICELIST_ID",
	"odoo.default_pos_session_id": "DEFAULT_POS_SESSION_ID",
	"odoo.create_pos_draft":       "CREATE_POS_DRAFT",
	"odoo.sku_field":              "SKU_FIELD",
	"pos.adapter":                 "POS_ADAPTER",
	"scan.image_dir":              "SCAN_IMAGE_DIR",
}

// Load reads configuration.
// Priority (highest to lowest):
// 1. Environment variables (ODOO_URL style names, then SCANCHECKOUT_ prefixed keys)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("SCANCHECKOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envBindings {
		prefixed := "SCANCHECKOUT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env, prefixed); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	v.SetDefault("odoo.create_pos_draft", true)
	v.SetDefault("telemetry.insecure", true)

	timeout, err := parseSeconds(v.GetString("odoo.timeout"))
	if err != nil {
		return nil, fmt.Errorf("invalid ODOO_TIMEOUT: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    v.GetString("app.name"),
			Env:     v.GetString("app.env"),
			Port:    v.GetString("app.port"),
			Version: v.GetString("app.version"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Odoo: OdooConfig{
			URL:                 v.GetString("odoo.url"),
			Database:            v.GetString("odoo.database"),
			Username:            v.GetString("odoo.username"),
			Password:            v.GetString("odoo.password"),
			Timeout:             timeout,
			DefaultPartnerID:    v.GetInt64("odoo.default_partner_id"),
			DefaultPricelistID:  optionalID(v.GetInt64("odoo.default_pricelist_id")),
			DefaultPOSSessionID: optionalID(v.GetInt64("odoo.default_pos_session_id")),
			CreatePOSDraft:      v.GetBool("odoo.create_pos_draft"),
			SKUField:            v.GetString("odoo.sku_field"),
		},
		POS: POSConfig{
			Adapter: strings.ToLower(strings.TrimSpace(v.GetString("pos.adapter"))),
		},
		Scan: ScanConfig{
			Store:        strings.ToLower(v.GetString("scan.store")),
			ImageBackend: strings.ToLower(v.GetString("scan.image_backend")),
			ImageDir:     v.GetString("scan.image_dir"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			TTL:      v.GetDuration("redis.ttl"),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(v.GetString("database.driver")),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Storage: StorageConfig{
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			Prefix:       v.GetString("storage.prefix"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "scancheckout-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8000"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "0.1.0"
	}

	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 30 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 120 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20
	}
	if cfg.HTTP.MaxBodySize == 0 {
		// upload limit plus multipart overhead
		cfg.HTTP.MaxBodySize = 11 << 20
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}

	cfg.Odoo.URL = strings.TrimRight(cfg.Odoo.URL, "/")
	if cfg.Odoo.Timeout == 0 {
		cfg.Odoo.Timeout = 10 * time.Second
	}
	if cfg.Odoo.DefaultPartnerID == 0 {
		cfg.Odoo.DefaultPartnerID = 1
	}
	if cfg.Odoo.SKUField == "" {
		cfg.Odoo.SKUField = "default_code"
	}

	if cfg.POS.Adapter == "" {
		cfg.POS.Adapter = POSAdapterOdoo
	}

	if cfg.Scan.Store == "" {
		cfg.Scan.Store = ScanStoreMemory
	}
	if cfg.Scan.ImageBackend == "" {
		cfg.Scan.ImageBackend = ImageBackendLocal
	}
	if cfg.Scan.ImageDir == "" {
		cfg.Scan.ImageDir = "storage/images"
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DatabaseDriverPostgres
		if cfg.Scan.Store == ScanStoreSQLite {
			cfg.Database.Driver = DatabaseDriverSQLite
		}
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "scancheckout.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "scancheckout"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 2
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 30
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 5
	}

	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "scans"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Scan.Store {
	case ScanStoreMemory, ScanStoreRedis, ScanStorePostgres, ScanStoreSQLite:
	default:
		return fmt.Errorf("scan.store must be one of memory, redis, postgres, sqlite, got %q", c.Scan.Store)
	}
	switch c.Scan.ImageBackend {
	case ImageBackendLocal, ImageBackendS3:
	default:
		return fmt.Errorf("scan.image_backend must be local or s3, got %q", c.Scan.ImageBackend)
	}
	if c.Scan.Store == ScanStorePostgres && c.Database.Driver != DatabaseDriverPostgres {
		return fmt.Errorf("scan.store=postgres requires database.driver=postgres")
	}
	if c.Scan.Store == ScanStoreSQLite && c.Database.Driver != DatabaseDriverSQLite {
		return fmt.Errorf("scan.store=sqlite requires database.driver=sqlite")
	}

	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.Odoo.Timeout < 0 {
		return fmt.Errorf("odoo.timeout must be positive")
	}
	if c.Odoo.URL != "" {
		if _, err := url.ParseRequestURI(c.Odoo.URL); err != nil {
			return fmt.Errorf("invalid ODOO_URL: %w", err)
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// parseSeconds accepts a plain number of seconds ("10", "2.5") or a Go
// duration ("1500ms").
func parseSeconds(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func optionalID(id int64) *int64 {
	if id <= 0 {
		return nil
	}
	return &id
}
