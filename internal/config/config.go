package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"STTIngest/internal/domain"
)

const (
	defaultTimezone  = "Europe/Helsinki"
	configPathEnv    = "STT_INGEST_CONFIG"
	databaseDSNEnv   = "DATABASE_DSN"
	redisAddrEnv     = "REDIS_ADDR"
	redisPasswordEnv = "REDIS_PASSWORD"
	logLevelEnv      = "LOG_LEVEL"
	metricsAddrEnv   = "METRICS_ADDR"
	superdeskURLEnv  = "SUPERDESK_URL"
	superdeskKeyEnv  = "SUPERDESK_TOKEN"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Logging   LoggingConfig   `yaml:"logging"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Search    SearchConfig    `yaml:"search"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Planning  PlanningConfig  `yaml:"planning"`
	Superdesk SuperdeskConfig `yaml:"superdesk"`
}

// DatabaseConfig describes Postgres connection details. An empty DSN selects
// the in-memory stores.
type DatabaseConfig struct {
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"autoMigrate"`
}

// RedisConfig backs the once-per-payload retraction guard. An empty Addr keeps
// the guard in process memory.
type RedisConfig struct {
	Addr       string        `yaml:"addr"`
	Password   string        `yaml:"password"`
	DB         int           `yaml:"db"`
	RetractTTL time.Duration `yaml:"retractTTL"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IngestConfig defines the feeds and when they are polled.
type IngestConfig struct {
	Timezone       string                  `yaml:"timezone"`
	CronExpression string                  `yaml:"cronExpression"`
	RunOnStart     bool                    `yaml:"runOnStart"`
	Providers      []domain.IngestProvider `yaml:"providers"`
	location       *time.Location          `yaml:"-"`
}

// Location resolves the feed timezone used for timestamps without an offset.
func (s IngestConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, err := time.LoadLocation(defaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Provider returns the configured provider with the given id.
func (s IngestConfig) Provider(id string) (domain.IngestProvider, bool) {
	for _, p := range s.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return domain.IngestProvider{}, false
}

// SearchConfig lists the content repositories searched for delivered items.
type SearchConfig struct {
	Repos []string `yaml:"repos"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

type PlanningConfig struct {
	URNPrefix string `yaml:"urnPrefix"`
}

// SuperdeskConfig points the assignment linking and vocabulary lookups at the
// host REST API instead of the local stores.
type SuperdeskConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(redisAddrEnv); v != "" {
		c.Redis.Addr = v
	}

	if v := os.Getenv(redisPasswordEnv); v != "" {
		c.Redis.Password = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(metricsAddrEnv); v != "" {
		c.Metrics.Addr = v
	}

	if v := os.Getenv(superdeskURLEnv); v != "" {
		c.Superdesk.URL = v
	}

	if v := os.Getenv(superdeskKeyEnv); v != "" {
		c.Superdesk.Token = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Ingest.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to UTC", tz)
		loc = time.UTC
	}
	c.Ingest.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Database.DSN != "" {
		base.Database.DSN = override.Database.DSN
	}
	base.Database.AutoMigrate = base.Database.AutoMigrate || override.Database.AutoMigrate

	if override.Redis.Addr != "" {
		base.Redis.Addr = override.Redis.Addr
	}
	if override.Redis.Password != "" {
		base.Redis.Password = override.Redis.Password
	}
	if override.Redis.DB != 0 {
		base.Redis.DB = override.Redis.DB
	}
	if override.Redis.RetractTTL > 0 {
		base.Redis.RetractTTL = override.Redis.RetractTTL
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}

	if override.Ingest.Timezone != "" {
		base.Ingest.Timezone = override.Ingest.Timezone
	}
	if override.Ingest.CronExpression != "" {
		base.Ingest.CronExpression = override.Ingest.CronExpression
	}
	base.Ingest.RunOnStart = base.Ingest.RunOnStart || override.Ingest.RunOnStart
	if len(override.Ingest.Providers) > 0 {
		base.Ingest.Providers = override.Ingest.Providers
	}

	if len(override.Search.Repos) > 0 {
		base.Search.Repos = override.Search.Repos
	}

	if override.Metrics.Addr != "" {
		base.Metrics.Addr = override.Metrics.Addr
	}

	if override.Planning.URNPrefix != "" {
		base.Planning.URNPrefix = override.Planning.URNPrefix
	}

	if override.Superdesk.URL != "" {
		base.Superdesk.URL = override.Superdesk.URL
	}
	if override.Superdesk.Token != "" {
		base.Superdesk.Token = override.Superdesk.Token
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Redis:   RedisConfig{RetractTTL: 7 * 24 * time.Hour},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Ingest: IngestConfig{
			Timezone:       defaultTimezone,
			CronExpression: "*/5 * * * *",
		},
		Search:   SearchConfig{Repos: []string{domain.RepoArchive, domain.RepoPublished, domain.RepoArchived}},
		Planning: PlanningConfig{URNPrefix: "urn:newsml:stt.fi:"},
	}
}

// String renders the effective settings with secrets masked.
func (c Config) String() string {
	masked := c
	if masked.Redis.Password != "" {
		masked.Redis.Password = "***"
	}
	if masked.Superdesk.Token != "" {
		masked.Superdesk.Token = "***"
	}
	if masked.Database.DSN != "" {
		masked.Database.DSN = "set (" + strconv.Itoa(len(masked.Database.DSN)) + " chars)"
	}
	raw, err := yaml.Marshal(masked)
	if err != nil {
		return err.Error()
	}
	return string(raw)
}
