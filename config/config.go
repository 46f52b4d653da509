// Package config loads runtime settings from an optional YAML file layered
// with environment variables, with sane defaults for everything except the
// database URL.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// SiteConfig holds one listing provider's entry points.
type SiteConfig struct {
	Name         string `mapstructure:"name"`
	BaseURL      string `mapstructure:"base_url"`
	YesterdayURL string `mapstructure:"yesterday_url"`
	TodayURL     string `mapstructure:"today_url"`
	TomorrowURL  string `mapstructure:"tomorrow_url"`
}

// Config is the full runtime configuration.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"`
	ListenAddr  string `mapstructure:"listen_addr"`

	Concurrency int    `mapstructure:"concurrency"`
	Headless    bool   `mapstructure:"headless"`
	Debug       bool   `mapstructure:"debug"`
	Timezone    string `mapstructure:"timezone"`

	DiagEnabled bool   `mapstructure:"diag_enabled"`
	DiagDir     string `mapstructure:"diag_dir"`

	ListTimeout   time.Duration `mapstructure:"list_timeout"`
	DeepTimeout   time.Duration `mapstructure:"deep_timeout"`
	SettleMax     time.Duration `mapstructure:"settle_max"`
	SettleFor     time.Duration `mapstructure:"settle_for"`
	SecondaryMax  time.Duration `mapstructure:"secondary_max"`
	SecondaryPoll time.Duration `mapstructure:"secondary_poll"`

	Primary   SiteConfig `mapstructure:"primary"`
	Secondary SiteConfig `mapstructure:"secondary"`
}

// Load reads configuration from path (optional; "" tries config.yaml in the
// working directory), a .env file when present, and the environment. The
// environment wins over the file.
func Load(path string) (*Config, error) {
	// .env is a developer convenience; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("matchstream")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	// DATABASE_URL is the conventional name; honor it without the prefix.
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("concurrency", 3)
	v.SetDefault("headless", true)
	v.SetDefault("debug", false)
	v.SetDefault("timezone", "Africa/Cairo")

	v.SetDefault("diag_enabled", false)
	v.SetDefault("diag_dir", "diag")

	v.SetDefault("list_timeout", 60*time.Second)
	v.SetDefault("deep_timeout", 45*time.Second)
	v.SetDefault("settle_max", 20*time.Second)
	v.SetDefault("settle_for", 1400*time.Millisecond)
	v.SetDefault("secondary_max", 8*time.Second)
	v.SetDefault("secondary_poll", 500*time.Millisecond)

	v.SetDefault("primary.name", "bein-live")
	v.SetDefault("primary.base_url", "https://www.bein-live.com")
	v.SetDefault("primary.yesterday_url", "https://www.bein-live.com/matches-yesterday/")
	v.SetDefault("primary.today_url", "https://www.bein-live.com/")
	v.SetDefault("primary.tomorrow_url", "https://www.bein-live.com/matches-tomorrow/")

	v.SetDefault("secondary.name", "siiir")
	v.SetDefault("secondary.base_url", "https://siiir.sbs")
	v.SetDefault("secondary.yesterday_url", "https://siiir.sbs/matches-yesterday/")
	v.SetDefault("secondary.today_url", "https://siiir.sbs/")
	v.SetDefault("secondary.tomorrow_url", "https://siiir.sbs/matches-tomorrow/")
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// DayURLs maps a site's configured entry points onto day keys, dropping
// empty entries.
func (s SiteConfig) DayURLs() map[string]string {
	out := make(map[string]string, 3)
	for key, u := range map[string]string{
		"yesterday": s.YesterdayURL,
		"today":     s.TodayURL,
		"tomorrow":  s.TomorrowURL,
	} {
		if u != "" {
			out[key] = u
		}
	}
	return out
}

// WriteExample writes a commented starter config to path, refusing to
// overwrite an existing file.
func WriteExample(path string) error {
	if path == "" {
		path = "config.yaml"
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config dir: %w", err)
		}
	}
	return os.WriteFile(path, []byte(exampleConfig), 0o644)
}

const exampleConfig = `# matchstream configuration.
# Every key can also be set via environment, prefixed MATCHSTREAM_
# (e.g. MATCHSTREAM_CONCURRENCY=5). DATABASE_URL is honored unprefixed.

database_url: ""
listen_addr: ":8080"

concurrency: 3
headless: true
debug: false
timezone: "Africa/Cairo"

diag_enabled: false
diag_dir: "diag"

list_timeout: 60s
deep_timeout: 45s
settle_max: 20s
settle_for: 1400ms
secondary_max: 8s
secondary_poll: 500ms

primary:
  name: "bein-live"
  base_url: "https://www.bein-live.com"
  yesterday_url: "https://www.bein-live.com/matches-yesterday/"
  today_url: "https://www.bein-live.com/"
  tomorrow_url: "https://www.bein-live.com/matches-tomorrow/"

secondary:
  name: "siiir"
  base_url: "https://siiir.sbs"
  yesterday_url: "https://siiir.sbs/matches-yesterday/"
  today_url: "https://siiir.sbs/"
  tomorrow_url: "https://siiir.sbs/matches-tomorrow/"
`
