package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"tf-alerter/internal/logging"
	"tf-alerter/internal/overlay"
	"tf-alerter/internal/timeframe"
)

// SchemaVersion is the supported configuration schema. New exchanges or
// toggles are added as explicit optional fields with defaults, never
// probed dynamically.
const SchemaVersion = 1

// Config materialises application configuration.
type Config struct {
	Version    int              `mapstructure:"version"`
	App        AppConfig        `mapstructure:"app"`
	Logging    logging.Config   `mapstructure:"logging"`
	Clock      ClockConfig      `mapstructure:"clock"`
	Timeframes TimeframesConfig `mapstructure:"timeframes"`
	Sounds     SoundsConfig     `mapstructure:"sounds"`
	Overlay    OverlayConfig    `mapstructure:"overlay"`
	Funding    FundingConfig    `mapstructure:"funding"`
	Dedup      DedupConfig      `mapstructure:"dedup"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Telegram   TelegramConfig   `mapstructure:"telegram"`
	Export     ExportConfig     `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// ClockConfig tunes the candle-close engine.
type ClockConfig struct {
	LeadTime       int           `mapstructure:"lead_time"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	OverlayRefresh time.Duration `mapstructure:"overlay_refresh"`
	Volume         int           `mapstructure:"volume"`
}

// SoundFiles override the asset names for one timeframe.
type SoundFiles struct {
	Voice      string `mapstructure:"voice"`
	Tick       string `mapstructure:"tick"`
	Transition string `mapstructure:"transition"`
}

// TimeframesConfig selects active timeframes and their sound assets.
// Sounds keys are case-folded by the loader, so the month timeframe is
// spelled "1mo" there ("1M" would fold onto the 1-minute key).
type TimeframesConfig struct {
	Enabled   []string              `mapstructure:"enabled"`
	SoundsDir string                `mapstructure:"sounds_dir"`
	Sounds    map[string]SoundFiles `mapstructure:"sounds"`
}

// SoundsConfig gates each audio class independently.
type SoundsConfig struct {
	Voice      bool `mapstructure:"voice"`
	Tick       bool `mapstructure:"tick"`
	Transition bool `mapstructure:"transition"`
	Funding    bool `mapstructure:"funding"`
	TTS        bool `mapstructure:"tts"`
}

// OverlayConfig controls the on-screen clock.
type OverlayConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Mode    string   `mapstructure:"mode"`
	Windows []string `mapstructure:"windows"`
}

// ExchangesConfig toggles each supported exchange explicitly.
type ExchangesConfig struct {
	Binance bool `mapstructure:"binance"`
	Bybit   bool `mapstructure:"bybit"`
	OKX     bool `mapstructure:"okx"`
	Gate    bool `mapstructure:"gate"`
	Bitget  bool `mapstructure:"bitget"`
}

// EnabledIDs lists the enabled exchange identifiers.
func (e ExchangesConfig) EnabledIDs() []string {
	var ids []string
	if e.Binance {
		ids = append(ids, "binance")
	}
	if e.Bybit {
		ids = append(ids, "bybit")
	}
	if e.OKX {
		ids = append(ids, "okx")
	}
	if e.Gate {
		ids = append(ids, "gate")
	}
	if e.Bitget {
		ids = append(ids, "bitget")
	}
	return ids
}

// FundingConfig governs the funding-rate monitor.
type FundingConfig struct {
	Exchanges        ExchangesConfig `mapstructure:"exchanges"`
	Minutes          string          `mapstructure:"minutes"`
	ThresholdPos     string          `mapstructure:"threshold_pos"`
	ThresholdNeg     string          `mapstructure:"threshold_neg"`
	AlertBefore      bool            `mapstructure:"alert_before"`
	AlertPercent     bool            `mapstructure:"alert_percent"`
	NearInterval     time.Duration   `mapstructure:"near_interval"`
	FarInterval      time.Duration   `mapstructure:"far_interval"`
	FallbackInterval time.Duration   `mapstructure:"fallback_interval"`
	RequestTimeout   time.Duration   `mapstructure:"request_timeout"`
	UserAgent        string          `mapstructure:"user_agent"`
}

// DedupConfig selects the alert deduplication backend.
type DedupConfig struct {
	Backend string        `mapstructure:"backend"`
	Cap     int           `mapstructure:"cap"`
	Addr    string        `mapstructure:"addr"`
	Pass    string        `mapstructure:"password"`
	DB      int           `mapstructure:"db"`
	TTL     time.Duration `mapstructure:"ttl"`
}

// DatabaseConfig encapsulates PostgreSQL connectivity.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("TFALERTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Watch invokes onChange with a freshly loaded Config whenever the file
// at path changes. Edits that fail to load or validate go to onError and
// the previous configuration stays in force. No-op without a file path.
func Watch(path string, onChange func(*Config), onError func(error)) {
	if path == "" {
		return
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := Load(path)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", SchemaVersion)

	v.SetDefault("app.name", "tf-alerter")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("clock.lead_time", 10)
	v.SetDefault("clock.poll_interval", "250ms")
	v.SetDefault("clock.overlay_refresh", "100ms")
	v.SetDefault("clock.volume", 80)

	v.SetDefault("timeframes.enabled", []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d", "1w", "1M"})
	v.SetDefault("timeframes.sounds_dir", "Sounds")

	v.SetDefault("sounds.voice", true)
	v.SetDefault("sounds.tick", true)
	v.SetDefault("sounds.transition", true)
	v.SetDefault("sounds.funding", true)
	v.SetDefault("sounds.tts", false)

	v.SetDefault("overlay.enabled", false)
	v.SetDefault("overlay.mode", "custom")
	v.SetDefault("overlay.windows", []string{"Profit Forge", "TF-Alerter"})

	v.SetDefault("funding.exchanges.binance", true)
	v.SetDefault("funding.exchanges.bybit", true)
	v.SetDefault("funding.exchanges.okx", false)
	v.SetDefault("funding.exchanges.gate", false)
	v.SetDefault("funding.exchanges.bitget", false)
	v.SetDefault("funding.minutes", "15,5")
	v.SetDefault("funding.threshold_pos", "1.0")
	v.SetDefault("funding.threshold_neg", "1.0")
	v.SetDefault("funding.alert_before", true)
	v.SetDefault("funding.alert_percent", false)
	v.SetDefault("funding.near_interval", "60s")
	v.SetDefault("funding.far_interval", "300s")
	v.SetDefault("funding.fallback_interval", "60s")
	v.SetDefault("funding.request_timeout", "10s")
	v.SetDefault("funding.user_agent", "tf-alerter/1.0")

	v.SetDefault("dedup.backend", "memory")
	v.SetDefault("dedup.cap", 20000)
	v.SetDefault("dedup.ttl", "48h")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Version != SchemaVersion {
		return fmt.Errorf("unsupported config version %d (expected %d)", c.Version, SchemaVersion)
	}
	if c.Clock.LeadTime < 1 || c.Clock.LeadTime > 59 {
		return fmt.Errorf("clock.lead_time must be between 1 and 59 seconds")
	}
	if c.Clock.PollInterval <= 0 || c.Clock.PollInterval > time.Second {
		return fmt.Errorf("clock.poll_interval must be positive and at most 1s")
	}
	for _, raw := range c.Timeframes.Enabled {
		if _, ok := timeframe.Parse(raw); !ok {
			return fmt.Errorf("timeframes.enabled contains unknown timeframe %q", raw)
		}
	}
	for raw := range c.Timeframes.Sounds {
		if _, ok := timeframe.ParseFolded(raw); !ok {
			return fmt.Errorf("timeframes.sounds contains unknown timeframe %q (use \"1mo\" for the month)", raw)
		}
	}
	if mode := overlay.Mode(c.Overlay.Mode); mode != overlay.ModeAlways && mode != overlay.ModeCustom {
		return fmt.Errorf("overlay.mode must be %q or %q", overlay.ModeAlways, overlay.ModeCustom)
	}
	if c.Dedup.Backend != "memory" && c.Dedup.Backend != "redis" {
		return fmt.Errorf("dedup.backend must be memory or redis")
	}
	if c.Dedup.Backend == "redis" && c.Dedup.Addr == "" {
		return fmt.Errorf("dedup.addr is required for the redis backend")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token 必须配置")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ActiveTimeframes builds the enabled timeframe set.
func (c *Config) ActiveTimeframes() timeframe.Set {
	set := make(timeframe.Set, len(c.Timeframes.Enabled))
	for _, raw := range c.Timeframes.Enabled {
		if key, ok := timeframe.Parse(raw); ok {
			set[key] = true
		}
	}
	return set
}

// SoundOverrides converts the configured sound map to timeframe overrides.
func (c *Config) SoundOverrides() map[timeframe.Key]timeframe.SoundOverride {
	overrides := make(map[timeframe.Key]timeframe.SoundOverride, len(c.Timeframes.Sounds))
	for raw, files := range c.Timeframes.Sounds {
		key, ok := timeframe.ParseFolded(raw)
		if !ok {
			continue
		}
		overrides[key] = timeframe.SoundOverride{
			Voice:      files.Voice,
			Tick:       files.Tick,
			Transition: files.Transition,
		}
	}
	return overrides
}

// OverlayPolicy builds the overlay visibility policy.
func (c *Config) OverlayPolicy() overlay.Policy {
	return overlay.Policy{
		Enabled: c.Overlay.Enabled,
		Mode:    overlay.Mode(c.Overlay.Mode),
		Windows: c.Overlay.Windows,
	}
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}
