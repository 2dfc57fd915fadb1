package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"mirror_bot/internal/models"
)

const (
	configFilePathENV = "CONFIG_FILE"
	apiKeyENV         = "BYBIT_API_KEY"
	apiSecretENV      = "BYBIT_API_SECRET"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	chatTelegramENV   = "TELEGRAM_CHAT_ID"
	databaseDSN       = "DATABASE_DSN"

	defaultConfigFile = "configs/values_local.yaml"
)

const (
	SizingMirrorScale = "mirror-scale"
	SizingRiskBased   = "risk-based"

	StateBackendFile     = "file"
	StateBackendPostgres = "postgres"
)

// Config ...
type Config struct {
	Feed     FeedConfig     `yaml:"feed"`
	Exchange ExchangeConfig `yaml:"exchange"`
	// Маппинг тикеров: как пары называются в фиде → на бирже
	SymbolMap map[string]string `yaml:"symbol_map"`
	Sizing    SizingConfig      `yaml:"sizing"`
	Risk      RiskConfig        `yaml:"risk"`
	Guards    GuardsConfig      `yaml:"guards"`
	// Объём, зарезервированный другими потребителями счёта (биржевой символ → qty)
	Reserved map[string]float64 `yaml:"reserved"`
	State    StateConfig        `yaml:"state"`
	DB       string             `yaml:"db_dsn"`
	Log      LogConfig          `yaml:"log"`
	Telegram TelegramConfig     `yaml:"telegram"`
	Tracing  TracingConfig      `yaml:"tracing"`
	Service  ServiceConfig      `yaml:"service"`
	Loop     LoopConfig         `yaml:"loop"`
}

type FeedConfig struct {
	PositionsURL     string        `yaml:"positions_url"`
	AccountTotalsURL string        `yaml:"account_totals_url"`
	AuthToken        string        `yaml:"auth_token"`
	ModelID          string        `yaml:"model_id"`
	PollInterval     time.Duration `yaml:"poll_interval"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	Timeout          time.Duration `yaml:"timeout"`
	// Пустой ответ фида = "закрыть всё". По умолчанию выключено.
	CloseOnEmpty bool `yaml:"close_on_empty"`
	// Если нужной модели нет, а блок один — следуем ему.
	SingleModelFallback bool `yaml:"single_model_fallback"`
}

type ExchangeConfig struct {
	BaseURL         string        `yaml:"base_url"`
	APIKey          string        `yaml:"api_key"`
	APISecret       string        `yaml:"api_secret"`
	Category        string        `yaml:"category"`
	RecvWindow      int           `yaml:"recv_window"`
	Timeout         time.Duration `yaml:"timeout"`
	LeverageDefault int           `yaml:"leverage_default"`
	RateLimitRPS    float64       `yaml:"rate_limit_rps"`
}

type SizingConfig struct {
	Mode    string  `yaml:"mode"`
	Scale   float64 `yaml:"scale"`
	RiskUSD float64 `yaml:"risk_usd"`

	PerSymbolMaxNotional float64            `yaml:"per_symbol_max_notional"`
	PerSymbolNotional    map[string]float64 `yaml:"per_symbol_notional"`

	// устаревший скаляр, эквивалент tolerance{mode: absolute}
	QtyTolerance *float64        `yaml:"qty_tolerance"`
	Tolerance    ToleranceConfig `yaml:"tolerance"`
}

type ToleranceConfig struct {
	Mode      models.ToleranceMode            `yaml:"mode"`
	Value     float64                         `yaml:"value"`
	PerSymbol map[string]models.ToleranceRule `yaml:"per_symbol"`
}

type RiskConfig struct {
	PlaceTP bool `yaml:"place_tp"`
	PlaceSL bool `yaml:"place_sl"`
}

type GuardsConfig struct {
	StartupCooldownSec       int     `yaml:"startup_cooldown_sec"`
	RejoinSameEntry          bool    `yaml:"rejoin_same_entry"`
	RejoinBetterThanEntryPct float64 `yaml:"rejoin_better_than_entry_pct"`
	MaxEntryAgeMin           float64 `yaml:"max_entry_age_min"`
}

type StateConfig struct {
	Backend string `yaml:"backend"`
	File    string `yaml:"file"`
}

type LogConfig struct {
	File           string `yaml:"file"`
	ConsoleLevel   string `yaml:"console_level"`
	VerboseStartup bool   `yaml:"verbose_startup"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

type ServiceConfig struct {
	HealthAddr string `yaml:"health_addr"`
}

type LoopConfig struct {
	BackoffMin   time.Duration `yaml:"backoff_min"`
	BackoffMax   time.Duration `yaml:"backoff_max"`
	Heartbeat    time.Duration `yaml:"heartbeat"`
	StallAfter   time.Duration `yaml:"stall_after"`
	WarnCooldown time.Duration `yaml:"warn_cooldown"`
}

// Default значения до чтения файла.
func Default() Config {
	return Config{
		Feed: FeedConfig{
			PositionsURL:        "https://nof1.ai/api/positions?limit=1000",
			ModelID:             "deepseek-chat-v3.1",
			PollInterval:        time.Second,
			ConnectTimeout:      2 * time.Second,
			Timeout:             3 * time.Second,
			SingleModelFallback: true,
		},
		Exchange: ExchangeConfig{
			BaseURL:         "https://api.bybit.com",
			Category:        "linear",
			RecvWindow:      5000,
			Timeout:         7 * time.Second,
			LeverageDefault: 10,
			RateLimitRPS:    10,
		},
		Sizing: SizingConfig{
			Mode:  SizingMirrorScale,
			Scale: 0.05,
			Tolerance: ToleranceConfig{
				Mode:  models.ToleranceByStep,
				Value: 1.0,
			},
		},
		Risk: RiskConfig{PlaceTP: true, PlaceSL: true},
		Guards: GuardsConfig{
			StartupCooldownSec:       10,
			RejoinBetterThanEntryPct: 1.0,
			MaxEntryAgeMin:           120,
		},
		State: StateConfig{Backend: StateBackendFile, File: "var/state.json"},
		Log:   LogConfig{File: "var/mirror_actions.log", ConsoleLevel: "debug"},
		Tracing: TracingConfig{
			Host: "localhost",
			Port: 6831,
		},
		Service: ServiceConfig{HealthAddr: ":8080"},
		Loop: LoopConfig{
			BackoffMin:   250 * time.Millisecond,
			BackoffMax:   5 * time.Second,
			Heartbeat:    30 * time.Second,
			StallAfter:   120 * time.Second,
			WarnCooldown: 60 * time.Second,
		},
	}
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = defaultConfigFile
	}
	return Load(configFileName)
}

// Load читает YAML поверх Default и применяет ENV.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config file: %w", err)
	}
	defer func() {
		_ = file.Close()
	}()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode config file: %w", err)
	}

	config.applyEnv()
	config.normalize()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	c.Exchange.APIKey = getenvDefault(apiKeyENV, c.Exchange.APIKey)
	c.Exchange.APISecret = getenvDefault(apiSecretENV, c.Exchange.APISecret)
	c.Telegram.Token = getenvDefault(tokenTelegramENV, c.Telegram.Token)
	if v := os.Getenv(chatTelegramENV); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
	c.DB = getenvDefault(databaseDSN, c.DB)
}

func (c *Config) normalize() {
	// ключи фида сравниваются в верхнем регистре
	if len(c.SymbolMap) > 0 {
		m := make(map[string]string, len(c.SymbolMap))
		for k, v := range c.SymbolMap {
			m[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
		}
		c.SymbolMap = m
	}
	if c.Sizing.QtyTolerance != nil {
		c.Sizing.Tolerance.Mode = models.ToleranceAbsolute
		c.Sizing.Tolerance.Value = *c.Sizing.QtyTolerance
	}
}

// Validate проверяет ключи и режимы до старта.
func (c *Config) Validate() error {
	if c.Exchange.APIKey == "" || strings.HasPrefix(c.Exchange.APIKey, "PUT_") ||
		c.Exchange.APISecret == "" || strings.HasPrefix(c.Exchange.APISecret, "PUT_") {
		return fmt.Errorf("bybit api key/secret not set")
	}
	if len(c.SymbolMap) == 0 {
		return fmt.Errorf("symbol_map is empty")
	}
	// у каждого внешнего вызова должен быть конечный таймаут
	if c.Exchange.Timeout <= 0 {
		return fmt.Errorf("exchange.timeout must be positive, got %s", c.Exchange.Timeout)
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed.timeout must be positive, got %s", c.Feed.Timeout)
	}
	if c.Feed.ConnectTimeout < 0 {
		return fmt.Errorf("feed.connect_timeout must not be negative, got %s", c.Feed.ConnectTimeout)
	}
	if c.Feed.PollInterval <= 0 {
		return fmt.Errorf("feed.poll_interval must be positive, got %s", c.Feed.PollInterval)
	}
	switch c.Sizing.Mode {
	case SizingMirrorScale, SizingRiskBased:
	default:
		return fmt.Errorf("unknown sizing.mode %q", c.Sizing.Mode)
	}
	if !c.Sizing.Tolerance.Mode.Valid() {
		return fmt.Errorf("unknown sizing.tolerance.mode %q", c.Sizing.Tolerance.Mode)
	}
	for sym, rule := range c.Sizing.Tolerance.PerSymbol {
		if !rule.Mode.Valid() {
			return fmt.Errorf("unknown tolerance mode %q for %s", rule.Mode, sym)
		}
	}
	switch c.State.Backend {
	case StateBackendFile:
		if c.State.File == "" {
			return fmt.Errorf("state.file is empty")
		}
	case StateBackendPostgres:
		if c.DB == "" {
			return fmt.Errorf("state.backend=postgres requires db_dsn")
		}
	default:
		return fmt.Errorf("unknown state.backend %q", c.State.Backend)
	}
	return nil
}

// StartupCooldown ...
func (g GuardsConfig) StartupCooldown() time.Duration {
	return time.Duration(g.StartupCooldownSec) * time.Second
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
