// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// PostgreSQL – either set DatabaseURL directly, or the individual fields.
	DatabaseURL string
	DBUser      string
	DBPass      string
	DBHost      string
	DBPort      string
	DBName      string
	DBSSLMode   string

	// Session signing secret and token lifetime.
	JWTSecret  string
	SessionTTL time.Duration

	// Server
	Debug       bool
	Port        string
	TLSDomains  []string
	HTTPTimeout time.Duration

	// Language model
	LLMProvider    string
	LLMStructured  bool
	LLMTemperature float64
	LLMMaxTokens   int
	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string
	OllamaHost     string
	OllamaModel    string

	// Odds provider
	OddsAPIKey      string
	OddsAPIURL      string
	OddsSports      []string
	OddsRegions     string
	OddsMarkets     string
	OddsDedupWindow time.Duration

	// Scraper
	ScrapeURL string

	// Rows of each kind sent to the model as chat context.
	ContextOddsLimit  int
	ContextPicksLimit int

	// Scheduled jobs
	CronSecret       string
	SchedulerEnabled bool
	OddsCron         string
	ScrapeCron       string

	// Optional infrastructure. Empty disables the feature.
	RedisAddr       string
	RedisChannel    string
	ContextCacheTTL time.Duration
	KafkaBrokers    []string
	KafkaTopic      string
}

// DefaultSports are the odds-provider league keys fetched when ODDS_SPORTS is unset.
const DefaultSports = "americanfootball_nfl,basketball_nba,baseball_mlb,icehockey_nhl"

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	cfg := Read()
	if err := cfg.Validate(); err != nil {
		log.Fatal("config: ", err)
	}
	return cfg
}

// Read is Load without validation, for tools that only need part of the
// configuration.
func Read() *Config {
	return FromViper(newViper())
}

// FromViper builds a Config from an already populated viper instance and
// applies defaults. It does not validate.
func FromViper(v *viper.Viper) *Config {
	// Defaults
	v.SetDefault("DB_USER", "genie")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_NAME", "wagergenie")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("SESSION_TTL", "720h")
	v.SetDefault("PORT", ":9000")
	v.SetDefault("TLS_DOMAINS", "wagergenie.com,www.wagergenie.com")
	v.SetDefault("DEBUG", false)
	v.SetDefault("HTTP_TIMEOUT", "30s")
	v.SetDefault("LLM_PROVIDER", "openai")
	v.SetDefault("LLM_STRUCTURED", true)
	v.SetDefault("LLM_TEMPERATURE", 0.7)
	v.SetDefault("LLM_MAX_TOKENS", 500)
	v.SetDefault("OPENAI_BASE_URL", "https://api.openai.com")
	v.SetDefault("OPENAI_MODEL", "gpt-4-turbo-preview")
	v.SetDefault("OLLAMA_MODEL", "llama3.1")
	v.SetDefault("ODDS_API_URL", "https://api.the-odds-api.com/v4")
	v.SetDefault("ODDS_SPORTS", DefaultSports)
	v.SetDefault("ODDS_REGIONS", "us")
	v.SetDefault("ODDS_MARKETS", "h2h,spreads,totals")
	v.SetDefault("ODDS_DEDUP_WINDOW", "0s")
	v.SetDefault("SCRAPE_URL", "https://pickdawgz.com")
	v.SetDefault("CONTEXT_ODDS_LIMIT", 50)
	v.SetDefault("CONTEXT_PICKS_LIMIT", 20)
	v.SetDefault("SCHEDULER_ENABLED", false)
	v.SetDefault("ODDS_CRON", "0 0 * * *")
	v.SetDefault("SCRAPE_CRON", "0 */8 * * *")
	v.SetDefault("REDIS_CHANNEL", "chat_messages")
	v.SetDefault("CONTEXT_CACHE_TTL", "5m")
	v.SetDefault("KAFKA_TOPIC", "wagergenie.ingest")

	return &Config{
		DatabaseURL:       v.GetString("DATABASE_URL"),
		DBUser:            v.GetString("DB_USER"),
		DBPass:            v.GetString("DB_PASS"),
		DBHost:            v.GetString("DB_HOST"),
		DBPort:            v.GetString("DB_PORT"),
		DBName:            v.GetString("DB_NAME"),
		DBSSLMode:         v.GetString("DB_SSLMODE"),
		JWTSecret:         v.GetString("JWT_SECRET"),
		SessionTTL:        v.GetDuration("SESSION_TTL"),
		Debug:             v.GetBool("DEBUG"),
		Port:              v.GetString("PORT"),
		TLSDomains:        splitTrimmed(v.GetString("TLS_DOMAINS")),
		HTTPTimeout:       v.GetDuration("HTTP_TIMEOUT"),
		LLMProvider:       strings.ToLower(strings.TrimSpace(v.GetString("LLM_PROVIDER"))),
		LLMStructured:     v.GetBool("LLM_STRUCTURED"),
		LLMTemperature:    v.GetFloat64("LLM_TEMPERATURE"),
		LLMMaxTokens:      v.GetInt("LLM_MAX_TOKENS"),
		OpenAIKey:         v.GetString("OPENAI_API_KEY"),
		OpenAIBaseURL:     strings.TrimRight(v.GetString("OPENAI_BASE_URL"), "/"),
		OpenAIModel:       v.GetString("OPENAI_MODEL"),
		OllamaHost:        v.GetString("OLLAMA_HOST"),
		OllamaModel:       v.GetString("OLLAMA_MODEL"),
		OddsAPIKey:        v.GetString("ODDS_API_KEY"),
		OddsAPIURL:        strings.TrimRight(v.GetString("ODDS_API_URL"), "/"),
		OddsSports:        splitTrimmed(v.GetString("ODDS_SPORTS")),
		OddsRegions:       v.GetString("ODDS_REGIONS"),
		OddsMarkets:       v.GetString("ODDS_MARKETS"),
		OddsDedupWindow:   v.GetDuration("ODDS_DEDUP_WINDOW"),
		ScrapeURL:         v.GetString("SCRAPE_URL"),
		ContextOddsLimit:  v.GetInt("CONTEXT_ODDS_LIMIT"),
		ContextPicksLimit: v.GetInt("CONTEXT_PICKS_LIMIT"),
		CronSecret:        v.GetString("CRON_SECRET"),
		SchedulerEnabled:  v.GetBool("SCHEDULER_ENABLED"),
		OddsCron:          v.GetString("ODDS_CRON"),
		ScrapeCron:        v.GetString("SCRAPE_CRON"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisChannel:      v.GetString("REDIS_CHANNEL"),
		ContextCacheTTL:   v.GetDuration("CONTEXT_CACHE_TTL"),
		KafkaBrokers:      splitTrimmed(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:        v.GetString("KAFKA_TOPIC"),
	}
}

// PostgresDSN returns the full PostgreSQL connection string.
// DATABASE_URL takes precedence over individual fields.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser,
		c.DBPass,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// JWTKey returns the JWT signing key as a byte slice.
func (c *Config) JWTKey() []byte {
	return []byte(c.JWTSecret)
}

// ValidateStorage checks only the database settings.
func (c *Config) ValidateStorage() error {
	if c.DatabaseURL == "" && c.DBPass == "" {
		return fmt.Errorf("DATABASE_URL or DB_PASS must be set")
	}
	return nil
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if c.CronSecret == "" {
		return fmt.Errorf("CRON_SECRET must be set")
	}
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY must be set when LLM_PROVIDER=openai")
		}
	case "ollama":
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if len(c.OddsSports) == 0 {
		return fmt.Errorf("ODDS_SPORTS must list at least one sport")
	}
	if c.OddsDedupWindow < 0 {
		return fmt.Errorf("ODDS_DEDUP_WINDOW must not be negative")
	}
	return nil
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
