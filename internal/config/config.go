package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"GannCycles/internal/analysis"
	"GannCycles/internal/cycle"
	"GannCycles/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Analysis struct {
		HorizonDays         int    `yaml:"horizon_days"`
		MinScore            int    `yaml:"min_score"`
		BucketToleranceDays int    `yaml:"bucket_tolerance_days"`
		SeasonalBonus       int    `yaml:"seasonal_bonus"`
		SeasonalWindowDays  int    `yaml:"seasonal_window_days"`
		CrossQuarter        bool   `yaml:"cross_quarter"`
		MaxPoints           int    `yaml:"max_points"`
		SquareOfNineSteps   int    `yaml:"square_of_nine_steps"`
		Today               string `yaml:"today"`
	} `yaml:"analysis"`
	Detection struct {
		Lookback     int     `yaml:"lookback"`
		MinChangePct float64 `yaml:"min_change_pct"`
		HistoryDays  int     `yaml:"history_days"`
	} `yaml:"detection"`
	DataSource struct {
		Provider string `yaml:"provider"`
		BaseURL  string `yaml:"base_url"`
		Symbol   string `yaml:"symbol"`
	} `yaml:"data_source"`
	Cache struct {
		RedisAddr string        `yaml:"redis_addr"`
		TTL       time.Duration `yaml:"ttl"`
	} `yaml:"cache"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Output struct {
		JSONPath string `yaml:"json_path"`
	} `yaml:"output"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		AnalysisCron string `yaml:"analysis_cron"`
	} `yaml:"schedule"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Manual struct {
		Pivots  []model.PivotInput `yaml:"pivots"`
		Current float64            `yaml:"current"`
	} `yaml:"manual"`
	Proxy string `yaml:"proxy"`
}

// Default returns a config populated with every default. Load overlays YAML and the environment on it,
// so an explicit zero in the file (for example seasonal_bonus: 0) is kept.
func Default() *Config {
	cfg := &Config{}
	cfg.Analysis.HorizonDays = 360
	cfg.Analysis.MinScore = 2
	cfg.Analysis.SeasonalBonus = 1
	cfg.Analysis.SeasonalWindowDays = 1
	cfg.Analysis.MaxPoints = 15
	cfg.Analysis.SquareOfNineSteps = 16
	cfg.Detection.Lookback = 14
	cfg.Detection.MinChangePct = 10
	cfg.Detection.HistoryDays = 730
	cfg.DataSource.Provider = "binance"
	cfg.DataSource.Symbol = "BTCUSDT"
	cfg.Cache.TTL = 5 * time.Minute
	cfg.Database.SQLitePath = "data/gann_cycles.db"
	cfg.Output.JSONPath = "gann_output.json"
	cfg.Kafka.Topic = "gann.reports"
	cfg.Schedule.AnalysisCron = "0 5 0 * * *"
	cfg.Log.Level = "info"
	cfg.Log.Format = "text"
	return cfg
}

// Load reads .env, then the YAML file, then applies environment variable overrides.
// A missing YAML file or .env file is not an error.
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path, envFile string) (*Config, error) {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from environment variables.
func (c *Config) applyEnv() error {
	str := map[string]*string{
		"TELEGRAM_BOT_TOKEN": &c.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":   &c.Telegram.ChatID,
		"HTTPS_PROXY":        &c.Proxy,
		"SQLITE_PATH":        &c.Database.SQLitePath,
		"REDIS_ADDR":         &c.Cache.RedisAddr,
		"KAFKA_TOPIC":        &c.Kafka.Topic,
		"GANN_PROVIDER":      &c.DataSource.Provider,
		"GANN_BASE_URL":      &c.DataSource.BaseURL,
		"GANN_SYMBOL":        &c.DataSource.Symbol,
		"GANN_TODAY":         &c.Analysis.Today,
		"GANN_OUTPUT":        &c.Output.JSONPath,
		"CRON_ANALYSIS":      &c.Schedule.AnalysisCron,
		"LOG_LEVEL":          &c.Log.Level,
		"LOG_FORMAT":         &c.Log.Format,
	}
	for key, dst := range str {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	ints := map[string]*int{
		"GANN_HORIZON_DAYS": &c.Analysis.HorizonDays,
		"GANN_MIN_SCORE":    &c.Analysis.MinScore,
		"GANN_MAX_POINTS":   &c.Analysis.MaxPoints,
		"GANN_LOOKBACK":     &c.Detection.Lookback,
		"GANN_HISTORY_DAYS": &c.Detection.HistoryDays,
	}
	for key, dst := range ints {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("env %s: %w", key, err)
			}
			*dst = n
		}
	}

	if v := os.Getenv("GANN_MIN_CHANGE_PCT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("env GANN_MIN_CHANGE_PCT: %w", err)
		}
		c.Detection.MinChangePct = f
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("env CACHE_TTL: %w", err)
		}
		c.Cache.TTL = d
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the settings every mode needs.
func (c *Config) Validate() error {
	if err := c.AnalysisOptions().Validate(); err != nil {
		return err
	}
	if c.Detection.Lookback <= 0 {
		return fmt.Errorf("detection.lookback must be positive")
	}
	if c.Detection.MinChangePct < 0 {
		return fmt.Errorf("detection.min_change_pct must not be negative")
	}
	if c.Detection.HistoryDays <= 0 {
		return fmt.Errorf("detection.history_days must be positive")
	}
	switch c.DataSource.Provider {
	case "binance", "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.provider must be binance, yahoo or mock, got %q", c.DataSource.Provider)
	}
	if c.DataSource.Symbol == "" {
		return fmt.Errorf("data_source.symbol is required")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when brokers are set")
	}
	if c.Analysis.Today != "" {
		if _, err := model.ParseDate(c.Analysis.Today); err != nil {
			return fmt.Errorf("analysis.today: %w", err)
		}
	}
	if c.Manual.Current < 0 {
		return fmt.Errorf("manual.current must not be negative")
	}
	return nil
}

// ValidateServe adds the requirements of daemon mode.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Telegram.BotToken == "" {
		return fmt.Errorf("telegram.bot_token is required")
	}
	if c.Telegram.ChatID == "" {
		return fmt.Errorf("telegram.chat_id is required")
	}
	if _, err := strconv.ParseInt(c.Telegram.ChatID, 10, 64); err != nil {
		return fmt.Errorf("telegram.chat_id must be numeric: %w", err)
	}
	if c.Schedule.AnalysisCron == "" {
		return fmt.Errorf("schedule.analysis_cron is required")
	}
	return nil
}

// AnalysisOptions maps the analysis section onto engine options.
func (c *Config) AnalysisOptions() analysis.Options {
	return analysis.Options{
		HorizonDays:       c.Analysis.HorizonDays,
		SquareOfNineSteps: c.Analysis.SquareOfNineSteps,
		Score: cycle.ScoreOptions{
			BucketToleranceDays: c.Analysis.BucketToleranceDays,
			SeasonalBonus:       c.Analysis.SeasonalBonus,
			SeasonalWindowDays:  c.Analysis.SeasonalWindowDays,
			CrossQuarter:        c.Analysis.CrossQuarter,
			MinScore:            c.Analysis.MinScore,
			Limit:               c.Analysis.MaxPoints,
		},
	}
}

// ReferenceDate is analysis.today when set, otherwise the current UTC date.
func (c *Config) ReferenceDate(now time.Time) (model.Date, error) {
	if c.Analysis.Today == "" {
		return model.DateOf(now.UTC()), nil
	}
	return model.ParseDate(c.Analysis.Today)
}
