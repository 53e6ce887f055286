package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"dexpulse/internal/model"
)

// Config holds configuration values loaded from flags, env, or config file.
// Everything is resolved once at process start; nothing reconfigures mid-run.
type Config struct {
	LogLevel         string
	Timezone         string
	RunTimeout       time.Duration
	FetchConcurrency int
	DumpDir          string

	CSVPath   string
	JSONLPath string
	PGDSN     string

	Budget int
	Suffix string

	Publisher    string
	PublishPath  string
	WebhookURL   string
	WebhookToken string

	Entities   []model.Entity
	Priorities map[model.MetricField][]string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DEXPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("run-timeout", 2*time.Minute)
	v.SetDefault("fetch-concurrency", 4)
	v.SetDefault("csv-path", "./data/metrics.csv")
	v.SetDefault("budget", 280)
	v.SetDefault("publisher", "file")
	v.SetDefault("publish-path", "./data/daily_summary.txt")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		LogLevel:         v.GetString("log-level"),
		Timezone:         v.GetString("timezone"),
		RunTimeout:       v.GetDuration("run-timeout"),
		FetchConcurrency: v.GetInt("fetch-concurrency"),
		DumpDir:          v.GetString("dump-dir"),
		CSVPath:          v.GetString("csv-path"),
		JSONLPath:        v.GetString("jsonl-path"),
		PGDSN:            v.GetString("pg-dsn"),
		Budget:           v.GetInt("budget"),
		Suffix:           v.GetString("suffix"),
		Publisher:        v.GetString("publisher"),
		PublishPath:      v.GetString("publish-path"),
		WebhookURL:       v.GetString("webhook-url"),
		WebhookToken:     v.GetString("webhook-token"),
	}

	if err := v.UnmarshalKey("entities", &cfg.Entities); err != nil {
		return Config{}, fmt.Errorf("parse entities: %w", err)
	}

	priorities, err := parsePriorities(v.GetStringMapStringSlice("priorities"))
	if err != nil {
		return Config{}, err
	}
	if len(priorities) == 0 {
		priorities = DefaultPriorities()
	}
	cfg.Priorities = priorities

	if cfg.Budget <= 0 {
		return Config{}, fmt.Errorf("budget must be positive")
	}

	return cfg, nil
}

// Location resolves the configured timezone; daily rows are keyed by the
// calendar date in it.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func parsePriorities(raw map[string][]string) (map[model.MetricField][]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[model.MetricField][]string, len(raw))
	for name, adapters := range raw {
		field, err := model.ParseMetricField(name)
		if err != nil {
			return nil, fmt.Errorf("priorities: %w", err)
		}
		cleaned := make([]string, 0, len(adapters))
		for _, a := range adapters {
			a = strings.TrimSpace(a)
			if a != "" {
				cleaned = append(cleaned, a)
			}
		}
		if len(cleaned) == 0 {
			return nil, fmt.Errorf("priorities: field %s has no adapters", name)
		}
		out[field] = cleaned
	}
	return out, nil
}

// DefaultPriorities wires the stock adapters: pair-search volume first with
// the chain overview as fallback, everything else single-sourced.
func DefaultPriorities() map[model.MetricField][]string {
	return map[model.MetricField][]string{
		model.FieldVolume24h:      {"dexscreener", "llama_chain"},
		model.FieldTVL:            {"llama_tvl"},
		model.FieldFees24h:        {"llama_fees"},
		model.FieldFees7d:         {"llama_fees"},
		model.FieldRevenue24h:     {"llama_fees"},
		model.FieldRevenue7d:      {"llama_fees"},
		model.FieldBribes24h:      {"llama_incentives"},
		model.FieldBribes7d:       {"llama_incentives"},
		model.FieldChainVolume24h: {"llama_chain"},
	}
}
