package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Application configuration
	Port       string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	SourcesDir string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	DBPath     string `long:"db-path" env:"DB_PATH" default:"./data/newshub.db" description:"Path to the sqlite database file"`

	// Cache configuration
	ListTTL    int `long:"list-ttl" env:"LIST_TTL" default:"300" description:"List cache TTL in seconds (0 disables freshness)"`
	MaxDetails int `long:"max-details" env:"MAX_DETAILS" default:"1000" description:"Maximum number of cached article details"`

	// Background work configuration
	WorkerCount         int `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of background workers"`
	RefreshInterval     int `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"180" description:"List refresh interval in seconds"`
	PrefetchInterval    int `long:"prefetch-interval" env:"PREFETCH_INTERVAL" default:"180" description:"Thumbnail prefetch interval in seconds"`
	PrefetchLimit       int `long:"prefetch-limit" env:"PREFETCH_LIMIT" default:"40" description:"Maximum URLs per thumbnail prefetch pass"`
	PrefetchConcurrency int `long:"prefetch-concurrency" env:"PREFETCH_CONCURRENCY" default:"4" description:"Simultaneous thumbnail fetches"`
	PrefetchTimeout     int `long:"prefetch-timeout" env:"PREFETCH_TIMEOUT" default:"10" description:"Per-fetch timeout in seconds"`

	// Embedding provider configuration
	OpenAIAPIKey   string `long:"openai-api-key" env:"OPENAI_API_KEY" description:"OpenAI API key for embeddings (optional)"`
	EmbeddingModel string `long:"embedding-model" env:"EMBEDDING_MODEL" default:"text-embedding-3-small" description:"Embedding model name"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) NewsHub/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:                raw.Port,
		SourcesDir:          raw.SourcesDir,
		DBPath:              raw.DBPath,
		ListTTL:             raw.ListTTL,
		MaxDetails:          raw.MaxDetails,
		WorkerCount:         raw.WorkerCount,
		RefreshInterval:     raw.RefreshInterval,
		PrefetchInterval:    raw.PrefetchInterval,
		PrefetchLimit:       raw.PrefetchLimit,
		PrefetchConcurrency: raw.PrefetchConcurrency,
		PrefetchTimeout:     raw.PrefetchTimeout,
		OpenAIAPIKey:        raw.OpenAIAPIKey,
		EmbeddingModel:      raw.EmbeddingModel,
		UserAgent:           raw.UserAgent,
		Timezone:            raw.Timezone,
		Debug:               raw.Debug,
		Version:             GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
