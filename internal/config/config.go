package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/mindoutline/internal/outline"
	"github.com/dgallion1/mindoutline/internal/parser"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth. Empty disables bearer auth.
	APIKey string

	// Vault of notes served under /api/documents.
	VaultRoot string

	// Outline parsing
	SpacesPerIndent int
	NodeIDs         string // "path" or "uuid"

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// Parsed tree cache entries
	CacheSize int

	// Live document polling
	WatchInterval time.Duration

	// Mind map spacing
	LayoutGapX float64
	LayoutGapY float64

	// Parse latency window
	StatsWindow time.Duration

	// Format adapters
	PDFFallbackPdftotext bool
	CSVHeader            bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first; variables already set win.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("MINDOUTLINE_API_KEY"),

		VaultRoot: envOr("VAULT_ROOT", "."),

		SpacesPerIndent: envInt("SPACES_PER_INDENT", outline.DefaultSpacesPerIndent),
		NodeIDs:         strings.ToLower(envOr("NODE_IDS", "path")),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 10485760), // 10MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		CacheSize: envInt("CACHE_SIZE", 256),

		WatchInterval: envDuration("WATCH_INTERVAL", 1*time.Second),

		LayoutGapX: envFloat("LAYOUT_GAP_X", 220),
		LayoutGapY: envFloat("LAYOUT_GAP_Y", 80),

		StatsWindow: envDuration("STATS_WINDOW", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
		CSVHeader:            envBool("CSV_HEADER", false),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10485760
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = 1 * time.Second
	}
	if cfg.LayoutGapX <= 0 {
		cfg.LayoutGapX = 220
	}
	if cfg.LayoutGapY <= 0 {
		cfg.LayoutGapY = 80
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.SpacesPerIndent < 0 {
		return fmt.Errorf("SPACES_PER_INDENT must not be negative, got %d", c.SpacesPerIndent)
	}
	if c.NodeIDs != "path" && c.NodeIDs != "uuid" {
		return fmt.Errorf("NODE_IDS must be \"path\" or \"uuid\", got %q", c.NodeIDs)
	}
	if c.VaultRoot == "" {
		return fmt.Errorf("VAULT_ROOT is required")
	}
	return nil
}

// ParserOptions returns the parse settings every document shares.
func (c Config) ParserOptions() parser.Options {
	return parser.Options{
		SpacesPerIndent:      c.SpacesPerIndent,
		IDs:                  outline.ParseIDStrategy(c.NodeIDs),
		PDFFallbackPdftotext: c.PDFFallbackPdftotext,
		CSVHeader:            c.CSVHeader,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
