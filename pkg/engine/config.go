// Package engine wires the life-context memory engine: extraction,
// compaction, ranking, traversal and storage behind one facade.
package engine

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/lifectx/engine/pkg/conversation"
	"github.com/lifectx/engine/pkg/extraction"
)

// Config holds engine configuration. Every threshold here is empirical —
// calibrated against one model family, not validated by a real tokenizer —
// so all of them live in configuration rather than code paths.
type Config struct {
	// OpenAIKey authenticates against the language-model service.
	OpenAIKey string

	// BaseURL overrides the model endpoint (OpenAI-compatible proxies).
	BaseURL string

	// Model for chat and extraction (default: gpt-4o-mini).
	Model string

	// DBPath is the SQLite database path (default: ":memory:").
	DBPath string

	// ConfidenceThreshold gates turn-extraction entity candidates
	// (default 0.6).
	ConfidenceThreshold float64

	// MinUserTextLength short-circuits turn extraction for trivial
	// exchanges (default 15 characters).
	MinUserTextLength int

	// MinRecentMessages is the number of trailing messages always kept
	// verbatim during compaction (default 4).
	MinRecentMessages int

	// TargetTokenBudget triggers compaction (default 100000).
	TargetTokenBudget int

	// HardTokenBudget is the model context ceiling (default 150000).
	HardTokenBudget int

	// TopEntities caps how many ranked entities enter a prompt (default 15).
	TopEntities int

	// TraversalDepth bounds related-entity walks (default 2).
	TraversalDepth int

	// TracePath enables JSONL operation traces when set.
	TracePath string
}

func (c *Config) applyDefaults() {
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.DBPath == "" {
		c.DBPath = ":memory:"
	}
	if c.ConfidenceThreshold <= 0 {
		c.ConfidenceThreshold = extraction.DefaultConfidenceThreshold
	}
	if c.MinUserTextLength <= 0 {
		c.MinUserTextLength = extraction.DefaultMinUserTextLength
	}
	if c.MinRecentMessages <= 0 {
		c.MinRecentMessages = conversation.DefaultMinRecent
	}
	if c.TargetTokenBudget <= 0 {
		c.TargetTokenBudget = conversation.DefaultTargetTokenBudget
	}
	if c.HardTokenBudget <= 0 {
		c.HardTokenBudget = conversation.DefaultHardTokenBudget
	}
	if c.TopEntities <= 0 {
		c.TopEntities = 15
	}
	if c.TraversalDepth <= 0 {
		c.TraversalDepth = 2
	}
}

// ConfigFromEnv loads configuration from the environment, reading a .env
// file first when one exists.
func ConfigFromEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		OpenAIKey: os.Getenv("LIFECTX_OPENAI_KEY"),
		BaseURL:   os.Getenv("LIFECTX_BASE_URL"),
		Model:     os.Getenv("LIFECTX_MODEL"),
		DBPath:    os.Getenv("LIFECTX_DB_PATH"),
		TracePath: os.Getenv("LIFECTX_TRACE_PATH"),
	}

	if v := os.Getenv("LIFECTX_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv("LIFECTX_TARGET_TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TargetTokenBudget = n
		}
	}
	if v := os.Getenv("LIFECTX_HARD_TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HardTokenBudget = n
		}
	}

	cfg.applyDefaults()
	return cfg
}
