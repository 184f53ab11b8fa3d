package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmvallecillo/kakebo-advisor/internal/common"
	"github.com/jmvallecillo/kakebo-advisor/internal/llm"
	"github.com/jmvallecillo/kakebo-advisor/internal/storage"
	"github.com/spf13/viper"
)

// initStorage opens the configured database and brings the schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "advisor", "advisor.db")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// llmConfig assembles the provider configuration from viper. The API key
// falls back to the provider's conventional environment variable.
func llmConfig() llm.Config {
	cfg := llm.Config{
		Provider:          viper.GetString("llm.provider"),
		APIKey:            viper.GetString("llm.api_key"),
		Model:             viper.GetString("llm.model"),
		Temperature:       viper.GetFloat64("llm.temperature"),
		MaxTokens:         viper.GetInt("llm.max_tokens"),
		RequestsPerMinute: viper.GetInt("llm.requests_per_minute"),
	}
	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	return cfg
}

func ownerID() string {
	return viper.GetString("owner")
}

// explainError renders an error for the terminal: the user-facing message
// when one was attached, the failure category, and whether retrying can help.
func explainError(err error) string {
	msg := err.Error()
	var userErr *common.UserError
	if errors.As(err, &userErr) {
		msg = userErr.UserMessage
	}

	switch common.ClassifyError(err) {
	case common.KindAccess:
		return fmt.Sprintf("%s (access problem: usually temporary, try again in a few seconds)", msg)
	case common.KindValidation:
		return fmt.Sprintf("%s (validation problem: try asking again)", msg)
	case common.KindData:
		return fmt.Sprintf("%s (data problem: record more expenses, then try again)", msg)
	default:
		return fmt.Sprintf("%s (technical problem: try again, check the logs if it persists)", msg)
	}
}
