package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/CTAG07/ngramtext/pkg/markov"
)

const defaultConfigPath = "./ngramtext.json"

// GenerationConfig holds the defaults used by the generate and shell commands.
type GenerationConfig struct {
	Order       int     `json:"order"`
	Length      int     `json:"length"`
	Seed        int64   `json:"seed"` // -1 draws a fresh seed per call
	Temperature float64 `json:"temperature"`
	TopK        int     `json:"top_k"`
}

// Config is the top-level configuration of the ngramtext command.
type Config struct {
	LogLevel         string            `json:"log_level"`
	DatabasePath     string            `json:"database_path"`
	Tokenizer        string            `json:"tokenizer"`
	BPEEncoding      string            `json:"bpe_encoding"`
	ShellHistoryPath string            `json:"shell_history_path"`
	Generation       *GenerationConfig `json:"generation"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		DatabasePath:     "./ngramtext.db?_journal_mode=WAL&_busy_timeout=5000",
		Tokenizer:        "word",
		BPEEncoding:      markov.DefaultBPEEncoding,
		ShellHistoryPath: "./.ngramtext_history",
		Generation: &GenerationConfig{
			Order:       markov.BigramOrder,
			Length:      100,
			Seed:        -1,
			Temperature: 1.0,
			TopK:        0,
		},
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string, stderr io.Writer) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Defaults are still usable without the file.
				_, _ = fmt.Fprintf(stderr, "warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if config.Generation == nil {
		config.Generation = DefaultConfig().Generation
	}

	return config, nil
}

// parseLogLevel maps a config level name to a slog level. Unknown names fall
// back to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newTokenizer builds the tokenizer named in the config.
func newTokenizer(config *Config) (markov.Tokenizer, error) {
	switch strings.ToLower(config.Tokenizer) {
	case "", "word":
		return markov.NewDefaultTokenizer(), nil
	case "bpe":
		return markov.NewBPETokenizer(config.BPEEncoding)
	default:
		return nil, fmt.Errorf("unknown tokenizer %q (want word or bpe)", config.Tokenizer)
	}
}
