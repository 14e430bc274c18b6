// Package config provides the piiscrub configuration and its viper
// bindings.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/vegasq/piiscrub/format"
	"github.com/vegasq/piiscrub/obfuscate"
	"github.com/vegasq/piiscrub/output"
	"github.com/vegasq/piiscrub/pii"
	"github.com/vegasq/piiscrub/reader"
)

// EnvPrefix is prepended to environment variable names, so that
// output.save is read from PIISCRUB_OUTPUT_SAVE.
const EnvPrefix = "PIISCRUB"

// Config holds the application-wide configuration.
type Config struct {
	ChunkSize    int           `mapstructure:"chunk_size"`
	Method       string        `mapstructure:"method"`
	TargetFormat string        `mapstructure:"target_format"`
	Storage      StorageConfig `mapstructure:"storage"`
	Output       OutputConfig  `mapstructure:"output"`
	Detect       DetectConfig  `mapstructure:"detect"`
	LLM          LLMConfig     `mapstructure:"llm"`
	Log          LogConfig     `mapstructure:"log"`
}

// StorageConfig locates buckets on disk.
type StorageConfig struct {
	// Root is the directory holding one subdirectory per bucket
	Root string `mapstructure:"root"`
}

// OutputConfig controls what happens to an obfuscated file.
type OutputConfig struct {
	// Save writes the result back to storage instead of returning it
	Save bool `mapstructure:"save"`

	ReplaceFrom string `mapstructure:"replace_from"`
	ReplaceTo   string `mapstructure:"replace_to"`

	// Compression is the parquet codec: none, snappy, gzip, brotli, zstd, lz4
	Compression string `mapstructure:"compression"`
}

// DetectConfig enables automatic PII column detection.
type DetectConfig struct {
	Heuristic bool    `mapstructure:"heuristic"`
	AI        bool    `mapstructure:"ai"`
	Threshold float64 `mapstructure:"threshold"`

	// Table adds or overrides heuristic table entries. Viper lower-cases
	// map keys, so entries match lower-case column names.
	Table map[string]bool `mapstructure:"table"`
}

// LLMConfig holds Ollama settings for the AI classifier.
type LLMConfig struct {
	Host    string        `mapstructure:"host"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig selects the logger's level and encoding.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// SetDefaults registers default values and environment lookup on v.
func SetDefaults(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("chunk_size", reader.DefaultBatchSize)
	v.SetDefault("method", string(obfuscate.Replace))
	v.SetDefault("target_format", "")
	v.SetDefault("storage.root", ".")
	v.SetDefault("output.save", false)
	v.SetDefault("output.replace_from", "new_data")
	v.SetDefault("output.replace_to", "processed_data")
	v.SetDefault("output.compression", "snappy")
	v.SetDefault("detect.heuristic", false)
	v.SetDefault("detect.ai", false)
	v.SetDefault("detect.threshold", pii.DefaultThreshold)
	v.SetDefault("llm.host", "")
	v.SetDefault("llm.model", "llama3.2")
	v.SetDefault("llm.timeout", 30*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// Load decodes v into a Config and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise only fail mid-job.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if _, err := obfuscate.ParseMethod(c.Method); err != nil {
		return err
	}
	if c.TargetFormat != "" {
		if _, err := format.Parse(c.TargetFormat); err != nil {
			return err
		}
	}
	if _, err := output.CompressionCodec(c.Output.Compression); err != nil {
		return err
	}
	if c.Detect.Threshold < 0 || c.Detect.Threshold > 1 {
		return fmt.Errorf("detect.threshold must be within [0, 1], got %g", c.Detect.Threshold)
	}
	if c.Output.Save && c.Output.ReplaceFrom == "" {
		return fmt.Errorf("output.replace_from must not be empty when output.save is set")
	}
	return nil
}

// HeuristicTable merges the configured overrides into the default table.
func (c *Config) HeuristicTable() map[string]bool {
	table := pii.DefaultTable()
	for k, v := range c.Detect.Table {
		table[k] = v
	}
	return table
}
