package main

import (
	"context"
	"fmt"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vegasq/piiscrub/internal/config"
	"github.com/vegasq/piiscrub/internal/logging"
	"github.com/vegasq/piiscrub/output"
	"github.com/vegasq/piiscrub/pii"
	"github.com/vegasq/piiscrub/runner"
	"github.com/vegasq/piiscrub/storage"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "piiscrub",
	Short: "Obfuscate PII fields in csv, json and parquet files",
	Long: `piiscrub reads a file from a bucket, replaces the values of its
personally identifiable fields and writes the result back or to stdout.

Jobs are described by JSON envelopes:

  {"file_to_obfuscate": "s3://my_bucket/new_data/file1.csv",
   "pii_fields": ["name", "email_address"]}

Buckets are directories under --storage-root.

Examples:
  piiscrub run '{"file_to_obfuscate": "s3://b/new_data/f.csv", "pii_fields": ["name"]}'
  piiscrub run --save --method hash < envelopes.jsonl
  piiscrub run --target-format parquet --detect-heuristic -F jobs.jsonl
  piiscrub detect s3://b/new_data/f.csv`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.piiscrub.yaml)")
	flags.String("storage-root", ".", "directory holding one subdirectory per bucket")
	flags.String("log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.Bool("log-json", false, "log in JSON format")

	_ = viper.BindPFlag("storage.root", flags.Lookup("storage-root"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.json", flags.Lookup("log-json"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error finding home directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigName(".piiscrub")
		viper.SetConfigType("yaml")
	}

	config.SetDefaults(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			fmt.Fprintln(os.Stderr, "Error reading config file:", err)
			os.Exit(1)
		}
	}
}

// loadConfig decodes the global viper state and builds the root logger.
func loadConfig(cmd *cobra.Command) (*config.Config, hclog.Logger, error) {
	config.SetDefaults(viper.GetViper())

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		JSON:   cfg.Log.JSON,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, nil, err
	}
	if used := viper.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", "path", used)
	}
	return cfg, logger, nil
}

// buildClassifiers returns the classifiers enabled in cfg. The heuristic
// one is included when force is set even if cfg leaves it off.
func buildClassifiers(cfg *config.Config, logger hclog.Logger, forceHeuristic bool) ([]pii.Classifier, error) {
	var classifiers []pii.Classifier
	if cfg.Detect.Heuristic || forceHeuristic {
		classifiers = append(classifiers, pii.NewHeuristic(cfg.HeuristicTable(), logger.Named("heuristic")))
	}
	if cfg.Detect.AI {
		ai, err := pii.NewAIClassifier(pii.AIConfig{
			Host:    cfg.LLM.Host,
			Model:   cfg.LLM.Model,
			Timeout: cfg.LLM.Timeout,
		}, logger.Named("ai"))
		if err != nil {
			return nil, err
		}
		classifiers = append(classifiers, ai)
	}
	return classifiers, nil
}

func buildRunner(cfg *config.Config, logger hclog.Logger) (*runner.Runner, error) {
	codec, err := output.CompressionCodec(cfg.Output.Compression)
	if err != nil {
		return nil, err
	}

	classifiers, err := buildClassifiers(cfg, logger, false)
	if err != nil {
		return nil, err
	}
	var detector *pii.Detector
	if len(classifiers) > 0 {
		detector = pii.NewDetector(cfg.Detect.Threshold, logger.Named("detect"), classifiers...)
	}

	store := storage.NewOS(cfg.Storage.Root, logger.Named("storage"))
	return runner.New(store, runner.Options{
		ChunkSize:    cfg.ChunkSize,
		Method:       cfg.Method,
		TargetFormat: cfg.TargetFormat,
		Compression:  codec,
		Save:         cfg.Output.Save,
		ReplaceFrom:  cfg.Output.ReplaceFrom,
		ReplaceTo:    cfg.Output.ReplaceTo,
		Detector:     detector,
		Logger:       logger.Named("runner"),
	}), nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
