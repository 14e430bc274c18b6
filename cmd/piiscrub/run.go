package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run [envelope...]",
	Short: "Obfuscate the files named by one or more request envelopes",
	Long: `Run obfuscates each file named by a request envelope.

Envelopes are taken from the arguments, from --file (one per line) or,
when neither is given, from stdin. A failing job is reported on stderr
and the remaining jobs still run.

Without --save the obfuscated content is written to stdout.`,
	RunE: runRun,
}

func init() {
	flags := runCmd.Flags()
	flags.StringP("file", "F", "", "read envelopes from file, one per line ('-' for stdin)")
	flags.Bool("save", false, "save results next to the input instead of printing them")
	flags.StringP("method", "m", "replace", "obfuscation method (mask, hash, random_hash, replace)")
	flags.StringP("target-format", "t", "", "output format (csv, json, parquet); defaults to the input format")
	flags.Int("chunk-size", 5000, "records per batch")
	flags.String("compression", "snappy", "parquet compression (none, snappy, gzip, brotli, zstd, lz4)")
	flags.Bool("detect-heuristic", false, "add columns the heuristic classifier flags as PII")
	flags.Bool("detect-ai", false, "add columns the Ollama classifier flags as PII")

	_ = viper.BindPFlag("output.save", flags.Lookup("save"))
	_ = viper.BindPFlag("method", flags.Lookup("method"))
	_ = viper.BindPFlag("target_format", flags.Lookup("target-format"))
	_ = viper.BindPFlag("chunk_size", flags.Lookup("chunk-size"))
	_ = viper.BindPFlag("output.compression", flags.Lookup("compression"))
	_ = viper.BindPFlag("detect.heuristic", flags.Lookup("detect-heuristic"))
	_ = viper.BindPFlag("detect.ai", flags.Lookup("detect-ai"))

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	file, _ := cmd.Flags().GetString("file")

	envelopes, err := collectEnvelopes(args, file, cmd.InOrStdin())
	if err != nil {
		return err
	}
	if len(envelopes) == 0 {
		return fmt.Errorf("no request envelopes given")
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	r, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	failed := 0
	for i, envelope := range envelopes {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := r.Run(ctx, envelope)
		if err != nil {
			failed++
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: job %d: %v\n", i+1, err)
			continue
		}

		if res.Saved != nil {
			fmt.Fprintln(out, res.Message())
			continue
		}
		if _, err := res.Output.WriteTo(out); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if failed > 0 {
		logger.Warn("some jobs failed", "failed", failed, "total", len(envelopes))
	}
	return nil
}

// collectEnvelopes gathers envelopes from args, or else from file or stdin.
func collectEnvelopes(args []string, file string, stdin io.Reader) ([]string, error) {
	if len(args) > 0 {
		if file != "" {
			return nil, fmt.Errorf("--file cannot be combined with envelope arguments")
		}
		return args, nil
	}

	src := stdin
	if file != "" && file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("failed to open envelope file: %w", err)
		}
		defer func() { _ = f.Close() }()
		src = f
	}

	var envelopes []string
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		envelopes = append(envelopes, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read envelopes: %w", err)
	}
	return envelopes, nil
}
