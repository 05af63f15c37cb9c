package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seantiz/hades/internal/config"
)

var logLevel string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hades-solve",
		Short: "Solve binary quadratic models with hybrid workflows",
		Long: `hades-solve decomposes a QUBO or Ising problem, samples the pieces with
pluggable strategies and recombines them until the workflow stops.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newSolveCmd(),
		newGenerateCmd(),
		newTilesCmd(),
		newSolversCmd(),
		newValidateCmd(),
	)
	return rootCmd
}

// newLogger writes JSON logs to the command's stderr.
func newLogger(cmd *cobra.Command) *slog.Logger {
	return config.NewLogger(cmd.ErrOrStderr(), config.ParseLogLevel(logLevel))
}

// readInput reads path, or the command's stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseTriple parses "a,b,c" into three positive integers.
func parseTriple(s string) (a, b, c int, err error) {
	if _, err := fmt.Sscanf(s, "%d,%d,%d", &a, &b, &c); err != nil {
		return 0, 0, 0, fmt.Errorf("parse %q: want three comma-separated integers: %w", s, err)
	}
	if a <= 0 || b <= 0 || c <= 0 {
		return 0, 0, 0, fmt.Errorf("parse %q: values must be positive", s)
	}
	return a, b, c, nil
}
