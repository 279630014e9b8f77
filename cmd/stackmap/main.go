package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yousuf/stackmap/internal/config"
	"github.com/yousuf/stackmap/internal/server"
)

// app carries state shared by every subcommand
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	defaultConfig := os.Getenv("CONFIG_PATH")
	if defaultConfig == "" {
		defaultConfig = "stackmap.yaml"
	}

	rootCmd := &cobra.Command{
		Use:   "stackmap",
		Short: "Resolve raw stack traces to files in a workspace",
		Long: `stackmap parses stack traces from Node.js, Python, Go, Ruby and Java,
marks runtime and dependency frames as internal, and maps application frames
onto files in a workspace, rewriting container and CI path prefixes.

Run "stackmap serve" to expose it as MCP tools, or "stackmap resolve" to use
it directly.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg

			logger, err := cfg.NewLogger(a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", defaultConfig, "Path to config file (YAML, TOML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newServeCmd(a),
		newResolveCmd(a),
		newDetectCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "stackmap %s\n", server.Version)
			},
		},
	)

	return rootCmd
}
