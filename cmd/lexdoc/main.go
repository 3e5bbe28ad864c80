// Command lexdoc analyses legal documents from the command line and serves
// the HTTP API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/lexdoc/internal/app"
	"github.com/dgallion1/lexdoc/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "lexdoc",
	Short:         "Legal document analysis",
	Long:          `Extract, classify and risk-analyse legal documents, and answer questions about them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func main() {
	_ = godotenv.Load()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds the CLI logger. Commands
// that call the LLM pass needLLM so a missing key fails early.
func loadConfig(needLLM bool) (config.Config, *slog.Logger, error) {
	if configFile != "" {
		os.Setenv("CONFIG_FILE", configFile)
	}
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if needLLM {
		err = cfg.Validate()
	} else {
		err = cfg.Chunk().Validate()
	}
	return cfg, log, err
}

func buildApp(needLLM bool) (*app.App, *slog.Logger, error) {
	cfg, log, err := loadConfig(needLLM)
	if err != nil {
		return nil, nil, err
	}
	a, err := app.Build(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, log, nil
}
