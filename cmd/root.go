package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	appLogger "github.com/FACorreiaa/go-municipio-insights/app/logger"
	"github.com/FACorreiaa/go-municipio-insights/config"
)

var (
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "municipio-insights",
	Short: "Browse Brazilian municipalities and enrich them with generated insights",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.InitConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = &loaded

		mode := cfg.Mode
		if verbose {
			mode = "development"
		}
		logger = appLogger.NewLogger(os.Stderr, mode)
		slog.SetDefault(logger)
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose, colored logs")
}

func Execute() error {
	return rootCmd.Execute()
}
