package cli

import (
	"fmt"

	"github.com/mgpai22/trimcap/internal/config"
	"github.com/mgpai22/trimcap/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "trimcap",
	Short: "Trim silence from video clips and caption what is left",
	Long: `Trimcap removes silent stretches from a video clip, transcribes the
shortened result and burns readable captions into it.

Settings come from built-in defaults, an optional config file (--config)
and TRIMCAP_* environment variables, in that order.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = logging.NewLogger(verbose)

		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", "Config file (yaml, toml or json)")
}

// only commands that write a single file take --output
func addOutputFlag(cmd *cobra.Command, usage string) {
	cmd.Flags().StringP("output", "o", "", usage)
}
