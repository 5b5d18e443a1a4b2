package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"netsecml/pkg/config"
	"netsecml/pkg/logging"
)

var rootFlags struct {
	configPath string
	envFile    string
	verbose    bool
}

var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "netsec",
	Short: "Train and serve the network-security threat classifier",
	Long: `netsec runs the training pipeline (ingestion, validation, transformation,
model training) and serves the accepted model over HTTP.`,
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		logFile := ""
		if cmd == trainCmd {
			logFile = logging.RunLogFile(config.LogsDir, time.Now())
		}
		l, err := logging.New(rootFlags.verbose, logFile)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = logger.Sync()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "", "Pipeline YAML overlay (default $"+config.ConfigPathEnv+" or "+config.DefaultConfigPath+")")
	f.StringVar(&rootFlags.envFile, "env-file", ".env", "Dotenv file with endpoints and secrets")
	f.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(prepareCmd)
}

// loadSettings reads the YAML overlay and the environment.
func loadSettings() (config.Settings, config.Env, error) {
	s, err := config.Load(config.ResolvePath(rootFlags.configPath))
	if err != nil {
		return s, config.Env{}, err
	}
	env, err := config.LoadEnv(rootFlags.envFile)
	if err != nil {
		return s, env, fmt.Errorf("load env: %w", err)
	}
	return s, env, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
