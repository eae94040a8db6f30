package main

import (
	"fmt"
	"os"

	"pcbuilder/internal/config"
	"pcbuilder/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	envFile string
	debug   bool
)

// rootCmd はPCビルダーのAPIサーバーと管理用コマンドの入口
var rootCmd = &cobra.Command{
	Use:   "pcbuilder",
	Short: "PC-Builder storefront backend",
	Long: `PC-Builder storefront backend.

Available subcommands:
  serve   - Start the HTTP API
  migrate - Create or update the Postgres tables
  seed    - Load products and users from a YAML catalog
  cart    - Inspect and edit the local (SQLite) cart`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return config.LoadDotEnv(envFile)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load (missing file is ignored)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, cartCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// 設定とロガーをまとめて用意する
func loadConfig() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	log, err := logger.New(cfg.GoEnv, debug)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
