package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"enrollboard/internal/config"
	"enrollboard/internal/logging"
)

// version 构建时通过 -ldflags "-X main.version=..." 注入
var version = "dev"

// app 命令间共享的状态，由 PersistentPreRunE 填充
type app struct {
	configPath string
	verbose    bool

	cfg    *config.AppConfig
	info   config.LoadConfigInfo
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "enrollboard",
		Short: "Live enrollment dashboard backed by a published Google Sheet",
		Long: `enrollboard fetches the enrollment tracking sheet, cleans it, compares the
latest week against last year's totals and renders weekly trend charts.

Run "enrollboard serve" to start the dashboard.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" || cmd.Name() == "init-config" {
				return nil
			}
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "config file (default: config.toml next to the executable)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newServeCmd(a),
		newReportCmd(a),
		newExportCmd(a),
		newInitConfigCmd(a),
		newVersionCmd(),
	)
	return root
}

func (a *app) load() error {
	cfg, info, err := config.LoadConfigWithInfo(a.configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log, a.verbose)
	if err != nil {
		return err
	}

	a.cfg, a.info, a.logger = cfg, info, logger
	a.logger.Debug("Config loaded",
		zap.String("path", info.Path),
		zap.Bool("from_file", info.FromFile),
		zap.String("source", cfg.Source.URL))
	return nil
}
