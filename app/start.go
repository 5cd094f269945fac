package app

import (
	"github.com/spf13/cobra"

	"github.com/spacehome/spacehome/internal/config"
	"github.com/spacehome/spacehome/internal/daemon"
	"github.com/spacehome/spacehome/internal/logger"
)

func init() { //nolint: gochecknoinits
	startCmd.Flags().BoolVar(&devMode, "dev", false, "Enable dev mode")

	rootCmd.AddCommand(startCmd)
}

//nolint:gochecknoglobals
var (
	devMode bool

	startCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the spacehome web service",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := config.ReadConfig(configPath)
			if err != nil {
				return err
			}

			if devMode {
				cfg.DevMode = true
			}

			if err = logger.Init(cfg.Log); err != nil {
				return err
			}

			d, err := daemon.New(&cfg)
			if err != nil {
				return err
			}

			return d.Start()
		},
	}
)
