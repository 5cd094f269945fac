package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spacehome/spacehome/internal/config"
)

func init() { //nolint: gochecknoinits
	configCmd.Flags().BoolVar(&configJSON, "json", false, "Print JSON instead of TOML")

	rootCmd.AddCommand(configCmd)
}

//nolint:gochecknoglobals
var (
	configJSON bool

	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ReadConfig(configPath)
			if err != nil {
				return err
			}

			dump := config.DumpConfig
			if configJSON {
				dump = config.DumpConfigJSON
			}

			out, err := dump(&cfg)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), out)

			return err
		},
	}
)
