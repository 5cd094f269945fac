// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spacehome",
	Short: "spacehome is the backend of a retro profile homepage",
	Long: `spacehome serves the API of a retro social-network style profile page:
admin and visitor sessions, a comment wall, editable site settings,
an AI chat companion and image color sampling.`,
	Args: cobra.OnlyValidArgs,
}

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "Directory containing main.toml")
}

// configPath is the directory holding main.toml.
var configPath string //nolint:gochecknoglobals

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
