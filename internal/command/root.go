// Package command implements the archive command line.
package command

import (
	"os"

	"github.com/spf13/cobra"
)

const AppName = "archive"

// Version is overwritten at build time using -ldflags.
var Version = "dev"

// NewRootCmd builds the archive command tree.
func NewRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "The Archive - browse collections and manage likes",
		Long:          "Client for The Archive: syncs prompt collections, favorites and likes with the remote store.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.Version = version
	cmd.SetVersionTemplate(AppName + " version {{.Version}}\n")
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	cmd.PersistentFlags().String("config", "config", "directory holding base.yaml and <env>.yaml")
	cmd.PersistentFlags().String("env", "", "environment name (default $ARCHIVE_ENV or development)")
	cmd.PersistentFlags().Bool("json", false, "output in JSON format")

	cmd.AddCommand(
		NewServeCmd(),
		NewListCmd(),
		NewFavoritesCmd(),
		NewLikeCmd(),
		NewLoginCmd(),
		NewLogoutCmd(),
		NewWhoamiCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd(Version).Execute()
}
