package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/difytools/plugin-releaser/internal/github"
	"github.com/difytools/plugin-releaser/internal/service/selfupdate"
)

// attachUpgradeCommand attaches the `upgrade` subcommand to the root command.
func attachUpgradeCommand(root *cobra.Command) {
	root.AddCommand(&cobra.Command{
		Use:   "upgrade",
		Short: "Replace this binary with the latest published release.",
		Long: "Look up the latest release of the releaser itself, compare it against the " +
			"embedded build version and, when behind, download the platform binary and apply " +
			"it over the running executable.",
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &selfupdate.Options{
				Token: os.Getenv(github.TokenEnvVar),
			}

			return selfupdate.Run(ctx, options)
		},
	})
}
