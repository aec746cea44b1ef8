// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"borgbridge/pkg/borg"
	"borgbridge/pkg/flags"

	"github.com/spf13/cobra"
)

var (
	keyCmd = &cobra.Command{
		Use:   "key",
		Short: "Manage repository keys",
	}

	keyExportCmd = &cobra.Command{
		Use:   "export <repository> [path]",
		Short: "Write a backup copy of the repository key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 1 {
				path = args[1]
			}
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.KeyExport(ctx, args[0], path, options)
			})
		},
	}

	keyImportCmd = &cobra.Command{
		Use:   "import <repository> [path]",
		Short: "Restore a repository key from a backup copy",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 1 {
				path = args[1]
			}
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.KeyImport(ctx, args[0], path, options)
			})
		},
	}

	keyChangePassphraseCmd = &cobra.Command{
		Use:   "change-passphrase <repository>",
		Short: "Set a new passphrase on the repository key",
		Long: `Set a new passphrase on the repository key.

The new passphrase is read from the BORG_NEW_PASSPHRASE environment
variable; the current one from BORG_PASSPHRASE as usual.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.KeyChangePassphrase(ctx, args[0], options)
			})
		},
	}
)

func init() {
	keyCmd.AddCommand(keyExportCmd)
	keyCmd.AddCommand(keyImportCmd)
	keyCmd.AddCommand(keyChangePassphraseCmd)
}
