// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"borgbridge/pkg/borg"
	"borgbridge/pkg/flags"

	"github.com/spf13/cobra"
)

var (
	createCmd = &cobra.Command{
		Use:   "create <repository::archive> <path>...",
		Short: "Create a new archive",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Create(ctx, args[0], args[1:], options)
			})
		},
	}

	extractCmd = &cobra.Command{
		Use:   "extract <repository::archive> [path...]",
		Short: "Extract the contents of an archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Extract(ctx, args[0], args[1:], options)
			})
		},
	}

	renameCmd = &cobra.Command{
		Use:   "rename <repository::archive> <new-name>",
		Short: "Rename an existing archive",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Rename(ctx, args[0], args[1], options)
			})
		},
	}

	listCmd = &cobra.Command{
		Use:   "list <repository-or-archive> [path...]",
		Short: "List archives of a repository or contents of an archive",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.List(ctx, args[0], args[1:], options)
			})
		},
	}

	diffCmd = &cobra.Command{
		Use:   "diff <repository::archive> <other-archive> [path...]",
		Short: "Show differences between two archives",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Diff(ctx, args[0], args[1], args[2:], options)
			})
		},
	}

	recreateCmd = &cobra.Command{
		Use:   "recreate <repository-or-archive> [path...]",
		Short: "Rewrite existing archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Recreate(ctx, args[0], args[1:], options)
			})
		},
	}

	importTarCmd = &cobra.Command{
		Use:   "import-tar <repository::archive> <tarfile>",
		Short: "Create an archive from a tarball",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.ImportTar(ctx, args[0], args[1], options)
			})
		},
	}

	exportTarCmd = &cobra.Command{
		Use:   "export-tar <repository::archive> <file> [path...]",
		Short: "Write the contents of an archive as a tarball",
		Long: `Write the contents of an archive as a tarball.

A file of "-" streams the raw tarball to stdout.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.ExportTar(ctx, args[0], args[1], args[2:], options)
			})
		},
	}

	mountCmd = &cobra.Command{
		Use:   "mount <repository-or-archive> <mountpoint> [path...]",
		Short: "Mount a repository or archive as a FUSE filesystem",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Mount(ctx, args[0], args[1], args[2:], options)
			})
		},
	}

	umountCmd = &cobra.Command{
		Use:   "umount <mountpoint>",
		Short: "Unmount a mounted FUSE filesystem",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Umount(ctx, args[0], options)
			})
		},
	}
)
