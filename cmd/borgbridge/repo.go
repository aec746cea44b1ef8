// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"borgbridge/pkg/borg"
	"borgbridge/pkg/flags"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"mvdan.cc/sh/v3/shell"
)

var (
	initEncryption string

	initCmd = &cobra.Command{
		Use:   "init <repository>",
		Short: "Initialize an empty repository",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Init(ctx, args[0], initEncryption, options)
			})
		},
	}

	checkCmd = &cobra.Command{
		Use:   "check <repository-or-archive>...",
		Short: "Verify the consistency of a repository and its archives",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Check(ctx, args, options)
			})
		},
	}

	deleteCmd = &cobra.Command{
		Use:   "delete <repository-or-archive> [archive...]",
		Short: "Delete archives or a whole repository",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Delete(ctx, args[0], args[1:], options)
			})
		},
	}

	pruneCmd = &cobra.Command{
		Use:   "prune <repository>",
		Short: "Delete archives not matching the retention options",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Prune(ctx, args[0], options)
			})
		},
	}

	compactCmd = &cobra.Command{
		Use:   "compact <repository>",
		Short: "Free repository space by compacting segments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Compact(ctx, args[0], options)
			})
		},
	}

	infoCmd = &cobra.Command{
		Use:   "info <repository-or-archive>",
		Short: "Show detailed information about a repository or archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Info(ctx, args[0], options)
			})
		},
	}

	upgradeCmd = &cobra.Command{
		Use:   "upgrade <repository>",
		Short: "Upgrade a local repository in place",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.Upgrade(ctx, args[0], options)
			})
		},
	}

	repoConfigCmd = &cobra.Command{
		Use:   "repo-config <repository> [key[=value]...]",
		Short: "Get and set entries in a repository config file",
		Long: `Get and set entries in a repository or cache config file.

Each positional argument after the repository is either a bare key (read,
or delete with -o delete=true) or key=value (set). With no keys the command
lists the config when -o list=true is given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := make([]borg.ConfigChange, 0, len(args)-1)
			for _, arg := range args[1:] {
				if key, value, ok := strings.Cut(arg, "="); ok {
					changes = append(changes, borg.ConfigSet(key, value))
				} else {
					changes = append(changes, borg.ConfigGet(arg))
				}
			}
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.RepoConfig(ctx, args[0], changes, options)
			})
		},
	}

	withLockCmd = &cobra.Command{
		Use:   "with-lock <repository> <command>",
		Short: "Run a command while the repository lock is held",
		Long: `Run a command while the repository lock is held.

The command is a single shell-quoted string, split with POSIX word
splitting rules:

  borgbridge with-lock /srv/repo 'rsync -av /srv/repo backup:repo'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := shell.Fields(args[1], os.Getenv)
			if err != nil {
				return fmt.Errorf("splitting command: %w", err)
			}
			if len(fields) == 0 {
				return fmt.Errorf("empty command")
			}
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.WithLock(ctx, args[0], fields[0], fields[1:], options)
			})
		},
	}

	breakLockCmd = &cobra.Command{
		Use:   "break-lock <repository>",
		Short: "Break the repository and cache locks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.BreakLock(ctx, args[0], options)
			})
		},
	}

	benchmarkCrudCmd = &cobra.Command{
		Use:   "benchmark-crud <repository> <path>",
		Short: "Benchmark archive operations against a repository",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOutput(cmd.Context(), func(ctx context.Context, client *borg.Client, options flags.Options) (borg.Output, error) {
				return client.BenchmarkCrud(ctx, args[0], args[1], options)
			})
		},
	}

	showConfigCmd = &cobra.Command{
		Use:   "show-config",
		Short: "Show the resolved borgbridge configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Context())
			if err != nil {
				return err
			}
			data, err := toml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	}
)

func init() {
	initCmd.Flags().StringVar(&initEncryption, "encryption", borg.DefaultEncryption, "repository key mode")
}
