// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"borgbridge/internal/config"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// cfgFile allows specifying a custom config file
	cfgFile string
	// verbose raises the captured log level to info
	verbose bool
	// logJSON requests structured log output from the engine
	logJSON bool
	// engineBinary overrides the configured engine executable
	engineBinary string
	// envFile is a dotenv file loaded before the first invocation
	envFile string
	// optionArgs collects repeated -o key=value pairs
	optionArgs []string

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "borgbridge",
		Short: "A bridge to the Borg backup engine",
		Long: TitleStyle.Render("borgbridge") + SubtitleStyle.Render(" - a bridge to the Borg backup engine") + `

borgbridge drives a BorgBackup binary the way a library would: options
are typed and validated before anything is executed, output streams and
named log channels are captured per invocation, and results come back
as structured data instead of scraped text.

` + SubtitleStyle.Render("Examples:") + `
  borgbridge init /srv/repo                     Initialize a repository
  borgbridge create /srv/repo::daily ~/data     Create an archive
  borgbridge list /srv/repo -o json=true        List archives as JSON
  borgbridge prune /srv/repo -o keep_daily=7    Apply a retention policy
  borgbridge serve-ssh                          Serve repositories over SSH`,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/borgbridge/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "capture info-level engine output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "request structured log output from the engine")
	rootCmd.PersistentFlags().StringVar(&engineBinary, "engine", "", "path to the engine binary (default is borg on PATH)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file loaded before the first invocation")
	rootCmd.PersistentFlags().StringArrayVarP(&optionArgs, "option", "o", nil, "engine option as key=value (repeatable)")

	// Add subcommands
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(umountCmd)
	rootCmd.AddCommand(keyCmd)
	rootCmd.AddCommand(upgradeCmd)
	rootCmd.AddCommand(recreateCmd)
	rootCmd.AddCommand(importTarCmd)
	rootCmd.AddCommand(exportTarCmd)
	rootCmd.AddCommand(repoConfigCmd)
	rootCmd.AddCommand(withLockCmd)
	rootCmd.AddCommand(breakLockCmd)
	rootCmd.AddCommand(benchmarkCrudCmd)
	rootCmd.AddCommand(serveSSHCmd)
	rootCmd.AddCommand(showConfigCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// loadConfig reads the configuration honoring the --config flag.
func loadConfig(ctx context.Context) (*config.Config, error) {
	return config.NewProvider().Load(ctx, config.LoadOptions{
		ConfigFilePath: cfgFile,
	})
}
