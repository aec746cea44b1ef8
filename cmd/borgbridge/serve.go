// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"net"
	"strconv"

	"borgbridge/internal/sshserve"
	"borgbridge/pkg/engine"

	"github.com/spf13/cobra"
)

var serveSSHCmd = &cobra.Command{
	Use:   "serve-ssh",
	Short: "Serve repositories over SSH",
	Long: `Serve repositories over SSH.

Clients authenticate with the shared token from the [ssh] config table and
are bridged straight onto a restricted engine serve invocation; there is no
shell access. Runs until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			return err
		}
		if !cfg.SSH.Enabled {
			return fmt.Errorf("ssh front end is disabled; set enabled = true in the [ssh] config table")
		}

		host, portStr, err := net.SplitHostPort(cfg.SSH.Listen)
		if err != nil {
			return fmt.Errorf("parse listen address %q: %w", cfg.SSH.Listen, err)
		}
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("parse listen port %q: %w", portStr, err)
		}

		binary := cfg.Engine.Binary
		if engineBinary != "" {
			binary = engineBinary
		}

		srv := sshserve.New(sshserve.Config{
			Host:            host,
			Port:            port,
			HostKeyPath:     cfg.SSH.HostKeyPath,
			Token:           cfg.SSH.Token,
			RestrictToPaths: cfg.SSH.RestrictToPaths,
		}, engine.NewExecEngine(binary))

		if err := srv.Start(cmd.Context()); err != nil {
			return err
		}

		// Stop on interrupt (fang cancels the command context) or fatal
		// server error, whichever comes first.
		select {
		case <-cmd.Context().Done():
			return srv.Stop()
		case err, ok := <-srv.Err():
			_ = srv.Stop()
			if ok && err != nil {
				return err
			}
			return nil
		}
	},
}
