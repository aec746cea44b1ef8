// SPDX-License-Identifier: MPL-2.0

package borg

import (
	"context"
	"strings"

	"borgbridge/internal/jsonx"
	"borgbridge/pkg/flags"
)

// DefaultEncryption is the key mode used by Init when none is given.
const DefaultEncryption = "repokey"

// Init initializes an empty repository at the given location. An empty
// encryption selects DefaultEncryption.
func (c *Client) Init(ctx context.Context, repository, encryption string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	_, initArgs, err := optionals[flags.Init](c, flags.CmdInit, options)
	if err != nil {
		return nil, err
	}
	if encryption == "" {
		encryption = DefaultEncryption
	}

	args := append(commonArgs, "init", "--encryption", encryption)
	args = append(args, initArgs...)
	args = append(args, repository)

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// Check verifies the consistency of a repository and its archives.
func (c *Client) Check(ctx context.Context, repositoryOrArchives []string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	_, checkArgs, err := optionals[flags.Check](c, flags.CmdCheck, options)
	if err != nil {
		return nil, err
	}
	archiveArgs, err := c.group(options, new(flags.ArchiveOutput))
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "check")
	args = append(args, checkArgs...)
	args = append(args, archiveArgs...)
	args = append(args, repositoryOrArchives...)

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// Delete removes archives from a repository, or the whole repository.
func (c *Client) Delete(ctx context.Context, repositoryOrArchive string, archives []string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	deleteOpts, deleteArgs, err := optionals[flags.Delete](c, flags.CmdDelete, options)
	if err != nil {
		return nil, err
	}
	archiveArgs, err := c.group(options, new(flags.ArchiveOutput))
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "delete")
	args = append(args, deleteArgs...)
	args = append(args, archiveArgs...)
	args = append(args, repositoryOrArchive)
	args = append(args, archives...)

	opts := baseOpts(c.levelFor(options), common)
	opts.StatsShow = deleteOpts.Stats
	opts.ListShow = deleteOpts.List
	opts.ListJSON = common.LogJSON

	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// Prune deletes all archives not matching the retention options.
func (c *Client) Prune(ctx context.Context, repository string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	pruneOpts, pruneArgs, err := optionals[flags.Prune](c, flags.CmdPrune, options)
	if err != nil {
		return nil, err
	}
	patternArgs, err := c.group(options, new(flags.ArchivePattern))
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "prune")
	args = append(args, pruneArgs...)
	args = append(args, patternArgs...)
	args = append(args, repository)

	opts := baseOpts(c.levelFor(options), common)
	opts.StatsShow = pruneOpts.Stats
	opts.ListShow = pruneOpts.List
	opts.ListJSON = common.LogJSON

	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// Compact frees repository space by compacting segments.
func (c *Client) Compact(ctx context.Context, repository string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	_, compactArgs, err := optionals[flags.Compact](c, flags.CmdCompact, options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "compact")
	args = append(args, compactArgs...)
	args = append(args, repository)

	opts := baseOpts(c.levelFor(options), common)
	opts.RepoShow = common.Verbose
	opts.RepoJSON = common.LogJSON

	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}

	entries := basicResults(values, opts)
	if opts.RepoShow {
		if opts.RepoJSON {
			entries = append(entries, entry{"compact", lenient(values.Repo)})
		} else {
			entries = append(entries, entry{"compact", values.Repo})
		}
	}
	return buildResult(entries), nil
}

// Info displays detailed information about an archive or repository.
func (c *Client) Info(ctx context.Context, repositoryOrArchive string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	infoOpts, infoArgs, err := optionals[flags.Info](c, flags.CmdInfo, options)
	if err != nil {
		return nil, err
	}
	archiveArgs, err := c.group(options, new(flags.ArchiveOutput))
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "info")
	args = append(args, infoArgs...)
	args = append(args, archiveArgs...)
	args = append(args, repositoryOrArchive)

	opts := baseOpts(c.levelFor(options), common)
	opts.LogJSON = infoOpts.JSON || common.LogJSON
	opts.ProgJSON = opts.LogJSON

	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}

	entries := basicResults(values, opts)
	if opts.LogJSON {
		entries = append(entries, entry{"info", jsonx.Lenient(values.Stdout)})
	} else {
		entries = append(entries, entry{"info", values.Stdout})
	}
	return buildResult(entries), nil
}

// Upgrade upgrades an existing, local repository in place.
func (c *Client) Upgrade(ctx context.Context, repository string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	_, upgradeArgs, err := optionals[flags.Upgrade](c, flags.CmdUpgrade, options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "upgrade")
	args = append(args, upgradeArgs...)
	args = append(args, repository)

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// Serve starts a repository server process on the current stdio. The call
// blocks until the client side hangs up; serving over a real transport is
// the SSH front end's concern.
func (c *Client) Serve(ctx context.Context, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	_, serveArgs, err := optionals[flags.Serve](c, flags.CmdServe, options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "serve")
	args = append(args, serveArgs...)

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// ConfigChange is one repository config mutation or lookup: a bare Key reads
// (or deletes, with the delete flag) the entry, Key plus a value sets it.
type ConfigChange struct {
	Key      string
	Value    string
	HasValue bool
}

// ConfigGet builds a lookup/delete change.
func ConfigGet(key string) ConfigChange { return ConfigChange{Key: key} }

// ConfigSet builds a set change.
func ConfigSet(key, value string) ConfigChange {
	return ConfigChange{Key: key, Value: value, HasValue: true}
}

// RepoConfig gets and sets entries in a repository or cache config file.
// With no changes it runs once (listing when the list flag is set); each
// change then runs its own invocation, and the trimmed outputs are collected
// under the "changes" label.
func (c *Client) RepoConfig(ctx context.Context, repository string, changes []ConfigChange, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	configOpts, configArgs, err := optionals[flags.Config](c, flags.CmdConfig, options)
	if err != nil {
		return nil, err
	}

	base := append(commonArgs, "config")
	base = append(base, configArgs...)
	base = append(base, repository)

	opts := baseOpts(c.levelFor(options), common)
	opts.ListShow = configOpts.List

	var entries []entry
	if len(changes) == 0 {
		values, err := c.run(ctx, base, opts)
		if err != nil {
			return nil, err
		}
		entries = basicResults(values, opts)
		if opts.ListShow {
			// The config listing lands on the primary output, not the
			// list channel.
			entries = replaceEntry(entries, "list", values.Stdout)
		}
	}

	var results []string
	for _, change := range changes {
		args := append(append([]string{}, base...), change.Key)
		if change.HasValue {
			args = append(args, change.Value)
		}
		values, err := c.run(ctx, args, opts)
		if err != nil {
			return nil, err
		}
		results = append(results, strings.TrimSpace(values.Stdout))
	}
	if len(results) > 0 {
		entries = append(entries, entry{"changes", results})
	}
	return buildResult(entries), nil
}

// WithLock runs a user-specified command while the repository lock is held.
func (c *Client) WithLock(ctx context.Context, repository, command string, commandArgs []string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "with-lock", repository, command)
	args = append(args, commandArgs...)

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// BreakLock breaks the repository and cache locks.
func (c *Client) BreakLock(ctx context.Context, repository string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "break-lock", repository)

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// BenchmarkCrud benchmarks create/read/update/delete operations against an
// existing repository, labeling the report "benchmark".
func (c *Client) BenchmarkCrud(ctx context.Context, repository, path string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "benchmark", "crud", repository, path)

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}

	entries := basicResults(values, opts)
	entries = append(entries, entry{"benchmark", values.Stdout})
	return buildResult(entries), nil
}
