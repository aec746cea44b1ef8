// SPDX-License-Identifier: MPL-2.0

package borg

import (
	"context"

	"borgbridge/internal/jsonx"
	"borgbridge/pkg/engine"
	"borgbridge/pkg/flags"
)

// Create makes a new archive from the given paths. The archive argument is
// the repository::name locator.
func (c *Client) Create(ctx context.Context, archive string, paths []string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	createOpts, createArgs, err := optionals[flags.Create](c, flags.CmdCreate, options)
	if err != nil {
		return nil, err
	}
	exclusionArgs, err := c.group(options, new(flags.ExclusionInput))
	if err != nil {
		return nil, err
	}
	fsArgs, err := c.group(options, new(flags.Filesystem))
	if err != nil {
		return nil, err
	}
	archiveArgs, err := c.group(options, new(flags.ArchiveInput))
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "create")
	args = append(args, createArgs...)
	args = append(args, exclusionArgs...)
	args = append(args, fsArgs...)
	args = append(args, archiveArgs...)
	args = append(args, archive)
	args = append(args, paths...)

	opts := baseOpts(c.levelFor(options), common)
	opts.StatsShow = createOpts.Stats || createOpts.JSON
	opts.StatsJSON = createOpts.JSON
	opts.ListShow = createOpts.List
	opts.ListJSON = common.LogJSON

	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}

	entries := basicResults(values, opts)
	if opts.ListShow && common.LogJSON {
		// With structured logging on, the file list is routed through the
		// diagnostic stream rather than the list channel.
		entries = replaceEntry(entries, "list", jsonx.Lenient(values.Stderr))
	}
	return buildResult(entries), nil
}

// Extract restores the contents of an archive into the working directory,
// or onto the primary output when the stdout flag is set.
func (c *Client) Extract(ctx context.Context, archive string, paths []string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	extractOpts, extractArgs, err := optionals[flags.Extract](c, flags.CmdExtract, options)
	if err != nil {
		return nil, err
	}
	exclusionArgs, err := c.group(options, new(flags.ExclusionOutput))
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "extract")
	args = append(args, extractArgs...)
	args = append(args, exclusionArgs...)
	args = append(args, archive)
	args = append(args, paths...)

	opts := baseOpts(c.levelFor(options), common)
	opts.ListShow = extractOpts.List
	opts.ListJSON = common.LogJSON
	opts.RawBytes = extractOpts.Stdout

	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}

	entries := basicResults(values, opts)
	if extractOpts.Stdout {
		entries = append(entries, entry{"extract", values.RawStdout})
	}
	return buildResult(entries), nil
}

// Rename gives an existing archive a new name.
func (c *Client) Rename(ctx context.Context, archive, newName string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "rename", archive, newName)

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// List enumerates the archives of a repository, or the contents of a single
// archive.
func (c *Client) List(ctx context.Context, repositoryOrArchive string, paths []string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	listOpts, listArgs, err := optionals[flags.List](c, flags.CmdList, options)
	if err != nil {
		return nil, err
	}
	archiveArgs, err := c.group(options, new(flags.ArchiveOutput))
	if err != nil {
		return nil, err
	}
	exclusionArgs, err := c.group(options, new(flags.Exclusion))
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "list")
	args = append(args, listArgs...)
	args = append(args, archiveArgs...)
	args = append(args, exclusionArgs...)
	args = append(args, repositoryOrArchive)
	args = append(args, paths...)

	opts := baseOpts(c.levelFor(options), common)
	opts.ListShow = true
	opts.ListJSON = listOpts.JSON || listOpts.JSONLines

	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}

	// Listings land on the primary output, not the list channel.
	entries := basicResults(values, opts)
	if opts.ListJSON {
		entries = replaceEntry(entries, "list", jsonx.Lenient(values.Stdout))
	} else {
		entries = replaceEntry(entries, "list", values.Stdout)
	}
	return buildResult(entries), nil
}

// Diff reports the differences between two archives of the same repository.
func (c *Client) Diff(ctx context.Context, archive, otherArchive string, paths []string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	diffOpts, diffArgs, err := optionals[flags.Diff](c, flags.CmdDiff, options)
	if err != nil {
		return nil, err
	}
	exclusionArgs, err := c.group(options, new(flags.Exclusion))
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "diff")
	args = append(args, diffArgs...)
	args = append(args, exclusionArgs...)
	args = append(args, archive, otherArchive)
	args = append(args, paths...)

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}

	entries := basicResults(values, opts)
	if diffOpts.JSONLines {
		entries = append(entries, entry{"diff", jsonx.Lenient(values.Stdout)})
	} else {
		entries = append(entries, entry{"diff", values.Stdout})
	}
	return buildResult(entries), nil
}

// Recreate rewrites existing archives, for example to change compression or
// exclusion patterns after the fact.
func (c *Client) Recreate(ctx context.Context, repositoryOrArchive string, paths []string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	recreateOpts, recreateArgs, err := optionals[flags.Recreate](c, flags.CmdRecreate, options)
	if err != nil {
		return nil, err
	}
	exclusionArgs, err := c.group(options, new(flags.ExclusionInput))
	if err != nil {
		return nil, err
	}
	patternArgs, err := c.group(options, new(flags.ArchivePattern))
	if err != nil {
		return nil, err
	}
	archiveArgs, err := c.group(options, new(flags.ArchiveInput))
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "recreate")
	args = append(args, recreateArgs...)
	args = append(args, exclusionArgs...)
	args = append(args, patternArgs...)
	args = append(args, archiveArgs...)
	args = append(args, repositoryOrArchive)
	args = append(args, paths...)

	opts := baseOpts(c.levelFor(options), common)
	opts.StatsShow = recreateOpts.Stats
	opts.ListShow = recreateOpts.List
	opts.ListJSON = common.LogJSON

	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// ImportTar creates an archive from the contents of a tarball.
func (c *Client) ImportTar(ctx context.Context, archive, tarfile string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	importOpts, importArgs, err := optionals[flags.ImportTar](c, flags.CmdImportTar, options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "import-tar")
	args = append(args, importArgs...)
	args = append(args, archive, tarfile)

	opts := baseOpts(c.levelFor(options), common)
	opts.StatsShow = importOpts.Stats || importOpts.JSON
	opts.StatsJSON = importOpts.JSON
	opts.ListShow = importOpts.List
	opts.ListJSON = common.LogJSON

	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// ExportTar writes the contents of an archive as a tarball. A file of "-"
// streams the tarball back under the "tar" label instead of writing it to
// disk.
func (c *Client) ExportTar(ctx context.Context, archive, file string, paths []string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	exportOpts, exportArgs, err := optionals[flags.ExportTar](c, flags.CmdExportTar, options)
	if err != nil {
		return nil, err
	}
	exclusionArgs, err := c.group(options, new(flags.ExclusionOutput))
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "export-tar")
	args = append(args, exportArgs...)
	args = append(args, exclusionArgs...)
	args = append(args, archive, file)
	args = append(args, paths...)

	opts := baseOpts(c.levelFor(options), common)
	opts.ListShow = exportOpts.List
	opts.ListJSON = common.LogJSON
	opts.RawBytes = file == "-"

	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}

	entries := basicResults(values, opts)
	if file == "-" {
		entries = append(entries, entry{"tar", values.RawStdout})
	}
	return buildResult(entries), nil
}

// Mount exposes a repository or archive as a FUSE filesystem at mountpoint.
// When the engine supports detaching, the filesystem process is started in
// its own session and a supervising handle is returned under the "mount"
// label; otherwise the call blocks until the filesystem is unmounted.
func (c *Client) Mount(ctx context.Context, repositoryOrArchive, mountpoint string, paths []string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	_, mountArgs, err := optionals[flags.Mount](c, flags.CmdMount, options)
	if err != nil {
		return nil, err
	}
	archiveArgs, err := c.group(options, new(flags.ArchiveOutput))
	if err != nil {
		return nil, err
	}
	exclusionArgs, err := c.group(options, new(flags.ExclusionOutput))
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "mount")
	args = append(args, mountArgs...)
	args = append(args, archiveArgs...)
	args = append(args, exclusionArgs...)
	args = append(args, repositoryOrArchive, mountpoint)
	args = append(args, paths...)

	if d, ok := c.eng.(engine.Detacher); ok {
		handle, err := d.Detach(ctx, args)
		if err != nil {
			c.logger.Error("detaching filesystem process", "err", err)
			return nil, err
		}
		return buildResult([]entry{{"mount", handle}}), nil
	}

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// Umount detaches a previously mounted FUSE filesystem.
func (c *Client) Umount(ctx context.Context, mountpoint string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "umount", mountpoint)

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}
