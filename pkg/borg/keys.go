// SPDX-License-Identifier: MPL-2.0

package borg

import (
	"context"

	"borgbridge/pkg/flags"
)

// KeyChangePassphrase sets a new passphrase on the repository key. The new
// passphrase is taken from the BORG_NEW_PASSPHRASE environment variable.
func (c *Client) KeyChangePassphrase(ctx context.Context, repository string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "key", "change-passphrase", repository)

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// KeyExport writes a backup copy of the repository key to path.
func (c *Client) KeyExport(ctx context.Context, repository, path string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	_, exportArgs, err := optionals[flags.KeyExport](c, flags.CmdKeyExport, options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "key", "export")
	args = append(args, exportArgs...)
	args = append(args, repository)
	if path != "" {
		args = append(args, path)
	}

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}

// KeyImport restores a repository key from a backup copy at path.
func (c *Client) KeyImport(ctx context.Context, repository, path string, options flags.Options) (Output, error) {
	common, commonArgs, err := c.commonParsed(options)
	if err != nil {
		return nil, err
	}
	_, importArgs, err := optionals[flags.KeyImport](c, flags.CmdKeyImport, options)
	if err != nil {
		return nil, err
	}

	args := append(commonArgs, "key", "import")
	args = append(args, importArgs...)
	args = append(args, repository)
	if path != "" {
		args = append(args, path)
	}

	opts := baseOpts(c.levelFor(options), common)
	values, err := c.run(ctx, args, opts)
	if err != nil {
		return nil, err
	}
	return buildResult(basicResults(values, opts)), nil
}
