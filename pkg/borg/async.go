// SPDX-License-Identifier: MPL-2.0

package borg

import (
	"context"

	"golang.org/x/sync/semaphore"

	"borgbridge/pkg/flags"
)

type (
	// AsyncClient queues commands against a shared Client. Because a capture
	// session owns process-wide stream state, commands run one at a time in
	// submission order; every method returns immediately with a Future.
	AsyncClient struct {
		client *Client
		sem    *semaphore.Weighted
	}

	// Future is the pending result of one queued command.
	Future struct {
		done chan struct{}
		out  Output
		err  error
	}
)

// Async wraps a Client in a single-flight submission queue.
func Async(client *Client) *AsyncClient {
	return &AsyncClient{client: client, sem: semaphore.NewWeighted(1)}
}

// Client returns the underlying synchronous client.
func (a *AsyncClient) Client() *Client { return a.client }

func (a *AsyncClient) submit(ctx context.Context, call func(context.Context) (Output, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		if err := a.sem.Acquire(ctx, 1); err != nil {
			f.err = err
			return
		}
		defer a.sem.Release(1)
		f.out, f.err = call(ctx)
	}()
	return f
}

// Done is closed once the command has finished.
func (f *Future) Done() <-chan struct{} { return f.done }

// Wait blocks until the command finishes or ctx is canceled. Cancelation
// abandons the wait, not the command.
func (f *Future) Wait(ctx context.Context) (Output, error) {
	select {
	case <-f.done:
		return f.out, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *AsyncClient) Init(ctx context.Context, repository, encryption string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Init(ctx, repository, encryption, options)
	})
}

func (a *AsyncClient) Create(ctx context.Context, archive string, paths []string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Create(ctx, archive, paths, options)
	})
}

func (a *AsyncClient) Extract(ctx context.Context, archive string, paths []string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Extract(ctx, archive, paths, options)
	})
}

func (a *AsyncClient) Check(ctx context.Context, repositoryOrArchives []string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Check(ctx, repositoryOrArchives, options)
	})
}

func (a *AsyncClient) Rename(ctx context.Context, archive, newName string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Rename(ctx, archive, newName, options)
	})
}

func (a *AsyncClient) List(ctx context.Context, repositoryOrArchive string, paths []string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.List(ctx, repositoryOrArchive, paths, options)
	})
}

func (a *AsyncClient) Diff(ctx context.Context, archive, otherArchive string, paths []string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Diff(ctx, archive, otherArchive, paths, options)
	})
}

func (a *AsyncClient) Delete(ctx context.Context, repositoryOrArchive string, archives []string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Delete(ctx, repositoryOrArchive, archives, options)
	})
}

func (a *AsyncClient) Prune(ctx context.Context, repository string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Prune(ctx, repository, options)
	})
}

func (a *AsyncClient) Compact(ctx context.Context, repository string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Compact(ctx, repository, options)
	})
}

func (a *AsyncClient) Info(ctx context.Context, repositoryOrArchive string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Info(ctx, repositoryOrArchive, options)
	})
}

func (a *AsyncClient) Mount(ctx context.Context, repositoryOrArchive, mountpoint string, paths []string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Mount(ctx, repositoryOrArchive, mountpoint, paths, options)
	})
}

func (a *AsyncClient) Umount(ctx context.Context, mountpoint string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Umount(ctx, mountpoint, options)
	})
}

func (a *AsyncClient) KeyChangePassphrase(ctx context.Context, repository string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.KeyChangePassphrase(ctx, repository, options)
	})
}

func (a *AsyncClient) KeyExport(ctx context.Context, repository, path string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.KeyExport(ctx, repository, path, options)
	})
}

func (a *AsyncClient) KeyImport(ctx context.Context, repository, path string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.KeyImport(ctx, repository, path, options)
	})
}

func (a *AsyncClient) Upgrade(ctx context.Context, repository string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Upgrade(ctx, repository, options)
	})
}

func (a *AsyncClient) Recreate(ctx context.Context, repositoryOrArchive string, paths []string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Recreate(ctx, repositoryOrArchive, paths, options)
	})
}

func (a *AsyncClient) ImportTar(ctx context.Context, archive, tarfile string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.ImportTar(ctx, archive, tarfile, options)
	})
}

func (a *AsyncClient) ExportTar(ctx context.Context, archive, file string, paths []string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.ExportTar(ctx, archive, file, paths, options)
	})
}

func (a *AsyncClient) Serve(ctx context.Context, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.Serve(ctx, options)
	})
}

func (a *AsyncClient) RepoConfig(ctx context.Context, repository string, changes []ConfigChange, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.RepoConfig(ctx, repository, changes, options)
	})
}

func (a *AsyncClient) WithLock(ctx context.Context, repository, command string, commandArgs []string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.WithLock(ctx, repository, command, commandArgs, options)
	})
}

func (a *AsyncClient) BreakLock(ctx context.Context, repository string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.BreakLock(ctx, repository, options)
	})
}

func (a *AsyncClient) BenchmarkCrud(ctx context.Context, repository, path string, options flags.Options) *Future {
	return a.submit(ctx, func(ctx context.Context) (Output, error) {
		return a.client.BenchmarkCrud(ctx, repository, path, options)
	})
}
