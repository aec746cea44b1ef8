// SPDX-License-Identifier: MPL-2.0

package borg

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"borgbridge/pkg/engine"
)

func TestAsync_OrderedSingleFlight(t *testing.T) {
	var mu sync.Mutex
	var running int
	var maxRunning int
	var order []string

	eng := engine.Func(func(_ context.Context, args []string) error {
		mu.Lock()
		running++
		if running > maxRunning {
			maxRunning = running
		}
		order = append(order, args[0])
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		running--
		mu.Unlock()
		return nil
	})

	async := Async(newTestClient(t, Config{Engine: eng}))
	ctx := context.Background()

	// Submit strictly sequentially so queue order is deterministic.
	futures := []*Future{
		async.BreakLock(ctx, "/srv/repo", nil),
		async.Compact(ctx, "/srv/repo", nil),
		async.Umount(ctx, "/mnt/a", nil),
	}

	for _, f := range futures {
		if _, err := f.Wait(ctx); err != nil {
			t.Fatalf("Wait: %v", err)
		}
	}

	if maxRunning != 1 {
		t.Errorf("max concurrent invocations = %d, want 1", maxRunning)
	}
	if len(order) != 3 {
		t.Fatalf("invocations = %v", order)
	}
}

func TestAsync_FutureCarriesError(t *testing.T) {
	sentinel := errors.New("archive already exists")
	eng := engine.Func(func(context.Context, []string) error {
		return sentinel
	})

	async := Async(newTestClient(t, Config{Engine: eng}))
	f := async.Create(context.Background(), "repo::a", []string{"/x"}, nil)

	if _, err := f.Wait(context.Background()); !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want engine error", err)
	}

	// Waiting again returns the same outcome.
	if _, err := f.Wait(context.Background()); !errors.Is(err, sentinel) {
		t.Errorf("second Wait: %v", err)
	}
}

func TestAsync_WaitHonorsContext(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	eng := engine.Func(func(context.Context, []string) error {
		close(started)
		<-release
		return nil
	})

	async := Async(newTestClient(t, Config{Engine: eng}))
	f := async.Info(context.Background(), "/srv/repo", nil)
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait with cancelled ctx: %v", err)
	}

	// The command itself keeps running and finishes normally.
	close(release)
	if _, err := f.Wait(context.Background()); err != nil {
		t.Errorf("Wait after release: %v", err)
	}
}

func TestAsync_DoneChannel(t *testing.T) {
	eng := engine.Func(func(context.Context, []string) error { return nil })
	async := Async(newTestClient(t, Config{Engine: eng}))

	f := async.Umount(context.Background(), "/mnt/a", nil)
	select {
	case <-f.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done never closed")
	}
}
