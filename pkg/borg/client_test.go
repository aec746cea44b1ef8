// SPDX-License-Identifier: MPL-2.0

package borg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"testing"

	"borgbridge/pkg/engine"
	"borgbridge/pkg/flags"
	"borgbridge/pkg/logbus"
)

// Client tests drive real capture sessions and therefore own the process
// output streams; none of them run in parallel.

// argRecorder is an engine double that records the argument vector and then
// plays a scripted body.
type argRecorder struct {
	args []string
	body func(ctx context.Context) error
}

func (r *argRecorder) Run(_ context.Context, args []string) error {
	r.args = append([]string{}, args...)
	if r.body != nil {
		return r.body(context.Background())
	}
	return nil
}

func newTestClient(t *testing.T, cfg Config) *Client {
	t.Helper()
	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestClient_Init_InjectsEncryption(t *testing.T) {
	rec := &argRecorder{}
	client := newTestClient(t, Config{Engine: rec})

	out, err := client.Init(context.Background(), "/srv/repo", "", nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if out != nil {
		t.Errorf("quiet init should yield nil, got %#v", out)
	}

	want := []string{"init", "--encryption", "repokey", "/srv/repo"}
	if !reflect.DeepEqual(rec.args, want) {
		t.Errorf("args = %v, want %v", rec.args, want)
	}
}

func TestClient_Create_ArgumentOrder(t *testing.T) {
	rec := &argRecorder{}
	client := newTestClient(t, Config{Engine: rec})

	_, err := client.Create(context.Background(), "/srv/repo::daily", []string{"/home", "/etc"}, flags.Options{
		"dry_run":     true,
		"exclude":     []string{"*.tmp"},
		"compression": "lz4",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	want := []string{
		"create",
		"--dry-run",
		"--exclude", "*.tmp",
		"--compression", "lz4",
		"/srv/repo::daily", "/home", "/etc",
	}
	if !reflect.DeepEqual(rec.args, want) {
		t.Errorf("args = %v, want %v", rec.args, want)
	}
}

func TestClient_Create_ListText(t *testing.T) {
	eng := engine.Func(func(context.Context, []string) error {
		logbus.Emit(logbus.List, slog.LevelWarn, "A /home/user/file1")
		logbus.Emit(logbus.List, slog.LevelWarn, "A /home/user/file2")
		return nil
	})
	client := newTestClient(t, Config{Engine: eng})

	out, err := client.Create(context.Background(), "repo::a", []string{"/home"}, flags.Options{"list": true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := "A /home/user/file1\nA /home/user/file2"
	if out != want {
		t.Errorf("out = %#v, want %q", out, want)
	}
}

func TestClient_Create_ListJSONFromStderr(t *testing.T) {
	// With structured logging on, the file list arrives as JSON records on
	// the diagnostic stream instead of the list channel.
	eng := engine.Func(func(context.Context, []string) error {
		fmt.Fprintln(os.Stderr, `{"path":"file1"}`)
		fmt.Fprintln(os.Stderr, `{"path":"file2"}`)
		return nil
	})
	client := newTestClient(t, Config{Engine: eng})

	out, err := client.Create(context.Background(), "repo::a", []string{"/home"}, flags.Options{
		"list":     true,
		"log_json": true,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := []any{
		map[string]any{"path": "file1"},
		map[string]any{"path": "file2"},
	}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("out = %#v, want %#v", out, want)
	}
}

func TestClient_Create_StatsJSONFromStdout(t *testing.T) {
	eng := engine.Func(func(context.Context, []string) error {
		fmt.Fprintln(os.Stdout, `{"archive": {"duration": 1.5}, "cache": {}}`)
		return nil
	})
	client := newTestClient(t, Config{Engine: eng})

	out, err := client.Create(context.Background(), "repo::a", []string{"/home"}, flags.Options{"json": true})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("out = %#v, want decoded map", out)
	}
	if _, ok := m["archive"]; !ok {
		t.Errorf("decoded stats missing archive: %#v", m)
	}
}

func TestClient_List_JSONFromStdout(t *testing.T) {
	eng := engine.Func(func(context.Context, []string) error {
		fmt.Fprintln(os.Stdout, `{"archives": [{"name": "daily"}]}`)
		return nil
	})
	client := newTestClient(t, Config{Engine: eng})

	out, err := client.List(context.Background(), "/srv/repo", nil, flags.Options{"json": true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("out = %#v, want decoded map", out)
	}
	if _, ok := m["archives"]; !ok {
		t.Errorf("decoded listing missing archives: %#v", m)
	}
}

func TestClient_List_TextFromStdout(t *testing.T) {
	eng := engine.Func(func(context.Context, []string) error {
		fmt.Fprint(os.Stdout, "daily   Mon\nweekly  Sun\n")
		return nil
	})
	client := newTestClient(t, Config{Engine: eng})

	out, err := client.List(context.Background(), "/srv/repo", nil, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if out != "daily   Mon\nweekly  Sun\n" {
		t.Errorf("out = %#v", out)
	}
}

func TestClient_Diff_JSONLines(t *testing.T) {
	eng := engine.Func(func(context.Context, []string) error {
		fmt.Fprintln(os.Stdout, `{"path": "a", "changes": []}`)
		fmt.Fprintln(os.Stdout, `{"path": "b", "changes": []}`)
		return nil
	})
	client := newTestClient(t, Config{Engine: eng})

	out, err := client.Diff(context.Background(), "repo::a", "b", nil, flags.Options{"json_lines": true})
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	list, ok := out.([]any)
	if !ok {
		t.Fatalf("out = %#v, want decoded array", out)
	}
	if len(list) != 2 {
		t.Errorf("decoded %d records, want 2", len(list))
	}
}

func TestClient_EngineErrorReturnedUnchanged(t *testing.T) {
	sentinel := errors.New("repository does not exist")
	eng := engine.Func(func(context.Context, []string) error {
		return sentinel
	})
	client := newTestClient(t, Config{Engine: eng})

	_, err := client.Info(context.Background(), "/srv/repo", nil)
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want the engine error unchanged", err)
	}

	// The session must have been torn down; a new call works.
	if _, err := client.List(context.Background(), "/srv/repo", nil, nil); err != nil {
		t.Errorf("call after failure: %v", err)
	}
}

func TestClient_InvalidOptionRejectedBeforeInvocation(t *testing.T) {
	rec := &argRecorder{}
	client := newTestClient(t, Config{Engine: rec})

	_, err := client.Create(context.Background(), "repo::a", []string{"/x"}, flags.Options{"umask": "nope"})
	if err == nil {
		t.Fatal("want validation error")
	}
	if rec.args != nil {
		t.Errorf("engine invoked despite invalid options: %v", rec.args)
	}
}

func TestClient_CommonOptionsLayeredUnderCalls(t *testing.T) {
	rec := &argRecorder{}
	client := newTestClient(t, Config{
		Engine:  rec,
		Options: flags.Options{"lock_wait": 10},
	})

	if _, err := client.BreakLock(context.Background(), "/srv/repo", nil); err != nil {
		t.Fatalf("BreakLock: %v", err)
	}
	want := []string{"--lock-wait", "10", "break-lock", "/srv/repo"}
	if !reflect.DeepEqual(rec.args, want) {
		t.Errorf("args = %v, want %v", rec.args, want)
	}
}

func TestClient_LogJSONAppliedEverywhere(t *testing.T) {
	rec := &argRecorder{}
	client := newTestClient(t, Config{Engine: rec, LogJSON: true})

	if _, err := client.Umount(context.Background(), "/mnt/backup", nil); err != nil {
		t.Fatalf("Umount: %v", err)
	}
	want := []string{"--log-json", "umount", "/mnt/backup"}
	if !reflect.DeepEqual(rec.args, want) {
		t.Errorf("args = %v, want %v", rec.args, want)
	}
}

func TestClient_BadLogLevelRejected(t *testing.T) {
	if _, err := New(Config{LogLevel: "loud"}); err == nil {
		t.Error("want error for unknown log level")
	}
}

// detachRecorder fakes an engine that supports detached invocations.
type detachRecorder struct {
	argRecorder
	detachArgs []string
}

func (d *detachRecorder) Detach(_ context.Context, args []string) (*engine.Handle, error) {
	d.detachArgs = append([]string{}, args...)
	return &engine.Handle{PID: 4242, ID: "test-handle"}, nil
}

func TestClient_Mount_UsesDetacher(t *testing.T) {
	rec := &detachRecorder{}
	client := newTestClient(t, Config{Engine: rec})

	out, err := client.Mount(context.Background(), "repo::a", "/mnt/backup", nil, nil)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	handle, ok := out.(*engine.Handle)
	if !ok {
		t.Fatalf("out = %#v, want *engine.Handle", out)
	}
	if handle.PID != 4242 {
		t.Errorf("PID = %d", handle.PID)
	}
	if len(rec.detachArgs) == 0 || rec.detachArgs[0] != "mount" {
		t.Errorf("detach args = %v", rec.detachArgs)
	}
	if rec.args != nil {
		t.Error("blocking Run should not have been used")
	}
}

func TestClient_RepoConfig_Changes(t *testing.T) {
	outputs := []string{"", "1073741824\n"}
	call := 0
	var argHistory [][]string
	eng := engine.Func(func(_ context.Context, args []string) error {
		argHistory = append(argHistory, append([]string{}, args...))
		fmt.Fprint(os.Stdout, outputs[call])
		call++
		return nil
	})
	client := newTestClient(t, Config{Engine: eng})

	out, err := client.RepoConfig(context.Background(), "/srv/repo", []ConfigChange{
		ConfigSet("max_segment_size", "1073741824"),
		ConfigGet("max_segment_size"),
	}, nil)
	if err != nil {
		t.Fatalf("RepoConfig: %v", err)
	}

	changes, ok := out.([]string)
	if !ok {
		t.Fatalf("out = %#v, want []string of change outputs", out)
	}
	want := []string{"", "1073741824"}
	if !reflect.DeepEqual(changes, want) {
		t.Errorf("changes = %q, want %q", changes, want)
	}

	if len(argHistory) != 2 {
		t.Fatalf("invocations = %d, want 2", len(argHistory))
	}
	wantFirst := []string{"config", "/srv/repo", "max_segment_size", "1073741824"}
	if !reflect.DeepEqual(argHistory[0], wantFirst) {
		t.Errorf("first invocation = %v, want %v", argHistory[0], wantFirst)
	}
}

func TestClient_SetEnviron(t *testing.T) {
	client := newTestClient(t, Config{Engine: &argRecorder{}})

	t.Setenv("BB_TEST_SENTINEL", "keep")
	if err := client.SetEnviron("", map[string]string{"BORG_PASSPHRASE": "hunter2"}); err != nil {
		t.Fatalf("SetEnviron: %v", err)
	}
	if got := os.Getenv("BORG_PASSPHRASE"); got != "hunter2" {
		t.Errorf("BORG_PASSPHRASE = %q", got)
	}

	if err := client.UnsetEnviron(); err != nil {
		t.Fatalf("UnsetEnviron: %v", err)
	}
	if _, ok := os.LookupEnv("BORG_PASSPHRASE"); ok {
		t.Error("BORG_PASSPHRASE still set after UnsetEnviron")
	}
	if got := os.Getenv("BB_TEST_SENTINEL"); got != "keep" {
		t.Errorf("unrelated variable disturbed: %q", got)
	}
}

func TestEnvironDefaultsAppliedWhenUnset(t *testing.T) {
	os.Unsetenv("BORG_EXIT_CODES")
	defer os.Unsetenv("BORG_EXIT_CODES")

	newTestClient(t, Config{Engine: &argRecorder{}})
	if got := os.Getenv("BORG_EXIT_CODES"); got != "modern" {
		t.Errorf("BORG_EXIT_CODES = %q, want modern", got)
	}

	t.Setenv("BORG_EXIT_CODES", "legacy")
	newTestClient(t, Config{Engine: &argRecorder{}})
	if got := os.Getenv("BORG_EXIT_CODES"); got != "legacy" {
		t.Errorf("existing value overwritten: %q", got)
	}
}
