// SPDX-License-Identifier: MPL-2.0

package flags

import (
	"errors"
	"reflect"
	"testing"
)

func TestFlagName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field string
		want  string
	}{
		{"progress", "--progress"},
		{"log_json", "--log-json"},
		{"restrict_to_path", "--restrict-to-path"},
	}

	for _, tt := range tests {
		if got := FlagName(tt.field); got != tt.want {
			t.Errorf("FlagName(%q) = %q, want %q", tt.field, got, tt.want)
		}
	}
}

func TestParse_DefaultsProduceNoArgs(t *testing.T) {
	t.Parallel()

	schemas := []any{
		&Common{},
		&Create{},
		&Delete{},   // has a non-zero declared default
		&Compact{},  // has a non-zero declared default
		&Mount{Foreground: true}, // default true
		&Serve{},
	}

	for _, schema := range schemas {
		// Defaults must be applied first so the comparison baseline matches.
		if err := Build(schema); err != nil {
			t.Fatalf("Build(%T): %v", schema, err)
		}
		args, err := Parse(schema)
		if err != nil {
			t.Fatalf("Parse(%T): %v", schema, err)
		}
		if len(args) != 0 {
			t.Errorf("Parse(%T) = %v, want empty", schema, args)
		}
	}
}

func TestParse_Serialization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		schema any
		want   []string
	}{
		{
			name:   "bool emits bare flag",
			schema: &Common{Progress: true},
			want:   []string{"--progress"},
		},
		{
			name:   "string emits pair",
			schema: &Common{Umask: "0077"},
			want:   []string{"--umask", "0077"},
		},
		{
			name:   "int emits pair",
			schema: &Common{LockWait: 10},
			want:   []string{"--lock-wait", "10"},
		},
		{
			name:   "list emits repeated pairs in order",
			schema: &Exclusion{Exclude: []string{"*.tmp", "*.cache"}},
			want:   []string{"--exclude", "*.tmp", "--exclude", "*.cache"},
		},
		{
			name:   "declaration order preserved",
			schema: &Common{Info: true, Progress: true, LogJSON: true},
			want:   []string{"--info", "--progress", "--log-json"},
		},
		{
			name:   "embedded group fields come first",
			schema: &ExclusionOutput{Exclusion: Exclusion{Exclude: []string{"x"}}, StripComponents: 2},
			want:   []string{"--exclude", "x", "--strip-components", "2"},
		},
		{
			name:   "non-default value overrides declared default",
			schema: &Compact{Threshold: 25},
			want:   []string{"--threshold", "25"},
		},
		{
			name:   "declared default is omitted",
			schema: &Compact{Threshold: 10},
			want:   []string{},
		},
		{
			name:   "false against true default emits bare flag",
			schema: &Mount{Foreground: false},
			want:   []string{"--foreground"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args, err := Parse(tt.schema)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(args) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(args, tt.want) {
				t.Errorf("Parse = %v, want %v", args, tt.want)
			}
		})
	}
}

func TestBuild_LayerPrecedence(t *testing.T) {
	t.Parallel()

	stored := Options{"stats": true, "filter": "AM"}
	call := Options{"filter": "E"}

	var schema Create
	if err := Build(&schema, stored, call); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if !schema.Stats {
		t.Error("stored layer value lost")
	}
	if schema.Filter != "E" {
		t.Errorf("call layer should win, got filter=%q", schema.Filter)
	}
}

func TestBuild_SupersetMapIgnoresUnknownKeys(t *testing.T) {
	t.Parallel()

	superset := Options{
		"stats":           true,
		"keep_daily":      7,     // Prune field, not Create
		"repository_only": true,  // Check field, not Create
		"no_such_option":  "x",   // nobody's field
	}

	var create Create
	if err := Build(&create, superset); err != nil {
		t.Fatalf("Build(Create): %v", err)
	}
	if !create.Stats {
		t.Error("declared key ignored")
	}

	var prune Prune
	if err := Build(&prune, superset); err != nil {
		t.Fatalf("Build(Prune): %v", err)
	}
	if prune.KeepDaily != 7 {
		t.Errorf("KeepDaily = %d, want 7", prune.KeepDaily)
	}
}

func TestBuild_Coercion(t *testing.T) {
	t.Parallel()

	t.Run("single string becomes one-element list", func(t *testing.T) {
		t.Parallel()

		var schema Exclusion
		if err := Build(&schema, Options{"exclude": "*.tmp"}); err != nil {
			t.Fatalf("Build: %v", err)
		}
		if !reflect.DeepEqual(schema.Exclude, []string{"*.tmp"}) {
			t.Errorf("Exclude = %v", schema.Exclude)
		}
	})

	t.Run("float64 feeds int field", func(t *testing.T) {
		t.Parallel()

		var schema Common
		if err := Build(&schema, Options{"lock_wait": float64(5)}); err != nil {
			t.Fatalf("Build: %v", err)
		}
		if schema.LockWait != 5 {
			t.Errorf("LockWait = %d, want 5", schema.LockWait)
		}
	})

	t.Run("any-slice of strings feeds list field", func(t *testing.T) {
		t.Parallel()

		var schema Common
		if err := Build(&schema, Options{"debug_topic": []any{"repo", "cache"}}); err != nil {
			t.Fatalf("Build: %v", err)
		}
		if !reflect.DeepEqual(schema.DebugTopic, []string{"repo", "cache"}) {
			t.Errorf("DebugTopic = %v", schema.DebugTopic)
		}
	})

	t.Run("wrong type is rejected", func(t *testing.T) {
		t.Parallel()

		var schema Common
		if err := Build(&schema, Options{"progress": "yes"}); err == nil {
			t.Error("want type error for string into bool")
		}
	})
}

func TestBuild_UmaskValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		umask string
		ok    bool
	}{
		{"0077", true},
		{"0022", true},
		{"", true},
		{"77", false},
		{"00777", false},
		{"0o77", false},
	}

	for _, tt := range tests {
		var schema Common
		err := Build(&schema, Options{"umask": tt.umask})
		if tt.ok && err != nil {
			t.Errorf("umask %q: unexpected error %v", tt.umask, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("umask %q: want validation error", tt.umask)
		}
	}
}

func TestBuild_RejectsNonPointer(t *testing.T) {
	t.Parallel()

	if err := Build(Common{}); err == nil {
		t.Error("want error for non-pointer schema")
	}
}

func TestRegistry_UnknownCommand(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	if _, err := r.Get("frobnicate", nil); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("want ErrUnknownCommand, got %v", err)
	}
	// rename accepts only common options and positionals
	if _, err := r.Get(CmdRename, nil); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("want ErrUnknownCommand for schema-less command, got %v", err)
	}
}

func TestRegistry_StoredDefaults(t *testing.T) {
	t.Parallel()

	r := NewRegistry(map[Command]Options{
		CmdCreate: {"compression": "lz4", "stats": true},
	})

	create, err := Get[Create](r, CmdCreate, Options{"stats": false})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if create.Stats {
		t.Error("call-site value should override stored default")
	}

	args, err := r.ToList(CmdCreate, nil)
	if err != nil {
		t.Fatalf("ToList: %v", err)
	}
	want := []string{"--stats"}
	if !reflect.DeepEqual(args, want) {
		t.Errorf("ToList = %v, want %v", args, want)
	}
}

func TestGet_TypedMismatch(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	if _, err := Get[Prune](r, CmdCreate, nil); err == nil {
		t.Error("want error for mismatched schema type")
	}
}

func TestCommandKnown(t *testing.T) {
	t.Parallel()

	if !CmdRename.Known() {
		t.Error("rename should be known even without a schema")
	}
	if Command("frobnicate").Known() {
		t.Error("unknown command reported as known")
	}
}
