// SPDX-License-Identifier: MPL-2.0

package flags

import (
	"errors"
	"fmt"
)

// ErrUnknownCommand is returned when a command has no registered schema.
var ErrUnknownCommand = errors.New("flags: unknown command")

// Command identifies one Borg command verb. The set is closed: schemas are
// registered in a static table, never at runtime.
type Command string

const (
	CmdInit                Command = "init"
	CmdCreate              Command = "create"
	CmdExtract             Command = "extract"
	CmdCheck               Command = "check"
	CmdRename              Command = "rename"
	CmdList                Command = "list"
	CmdDiff                Command = "diff"
	CmdDelete              Command = "delete"
	CmdPrune               Command = "prune"
	CmdCompact             Command = "compact"
	CmdInfo                Command = "info"
	CmdMount               Command = "mount"
	CmdUmount              Command = "umount"
	CmdKeyChangePassphrase Command = "key_change_passphrase"
	CmdKeyExport           Command = "key_export"
	CmdKeyImport           Command = "key_import"
	CmdUpgrade             Command = "upgrade"
	CmdRecreate            Command = "recreate"
	CmdImportTar           Command = "import_tar"
	CmdExportTar           Command = "export_tar"
	CmdServe               Command = "serve"
	CmdConfig              Command = "config"
	CmdWithLock            Command = "with_lock"
	CmdBreakLock           Command = "break_lock"
	CmdBenchmarkCrud       Command = "benchmark_crud"
)

// commands is the closed set of recognized command names.
var commands = map[Command]bool{
	CmdInit: true, CmdCreate: true, CmdExtract: true, CmdCheck: true,
	CmdRename: true, CmdList: true, CmdDiff: true, CmdDelete: true,
	CmdPrune: true, CmdCompact: true, CmdInfo: true, CmdMount: true,
	CmdUmount: true, CmdKeyChangePassphrase: true, CmdKeyExport: true,
	CmdKeyImport: true, CmdUpgrade: true, CmdRecreate: true,
	CmdImportTar: true, CmdExportTar: true, CmdServe: true, CmdConfig: true,
	CmdWithLock: true, CmdBreakLock: true, CmdBenchmarkCrud: true,
}

// Known reports whether c names a recognized command.
func (c Command) Known() bool { return commands[c] }

// schemas maps each command with optional arguments to its schema
// constructor. Commands absent from the table (rename, umount, ...) accept
// only common options and positionals.
var schemas = map[Command]func() any{
	CmdInit:      func() any { return new(Init) },
	CmdCreate:    func() any { return new(Create) },
	CmdExtract:   func() any { return new(Extract) },
	CmdCheck:     func() any { return new(Check) },
	CmdList:      func() any { return new(List) },
	CmdDiff:      func() any { return new(Diff) },
	CmdDelete:    func() any { return new(Delete) },
	CmdPrune:     func() any { return new(Prune) },
	CmdCompact:   func() any { return new(Compact) },
	CmdInfo:      func() any { return new(Info) },
	CmdMount:     func() any { return new(Mount) },
	CmdKeyExport: func() any { return new(KeyExport) },
	CmdKeyImport: func() any { return new(KeyImport) },
	CmdUpgrade:   func() any { return new(Upgrade) },
	CmdRecreate:  func() any { return new(Recreate) },
	CmdImportTar: func() any { return new(ImportTar) },
	CmdExportTar: func() any { return new(ExportTar) },
	CmdServe:     func() any { return new(Serve) },
	CmdConfig:    func() any { return new(Config) },
}

// Registry resolves per-command option schemas and carries the stored
// per-command defaults. It is built once at construction time.
type Registry struct {
	defaults map[Command]Options
}

// NewRegistry creates a registry with the given per-command stored defaults.
// A nil map means no stored defaults.
func NewRegistry(defaults map[Command]Options) *Registry {
	if defaults == nil {
		defaults = map[Command]Options{}
	}
	return &Registry{defaults: defaults}
}

// Get merges the stored defaults for cmd with values (values win) and builds
// the matching schema instance.
func (r *Registry) Get(cmd Command, values Options) (any, error) {
	build, ok := schemas[cmd]
	if !ok {
		return nil, fmt.Errorf("%w: %q has no optional arguments or does not exist", ErrUnknownCommand, cmd)
	}
	schema := build()
	if err := Build(schema, r.defaults[cmd], values); err != nil {
		return nil, err
	}
	return schema, nil
}

// ToList resolves and serializes the optional flags for cmd in one step.
func (r *Registry) ToList(cmd Command, values Options) ([]string, error) {
	schema, err := r.Get(cmd, values)
	if err != nil {
		return nil, err
	}
	return Parse(schema)
}

// Get resolves the schema for cmd as its concrete type T.
func Get[T any](r *Registry, cmd Command, values Options) (*T, error) {
	schema, err := r.Get(cmd, values)
	if err != nil {
		return nil, err
	}
	typed, ok := schema.(*T)
	if !ok {
		return nil, fmt.Errorf("flags: command %q builds %T, not %T", cmd, schema, typed)
	}
	return typed, nil
}
