// SPDX-License-Identifier: MPL-2.0

package flags

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

type (
	// Options is a loosely typed option map as accepted by every schema.
	// One superset map can feed many schemas: keys a schema does not declare
	// are silently ignored.
	Options map[string]any

	// Validator is implemented by schemas that enforce a format grammar on
	// their fields at construction time, before any invocation occurs.
	Validator interface {
		Validate() error
	}

	// fieldInfo describes one declared option field, resolved via reflection.
	fieldInfo struct {
		name       string // underscore form, e.g. "log_json"
		deprecated string // replacement field name, "-" for none, "" if not deprecated
		defTag     string
		value      reflect.Value
	}
)

// FlagName derives the command-line token for an option field name:
// "--" prefix, underscores replaced with dashes.
func FlagName(field string) string {
	return "--" + strings.ReplaceAll(field, "_", "-")
}

// Build merges the given option layers into dst, a pointer to a schema
// struct, in increasing priority (later layers win). Declared defaults are
// applied first. Unknown keys in any layer are ignored. Single string values
// destined for list fields are coerced to one-element lists. If dst
// implements Validator the format checks run after merging.
func Build(dst any, layers ...Options) error {
	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("flags: schema must be a struct pointer, got %T", dst)
	}

	fields, err := collectFields(v.Elem())
	if err != nil {
		return err
	}
	for i := range fields {
		if err := applyDefault(&fields[i]); err != nil {
			return err
		}
	}

	for _, layer := range layers {
		if layer == nil {
			continue
		}
		for i := range fields {
			raw, ok := layer[fields[i].name]
			if !ok {
				continue
			}
			if err := setField(&fields[i], raw); err != nil {
				return err
			}
		}
	}

	for i := range fields {
		warnDeprecated(&fields[i])
	}

	if val, ok := dst.(Validator); ok {
		return val.Validate()
	}
	return nil
}

// Parse walks the schema fields in declaration order and serializes every
// field whose value differs from its declared default:
//
//   - bool: the bare flag token
//   - string, int: flag token followed by the value
//   - []string: one flag/value pair per element, order preserved
//
// Any other declared field type fails with an error naming the field.
func Parse(src any) ([]string, error) {
	v := reflect.ValueOf(src)
	if v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("flags: schema must be a struct, got %T", src)
	}

	fields, err := collectFields(v)
	if err != nil {
		return nil, err
	}

	var args []string
	for i := range fields {
		f := &fields[i]
		set, err := fieldSet(f)
		if err != nil {
			return nil, err
		}
		if !set {
			continue
		}
		flag := FlagName(f.name)
		switch f.value.Kind() {
		case reflect.Bool:
			args = append(args, flag)
		case reflect.String:
			args = append(args, flag, f.value.String())
		case reflect.Int:
			args = append(args, flag, strconv.FormatInt(f.value.Int(), 10))
		case reflect.Slice:
			for j := 0; j < f.value.Len(); j++ {
				args = append(args, flag, f.value.Index(j).String())
			}
		default:
			return nil, fmt.Errorf("flags: unrecognized flag type for %q: %s", f.name, f.value.Kind())
		}
	}
	return args, nil
}

// collectFields flattens the schema struct, recursing into embedded groups
// first so composition preserves declaration order.
func collectFields(v reflect.Value) ([]fieldInfo, error) {
	t := v.Type()
	var fields []fieldInfo
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		if sf.Anonymous {
			nested, err := collectFields(v.Field(i))
			if err != nil {
				return nil, err
			}
			fields = append(fields, nested...)
			continue
		}
		name, ok := sf.Tag.Lookup("flag")
		if !ok {
			continue
		}
		fields = append(fields, fieldInfo{
			name:       name,
			deprecated: sf.Tag.Get("deprecated"),
			defTag:     sf.Tag.Get("default"),
			value:      v.Field(i),
		})
	}
	return fields, nil
}

func applyDefault(f *fieldInfo) error {
	if f.defTag == "" {
		return nil
	}
	switch f.value.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(f.defTag)
		if err != nil {
			return fmt.Errorf("flags: bad default for %q: %w", f.name, err)
		}
		f.value.SetBool(b)
	case reflect.Int:
		n, err := strconv.Atoi(f.defTag)
		if err != nil {
			return fmt.Errorf("flags: bad default for %q: %w", f.name, err)
		}
		f.value.SetInt(int64(n))
	case reflect.String:
		f.value.SetString(f.defTag)
	default:
		return fmt.Errorf("flags: default tag unsupported for %q (%s)", f.name, f.value.Kind())
	}
	return nil
}

// defaultValue reconstructs the declared default for comparison in Parse.
func defaultValue(f *fieldInfo) (reflect.Value, error) {
	def := reflect.New(f.value.Type()).Elem()
	scratch := fieldInfo{name: f.name, defTag: f.defTag, value: def}
	if err := applyDefault(&scratch); err != nil {
		return reflect.Value{}, err
	}
	return def, nil
}

func fieldSet(f *fieldInfo) (bool, error) {
	switch f.value.Kind() {
	case reflect.Bool, reflect.Int, reflect.String:
		def, err := defaultValue(f)
		if err != nil {
			return false, err
		}
		return !f.value.Equal(def), nil
	case reflect.Slice:
		return f.value.Len() > 0, nil
	default:
		return false, fmt.Errorf("flags: unrecognized flag type for %q: %s", f.name, f.value.Kind())
	}
}

// setField assigns one merge-layer value onto a schema field, coercing the
// loose types an Options map carries.
func setField(f *fieldInfo, raw any) error {
	switch f.value.Kind() {
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return typeError(f.name, "bool", raw)
		}
		f.value.SetBool(b)
	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			return typeError(f.name, "string", raw)
		}
		f.value.SetString(s)
	case reflect.Int:
		switch n := raw.(type) {
		case int:
			f.value.SetInt(int64(n))
		case int64:
			f.value.SetInt(n)
		case float64:
			f.value.SetInt(int64(n))
		default:
			return typeError(f.name, "int", raw)
		}
	case reflect.Slice:
		switch s := raw.(type) {
		case string:
			// A single string destined for a list field becomes a
			// one-element list.
			f.value.Set(reflect.ValueOf([]string{s}))
		case []string:
			f.value.Set(reflect.ValueOf(s))
		case []any:
			out := make([]string, 0, len(s))
			for _, e := range s {
				es, ok := e.(string)
				if !ok {
					return typeError(f.name, "[]string", raw)
				}
				out = append(out, es)
			}
			f.value.Set(reflect.ValueOf(out))
		default:
			return typeError(f.name, "[]string", raw)
		}
	default:
		return fmt.Errorf("flags: unrecognized flag type for %q: %s", f.name, f.value.Kind())
	}
	return nil
}

func typeError(field, want string, got any) error {
	return fmt.Errorf("flags: option %q wants %s, got %T", field, want, got)
}

// warnDeprecated logs when a deprecated field carries a non-default value.
// Deprecation never blocks execution.
func warnDeprecated(f *fieldInfo) {
	if f.deprecated == "" {
		return
	}
	set, err := fieldSet(f)
	if err != nil || !set {
		return
	}
	if f.deprecated == "-" {
		log.Warn("deprecated option, not being replaced", "option", f.name)
		return
	}
	log.Warn("deprecated option", "option", f.name, "use", f.deprecated)
}
