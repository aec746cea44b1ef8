// SPDX-License-Identifier: MPL-2.0

package borg

import (
	"borgbridge/internal/jsonx"
	"borgbridge/pkg/capture"
)

// Output is the structured value a command returns: nil when nothing was
// captured, a single unwrapped value when exactly one channel was populated,
// or a name→value map when two or more were. Values are strings in text
// mode and decoded JSON (maps, slices) in JSON mode.
type Output = any

// entry is one labeled channel value contributing to a result.
type entry struct {
	name  string
	value any
}

// buildResult assembles the final structured value: populated channels are
// kept in order, empty ones omitted entirely (never set to a placeholder).
func buildResult(entries []entry) Output {
	populated := entries[:0:0]
	for _, e := range entries {
		if !emptyValue(e.value) {
			populated = append(populated, e)
		}
	}
	switch len(populated) {
	case 0:
		return nil
	case 1:
		return populated[0].value
	default:
		result := make(map[string]any, len(populated))
		for _, e := range populated {
			result[e.name] = e.value
		}
		return result
	}
}

func emptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []string:
		return len(t) == 0
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	case []byte:
		return len(t) == 0
	default:
		return false
	}
}

// basicResults derives the channel entries every command shares: stats,
// list, and progress, each either verbatim text or run through the JSON
// repair heuristic depending on the originally requested display flags.
func basicResults(v capture.Values, opts capture.Options) []entry {
	var out []entry

	if opts.StatsShow {
		if opts.StatsJSON {
			// JSON stats are printed on the primary output, not the channel.
			out = append(out, entry{"stats", jsonx.Lenient(v.Stdout)})
		} else {
			out = append(out, entry{"stats", v.Stats})
		}
	}
	if opts.ListShow {
		if opts.ListJSON {
			out = append(out, entry{"list", lenient(v.List)})
		} else {
			out = append(out, entry{"list", v.List})
		}
	}
	if opts.ProgShow {
		if opts.ProgJSON {
			out = append(out, entry{"prog", jsonx.Lenient(v.Stderr)})
		} else {
			out = append(out, entry{"prog", v.Stderr})
		}
	}
	return out
}

// lenient runs the JSON repair heuristic over whichever shape a channel
// capture produced.
func lenient(v any) any {
	switch t := v.(type) {
	case string:
		return jsonx.Lenient(t)
	case []string:
		return jsonx.LenientLines(t)
	default:
		return v
	}
}

// replaceEntry swaps the value of the named entry in place, used by commands
// whose channel output lands on a different stream than the default wiring
// assumes.
func replaceEntry(entries []entry, name string, value any) []entry {
	for i := range entries {
		if entries[i].name == name {
			entries[i].value = value
			return entries
		}
	}
	return append(entries, entry{name, value})
}
