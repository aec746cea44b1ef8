// SPDX-License-Identifier: MPL-2.0

package jsonx

import (
	"reflect"
	"testing"
)

func TestLenient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want any
	}{
		{
			name: "empty yields nil",
			text: "",
			want: nil,
		},
		{
			name: "whole document",
			text: `{"archives": []}`,
			want: map[string]any{"archives": []any{}},
		},
		{
			name: "json lines",
			text: "{\"a\":1}\n{\"b\":2}",
			want: []any{
				map[string]any{"a": float64(1)},
				map[string]any{"b": float64(2)},
			},
		},
		{
			name: "json lines with blank lines",
			text: "{\"a\":1}\n\n  \n{\"b\":2}\n",
			want: []any{
				map[string]any{"a": float64(1)},
				map[string]any{"b": float64(2)},
			},
		},
		{
			name: "concatenated objects",
			text: `{"a":1}{"b":2}`,
			want: []any{
				map[string]any{"a": float64(1)},
				map[string]any{"b": float64(2)},
			},
		},
		{
			name: "plain text unchanged",
			text: "hello\nworld",
			want: "hello\nworld",
		},
		{
			name: "bare array",
			text: `[1, 2, 3]`,
			want: []any{float64(1), float64(2), float64(3)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Lenient(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Lenient(%q) = %#v, want %#v", tt.text, got, tt.want)
			}
		})
	}
}

func TestLenientLines(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		lines []string
		want  any
	}{
		{
			name:  "empty yields nil",
			lines: nil,
			want:  nil,
		},
		{
			name:  "record list",
			lines: []string{`{"a":1}`, `{"b":2}`},
			want: []any{
				map[string]any{"a": float64(1)},
				map[string]any{"b": float64(2)},
			},
		},
		{
			name:  "concatenated records inside one line",
			lines: []string{`{"a":1}{"b":2}`},
			want: []any{
				map[string]any{"a": float64(1)},
				map[string]any{"b": float64(2)},
			},
		},
		{
			name:  "unparseable records returned unchanged",
			lines: []string{"plain", "text"},
			want:  []string{"plain", "text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := LenientLines(tt.lines)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LenientLines(%q) = %#v, want %#v", tt.lines, got, tt.want)
			}
		})
	}
}
