// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"abc", "abd", 1}, // substitution
		{"abc", "ab", 1},  // deletion
		{"ab", "abc", 1},  // insertion
		{"abc", "bac", 2}, // transposition (counted as 2 edits)
		{"kitten", "sitting", 3},
		{"filter", "fitler", 2},
		{"archive", "archve", 1},
	}

	for _, test := range tests {
		t.Run(test.a+"->"+test.b, func(t *testing.T) {
			got := levenshtein(test.a, test.b)
			if got != test.want {
				t.Errorf("levenshtein(%q, %q) = %d, want %d", test.a, test.b, got, test.want)
			}
		})
	}
}

func TestLevenshtein_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"abc", "abd"},
		{"manifest", "manfiest"},
		{"run", "urn"},
	}

	for _, pair := range pairs {
		forward := levenshtein(pair[0], pair[1])
		reverse := levenshtein(pair[1], pair[0])
		if forward != reverse {
			t.Errorf("levenshtein(%q, %q) = %d, but reverse = %d",
				pair[0], pair[1], forward, reverse)
		}
	}
}

func TestSuggestCommand(t *testing.T) {
	commands := []*Command{
		{Name: "run"},
		{Name: "filter"},
		{Name: "manifest"},
		{Name: "log"},
		{Name: "version"},
	}

	tests := []struct {
		input string
		want  string
	}{
		{"fitler", "filter"},     // transposition
		{"manifst", "manifest"},  // missing letter
		{"filterr", "filter"},    // extra letter
		{"vrsion", "version"},    // missing letter
		{"zzzzzzzzz", ""},        // nothing close
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got := suggestCommand(test.input, commands)
			if got != test.want {
				t.Errorf("suggestCommand(%q) = %q, want %q", test.input, got, test.want)
			}
		})
	}
}

func TestSuggestFlag(t *testing.T) {
	makeFlagSet := func() *pflag.FlagSet {
		flagSet := pflag.NewFlagSet("test", pflag.ContinueOnError)
		flagSet.String("root-pid", "", "")
		flagSet.String("options", "", "")
		flagSet.String("output", "", "")
		flagSet.String("compression", "", "")
		flagSet.Bool("truncate", false, "")
		return flagSet
	}

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"close typo", []string{"--compresion"}, "--compression"},
		{"dash typo", []string{"--rootpid", "7"}, "--root-pid"},
		{"truncate typo", []string{"--trunacte"}, "--truncate"},
		{"nothing close", []string{"--zzzzzzzzz"}, ""},
		{"no flags", []string{"positional"}, ""},
		{"flag with equals", []string{"--compresion=lz4"}, "--compression"},
		{"after double dash", []string{"--", "--compresion"}, ""},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := suggestFlag(test.args, makeFlagSet())
			if got != test.want {
				t.Errorf("suggestFlag(%v) = %q, want %q", test.args, got, test.want)
			}
		})
	}
}
