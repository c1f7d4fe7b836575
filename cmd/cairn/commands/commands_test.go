// Copyright 2026 The Cairn Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"strings"
	"testing"

	"github.com/cairn-build/cairn/cmd/cairn/cli"
)

// walkCommands recursively visits every command in the tree with its
// accumulated path.
func walkCommands(command *cli.Command, path []string, visit func(*cli.Command, []string)) {
	current := append(append([]string(nil), path...), command.Name)
	visit(command, current)
	for _, sub := range command.Subcommands {
		walkCommands(sub, current, visit)
	}
}

func TestCommandTreeIsDocumented(t *testing.T) {
	seen := make(map[string]bool)
	walkCommands(Root(), nil, func(command *cli.Command, path []string) {
		name := strings.Join(path, " ")
		if seen[name] {
			t.Errorf("%s: duplicate command", name)
		}
		seen[name] = true
		if len(path) > 1 && command.Summary == "" {
			t.Errorf("%s: missing Summary", name)
		}
		if command.Run == nil && len(command.Subcommands) == 0 {
			t.Errorf("%s: neither Run nor Subcommands", name)
		}
		if command.Flags != nil {
			flagSet := command.Flags()
			if flagSet.Lookup("help") != nil {
				t.Errorf("%s: defines --help, which the dispatcher handles", name)
			}
		}
	})

	for _, want := range []string{"cairn run", "cairn filter", "cairn manifest", "cairn log archive", "cairn version"} {
		if !seen[want] {
			t.Errorf("command tree is missing %q", want)
		}
	}
}
