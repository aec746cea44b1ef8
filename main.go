// SPDX-License-Identifier: MPL-2.0

// Command borgbridge is the CLI entry point.
package main

import cmd "borgbridge/cmd/borgbridge"

func main() {
	cmd.Execute()
}
