// SPDX-License-Identifier: MPL-2.0

// Package sshserve exposes repositories over SSH using the Wish library.
// Each authenticated session is bridged onto an engine `serve` invocation
// restricted to the configured path prefixes, so remote clients can push and
// pull archives without shell access on the host. Authentication is a single
// shared token presented as the SSH password; public keys are rejected.
package sshserve
