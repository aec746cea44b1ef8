// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for borgbridge.
//
// This package implements the Cobra command hierarchy for the borgbridge CLI:
// the root command, the archiving verbs (init, create, extract, list, ...),
// key management, and the SSH repository-serving front end.
package cmd
