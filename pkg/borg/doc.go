// SPDX-License-Identifier: MPL-2.0

// Package borg is the programmatic bridge around the BorgBackup command
// line. A Client turns keyword-style option maps into the engine's
// argument-vector calling convention, invokes the engine entry point inside
// a capture session, and synthesizes a structured result from the captured
// output streams and named log channels.
//
// The core is synchronous and single-flight: one call, one capture session,
// one argument vector, one engine invocation. AsyncClient layers futures on
// top without introducing concurrency inside the capture logic.
package borg
