// SPDX-License-Identifier: MPL-2.0

// Package flags turns keyword-style option sets into Borg's argument-vector
// calling convention.
//
// Option groups are plain structs whose fields carry `flag` tags. Shared
// groups (exclusion, filesystem, archive variants) are composed by struct
// embedding. Build merges layered option maps into a schema instance and
// Parse serializes the instance to command-line tokens, emitting nothing for
// fields left at their declared defaults.
package flags
