// SPDX-License-Identifier: MPL-2.0

//go:build unix

package engine

import "syscall"

// detachedProcAttr puts the child in its own session so it survives the
// parent and never shares the controlling terminal.
func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setsid: true}
}
