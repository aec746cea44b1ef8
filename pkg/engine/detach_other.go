// SPDX-License-Identifier: MPL-2.0

//go:build !unix

package engine

import "syscall"

func detachedProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{}
}
