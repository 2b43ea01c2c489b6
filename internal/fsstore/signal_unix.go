//go:build !windows

package fsstore

import "syscall"

func syscallSig0() syscall.Signal { return syscall.Signal(0) }
