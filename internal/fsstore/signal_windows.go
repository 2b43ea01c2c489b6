//go:build windows

package fsstore

import "os"

// On Windows os.Process.Signal only supports os.Kill, so a liveness
// probe falls back to "assume alive"; the stale-lock path simply won't
// self-heal on this platform without the PID's process object, which is
// an acceptable degradation since the primary deployment target is Unix.
func syscallSig0() os.Signal { return os.Interrupt }
