// Package ids generates the engine's stable record identifiers.
package ids

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// New returns an ID of the form <kind>_<YYYYMMDD>_<HHMMSS>_<rand>, where
// rand is six hex characters from crypto/rand. IDs are never reused and
// never change once assigned.
func New(kind string, at time.Time) string {
	return kind + "_" + at.UTC().Format("20060102") + "_" + at.UTC().Format("150405") + "_" + suffix()
}

func suffix() string {
	var b [3]byte
	// crypto/rand.Read on a fixed-size buffer never returns a short read
	// without an error, and an error here only happens if the OS source
	// is unavailable, in which case the suffix degrades to zeros rather
	// than panicking a record write.
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
