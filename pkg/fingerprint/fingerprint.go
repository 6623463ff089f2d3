// Package fingerprint computes the machine fingerprint attached to
// upstream requests (spec.md §4.1, §4.3: "a machine fingerprint; none of
// the retry-local state... leaks into them").
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
)

var (
	once  sync.Once
	value string
)

// Machine returns a stable per-process fingerprint: the hex-encoded
// SHA-256 of the hostname (falling back to a fixed label when the
// hostname can't be read). It is memoized — computing it is pure and
// read-only, not mutable shared state.
func Machine() string {
	once.Do(func() {
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = "kiro-gateway"
		}
		sum := sha256.Sum256([]byte(host))
		value = hex.EncodeToString(sum[:])
	})
	return value
}

// UserAgent renders the "KiroGateway-<fingerprint[:16]>" User-Agent value
// spec.md §4.1 requires on refresh requests.
func UserAgent() string {
	fp := Machine()
	if len(fp) > 16 {
		fp = fp[:16]
	}
	return "KiroGateway-" + fp
}
