// Package normalize holds the pure helpers used to compare and canonicalize sheet rows.
package normalize

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const cellSeparator = "|"

// Fingerprint hashes an ordered list of cells. Nil cells hash the same as empty ones.
func Fingerprint(cells []*string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		if c != nil {
			parts[i] = *c
		}
	}
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(parts, cellSeparator)))
}
