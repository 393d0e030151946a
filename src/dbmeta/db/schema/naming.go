package schema

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// ConstraintName builds "<table>_<columns>_<digest><suffix>". The 8 hex
// digit digest is taken over the full table and column names, so truncating
// the readable part to maxLen still yields a stable, distinct name.
// maxLen <= 0 disables truncation.
func ConstraintName(table string, columns []string, suffix string, maxLen int) string {
	sum := md5.Sum([]byte(table + "\x00" + strings.Join(columns, "\x00")))
	digest := hex.EncodeToString(sum[:])[:8]

	base := table + "_" + strings.Join(columns, "_")
	name := base + "_" + digest + suffix
	if maxLen <= 0 || len(name) <= maxLen {
		return name
	}

	keep := maxLen - len(digest) - len(suffix) - 1
	if keep <= 0 {
		return digest + suffix
	}
	return strings.TrimRight(base[:keep], "_") + "_" + digest + suffix
}
