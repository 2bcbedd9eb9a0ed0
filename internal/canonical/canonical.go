// Package canonical implements the deterministic parameter serialization the
// signing protocol is built on. Signatures are only reproducible when both
// sides serialize the parameter set identically, so the ordering rule lives
// here in one place instead of being re-derived at every call site.
package canonical

import (
	"sort"
	"strings"
)

// String serializes params as sorted key=value pairs joined with "&".
// Keys are ordered lexicographically (byte order); values are used verbatim,
// including empty strings. Keys listed in exclude are left out entirely.
// No URL escaping is applied: escaping belongs to the transport encoding,
// not to the signed form.
func String(params map[string]string, exclude ...string) string {
	if len(params) == 0 {
		return ""
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if contains(exclude, k) {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
