package cache

import "strings"

// Key generates a composite cache key from a prefix and any number of name parts,
// joined with underscores. Key("twawlrule", "golang") == "twawlrule_golang".
func Key(prefix string, parts ...string) string {
	if len(parts) == 0 {
		return prefix
	}
	return prefix + "_" + strings.Join(parts, "_")
}
