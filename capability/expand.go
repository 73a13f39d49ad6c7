package capability

import (
	"os"
	"regexp"
)

var envDefaultPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-|-)([^}]*)\}`)

// expandEnv replaces ${VAR}, $VAR and ${VAR:-fallback} references in value.
// An unset or empty variable takes the fallback when one is given.
func expandEnv(value string, lookup func(string) string) string {
	if value == "" {
		return value
	}
	if lookup == nil {
		lookup = func(string) string { return "" }
	}

	expanded := envDefaultPattern.ReplaceAllStringFunc(value, func(match string) string {
		parts := envDefaultPattern.FindStringSubmatch(match)
		if len(parts) != 4 {
			return match
		}
		if val := lookup(parts[1]); val != "" {
			return val
		}
		return parts[3]
	})

	return os.Expand(expanded, lookup)
}
