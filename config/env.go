package config

import (
	"os"
	"strings"
)

// ExpandEnvWithDefaults expands $VAR, ${VAR} and ${VAR:-default} references.
// Unset or empty variables without a default expand to "".
func ExpandEnvWithDefaults(s string) string {
	return os.Expand(s, func(key string) string {
		name, def, hasDefault := strings.Cut(key, ":-")
		if v, ok := os.LookupEnv(name); ok && v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return ""
	})
}
