// Package config handles YAML config file loading for macadam.
package config

import (
	"os"
	"regexp"
)

// envRef matches ${VAR} and ${VAR:-default}.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// ExpandEnv substitutes ${VAR} references in the raw config text with
// environment values, falling back to the ${VAR:-default} form's
// default when the variable is unset or empty.
//
// An unset variable with no default expands to "". Required secrets
// fail at validation instead, where the error can name the missing
// credential.
func ExpandEnv(input string) string {
	return envRef.ReplaceAllStringFunc(input, func(ref string) string {
		groups := envRef.FindStringSubmatch(ref)
		name, fallback := groups[1], groups[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return fallback
	})
}
