// ABOUTME: Environment-variable interpolation over a decoded YAML document,
// ABOUTME: grounded on kadirpekel-hector's pkg/config/env.go expansion pass.

package config

import (
	"fmt"
	"os"
	"regexp"
)

var (
	envWithDefault = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*):=(.*?)\}`)
	envBraced      = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
)

// expandEnvVars substitutes ${VAR} and ${VAR:=default} in s. A ${VAR} with no
// default and no value set in the environment is an error (spec §4.8: "fail
// on missing without default"); ${VAR:=default} falls back silently.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	s = envWithDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envWithDefault.FindStringSubmatch(match)
		name, def := parts[1], parts[2]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		return def
	})

	s = envBraced.ReplaceAllStringFunc(s, func(match string) string {
		parts := envBraced.FindStringSubmatch(match)
		name := parts[1]
		val, ok := os.LookupEnv(name)
		if !ok && firstErr == nil {
			firstErr = fmt.Errorf("config: environment variable %q is not set and has no default", name)
		}
		return val
	})

	return s, firstErr
}

// expandEnvVarsInData walks a generic YAML-decoded tree (the shape
// gopkg.in/yaml.v3 produces for `interface{}` targets: map[string]interface{},
// []interface{}, and scalars) and expands every string leaf.
func expandEnvVarsInData(data interface{}) (interface{}, error) {
	switch v := data.(type) {
	case string:
		return expandEnvVars(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, value := range v {
			expanded, err := expandEnvVarsInData(value)
			if err != nil {
				return nil, err
			}
			out[key] = expanded
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			expanded, err := expandEnvVarsInData(item)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return v, nil
	}
}
