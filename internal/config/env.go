package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/matcalc/internal/errors"
)

// envAliases gives readable variable names to the single-letter flags.
var envAliases = map[string]string{
	"n": "SIZE",
	"p": "EDGE_PROBABILITY",
	"v": "VERBOSE",
}

// EnvName returns the environment variable that overrides a flag, e.g.
// "strassen-threshold" -> "MATCALC_STRASSEN_THRESHOLD".
func EnvName(flagName string) string {
	if alias, ok := envAliases[flagName]; ok {
		return EnvPrefix + alias
	}
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

// isFlagSet reports whether a flag has been set, on the command line or by
// an earlier override.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// applyEnvOverrides sets every flag still at its default from its MATCALC_
// variable, when that variable is non-empty. Values go through the flag's
// own parser, so a malformed value is an error instead of being ignored.
func applyEnvOverrides(fs *flag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *flag.Flag) {
		if err != nil || isFlagSet(fs, f.Name) {
			return
		}
		name := EnvName(f.Name)
		val := os.Getenv(name)
		if val == "" {
			return
		}
		if setErr := fs.Set(f.Name, normalizeBool(f, val)); setErr != nil {
			err = apperrors.NewConfigError("invalid value %q for %s: %v", val, name, setErr)
		}
	})
	return err
}

// normalizeBool maps yes/no onto the forms strconv.ParseBool accepts.
func normalizeBool(f *flag.Flag, val string) string {
	if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
		switch strings.ToLower(val) {
		case "yes", "on":
			return "true"
		case "no", "off":
			return "false"
		}
	}
	return val
}

// applyFileOverrides reads a YAML mapping of flag names to values and sets
// every flag that is still at its default. Lists are joined with commas, so
// "sizes: [64, 128]" is accepted.
func applyFileOverrides(fs *flag.FlagSet, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return apperrors.NewConfigError("cannot read config file: %v", err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return apperrors.NewConfigError("invalid config file %s: %v", path, err)
	}
	for key, value := range values {
		f := fs.Lookup(key)
		if f == nil || key == "config" {
			return apperrors.NewConfigError("unknown key %q in config file %s", key, path)
		}
		if isFlagSet(fs, key) {
			continue
		}
		text := yamlScalar(value)
		if err := fs.Set(key, normalizeBool(f, text)); err != nil {
			return apperrors.NewConfigError("invalid value %q for %s in %s: %v", text, key, path, err)
		}
	}
	return nil
}

func yamlScalar(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, item := range list {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}
