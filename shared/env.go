package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Version is the service version, stamped into startup log fields.
const Version = "0.2.0"

type EnvParser[T any] func(raw string) (T, error)

func GetenvString(raw string) (string, error) {
	return raw, nil
}

func GetenvInt(raw string) (int, error) {
	return strconv.Atoi(raw)
}

func GetenvBool(raw string) (bool, error) {
	return strconv.ParseBool(raw)
}

// GetenvStrings parses a comma-separated list, trimming blanks.
func GetenvStrings(raw string) ([]string, error) {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// Getenv reads key from the environment and parses it with parse. When the
// variable is unset, required selects between an error and the fallback.
func Getenv[T any](parse EnvParser[T], key string, required bool, fallback T) (T, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		if required {
			return fallback, fmt.Errorf("%w: %s", ErrMissingSetting, key)
		}
		return fallback, nil
	}
	v, err := parse(raw)
	if err != nil {
		return fallback, fmt.Errorf("parsing %s: %w", key, err)
	}
	return v, nil
}

// MustGetenv is Getenv for defaulted settings that cannot fail to parse.
func MustGetenv[T any](parse EnvParser[T], key string, required bool, fallback T) T {
	v, err := Getenv(parse, key, required, fallback)
	if err != nil {
		panic(err)
	}
	return v
}
