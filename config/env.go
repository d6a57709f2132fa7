// Package config holds crawler configuration and environment helpers.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvString returns the trimmed value of an environment variable and whether
// it was set to something non-empty.
func EnvString(name string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses an integer environment variable. The second return value
// reports whether the variable was set.
func EnvInt(name string) (int, bool, error) {
	raw, ok := EnvString(name)
	if !ok {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return value, true, nil
}

// EnvBool parses a boolean environment variable. The second return value
// reports whether the variable was set.
func EnvBool(name string) (bool, bool, error) {
	raw, ok := EnvString(name)
	if !ok {
		return false, false, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, true, fmt.Errorf("%s must be a boolean: %w", name, err)
	}
	return value, true, nil
}
