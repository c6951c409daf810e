package utils

import (
	"fmt"
	"os"
	"strconv"
)

// GetEnvDefault returns the value of the environment variable key, or
// defaultValue when it is unset or empty.
func GetEnvDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvIntDefault is GetEnvDefault for integer variables. A set but
// unparsable value is an error rather than a silent fallback.
func GetEnvIntDefault(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}
