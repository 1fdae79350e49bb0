// Package envx reads typed process settings from environment variables.
package envx

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// GetString retrieves an environment variable or returns fallback when unset.
func GetString(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// GetInt retrieves an environment variable as integer or returns fallback.
func GetInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			invalid(key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetBool retrieves an environment variable as bool or returns fallback.
func GetBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			invalid(key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetDuration accepts Go duration syntax ("15m", "720h").
func GetDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(strings.TrimSpace(value))
		if err != nil {
			invalid(key, err)
			return fallback
		}
		return parsed
	}
	return fallback
}

// GetList splits a comma separated variable, dropping empty items.
func GetList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func invalid(key string, err error) {
	slog.Warn("invalid environment value, using default", slog.String("key", key), slog.Any("error", err))
}
