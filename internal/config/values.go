package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configFileEnvVar = "CONFIG_FILE"
	dotEnvFile       = ".env"
)

// values holds settings read from the yaml config file, keyed by env var name
type values map[string]string

func (v values) str(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if value, ok := v[envVar]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (v values) duration(envVar string, defaultValue time.Duration) time.Duration {
	raw := v.str(envVar, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func (v values) integer(envVar string, defaultValue int) int {
	raw := v.str(envVar, "")
	if raw == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return i
}

func (v values) boolean(envVar string, defaultValue bool) bool {
	raw := v.str(envVar, "")
	if raw == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return b
}

func (v values) list(envVar string) []string {
	raw := v.str(envVar, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func loadDotEnv() error {
	if err := godotenv.Load(dotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", dotEnvFile, err)
	}
	return nil
}

func loadYAML(path string) (values, error) {
	if path == "" {
		return values{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	src := make(values, len(raw))
	for k, v := range raw {
		switch typed := v.(type) {
		case []any:
			parts := make([]string, 0, len(typed))
			for _, p := range typed {
				parts = append(parts, fmt.Sprint(p))
			}
			src[strings.ToUpper(k)] = strings.Join(parts, ",")
		case nil:
		default:
			src[strings.ToUpper(k)] = fmt.Sprint(typed)
		}
	}
	return src, nil
}

// GetEnv returns the environment variable or the default when it is unset
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
