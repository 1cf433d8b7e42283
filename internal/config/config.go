package config

import (
	"fmt"
	"strings"
)

type Config interface {
	EnvConfig
	CorsConfig
	TokenConfig
	CookieConfig
	StoreConfig
	EventsConfig
	SecurityConfig

	// Validate reports every setting the process cannot boot without
	Validate() error
}

type EnvConfig interface {
	GetPort() string
	GetGRPCPort() string
	GetAppName() string
	GetBaseURL() string
	GetAuthUIURL() string
	GetLogLevel() string
	GetEnv() string
	IsDev() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
	GetExposedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Tokens
	Cookies
	Stores
	Events
	Security
}

// New builds a Config that resolves settings from the environment only
func New() Config {
	return newMainConfig(values{})
}

// Load reads an optional .env file and an optional yaml file, then builds a Config.
// Environment variables always override file values.
func Load(yamlPath string) (Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("[config Load] %w", err)
	}
	if yamlPath == "" {
		yamlPath = GetEnv(configFileEnvVar, "")
	}
	src, err := loadYAML(yamlPath)
	if err != nil {
		return nil, fmt.Errorf("[config Load] %w", err)
	}
	return newMainConfig(src), nil
}

func newMainConfig(src values) mainConfig {
	return mainConfig{
		EnvVars:  EnvVars{src: src},
		Cors:     Cors{src: src},
		Tokens:   Tokens{src: src},
		Cookies:  Cookies{src: src},
		Stores:   Stores{src: src},
		Events:   Events{src: src},
		Security: Security{src: src},
	}
}

func (c mainConfig) Validate() error {
	var problems []string
	problems = append(problems, c.Cookies.missing()...)
	problems = append(problems, c.Tokens.missing(c.IsDev())...)
	problems = append(problems, c.Security.missing(c.IsDev())...)
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("configuration incomplete: %s", strings.Join(problems, "; "))
}
