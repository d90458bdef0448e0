package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

var envVarPatterns = struct {
	withDefault *regexp.Regexp
	braced      *regexp.Regexp
	simple      *regexp.Regexp
}{
	withDefault: regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`),
	braced:      regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`),
	simple:      regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`),
}

// LoadDotEnv loads a .env file from the working directory. Existing
// environment variables win. A missing file is reported as an error the
// caller may ignore.
func LoadDotEnv() error {
	return godotenv.Load()
}

// expandEnvVars substitutes ${VAR}, ${VAR:-default} and $VAR references.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "$") {
		return s
	}

	s = envVarPatterns.withDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.withDefault.FindStringSubmatch(match)
		if len(parts) == 3 {
			if val := os.Getenv(parts[1]); val != "" {
				return val
			}
			return parts[2]
		}
		return match
	})

	s = envVarPatterns.braced.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.braced.FindStringSubmatch(match)
		if len(parts) == 2 {
			return os.Getenv(parts[1])
		}
		return match
	})

	s = envVarPatterns.simple.ReplaceAllStringFunc(s, func(match string) string {
		parts := envVarPatterns.simple.FindStringSubmatch(match)
		if len(parts) == 2 {
			return os.Getenv(parts[1])
		}
		return match
	})

	return s
}

// ExpandEnv resolves environment references in string fields that commonly
// carry secrets or deployment-specific values.
func (c *Config) ExpandEnv() {
	c.LLM.APIKey = expandEnvVars(c.LLM.APIKey)
	c.LLM.BaseURL = expandEnvVars(c.LLM.BaseURL)
	c.Server.BaseURL = expandEnvVars(c.Server.BaseURL)
	c.Auth.JWKSURL = expandEnvVars(c.Auth.JWKSURL)
	c.Auth.Issuer = expandEnvVars(c.Auth.Issuer)
	c.Auth.Audience = expandEnvVars(c.Auth.Audience)
}

// ResolveAPIKey falls back to OPENAI_API_KEY when the config carries no key.
func (c *Config) ResolveAPIKey() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}
