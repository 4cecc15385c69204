package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/WildanFrananda/ProMentor-app/internal/logger"
)

const (
	defaultAPIBaseURL   = "http://localhost:8080"
	defaultLoggingLevel = logger.LevelInfo
	defaultEnvironment  = logger.EnvProduction
)

type Config struct {
	// Backend base address all API paths resolve against
	APIBaseURL string

	// Optional WebSocket base address. Empty means derive it from
	// APIBaseURL by rewriting the scheme.
	WSBaseURL string

	// Default logging level
	LogLevel string

	// Environment
	Environment string

	// Path of the encrypted credential file. Empty means
	// ~/.promentor/credentials.json
	StorePath string

	// Passphrase the credential file is sealed under
	StorePassphrase string
}

func NewConfig() *Config {
	return &Config{
		APIBaseURL:  defaultAPIBaseURL,
		LogLevel:    defaultLoggingLevel,
		Environment: defaultEnvironment,
	}
}

// Load variables from '.env' file (should be located at working directory)
func (c *Config) LoadDotEnv(getwd func() (string, error)) error {
	wd, err := getwd()
	if err != nil {
		return err
	}

	envMap, err := godotenv.Read(filepath.Join(wd, ".env"))

	switch {
	case err == nil:
		c.LoadEnv(func(key string) string {
			return envMap[key]
		})
		return nil
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func (c *Config) LoadEnv(getenv func(string) string) {
	// Set option to value if it not empty
	setString := func(o *string) func(value string) {
		return func(value string) {
			if value != "" {
				*o = value
			}
		}
	}

	envMap := map[string]func(string){
		"API_BASE_URL":     setString(&c.APIBaseURL),
		"WS_BASE_URL":      setString(&c.WSBaseURL),
		"LOG_LEVEL":        setString(&c.LogLevel),
		"ENVIRONMENT":      setString(&c.Environment),
		"STORE_PATH":       setString(&c.StorePath),
		"STORE_PASSPHRASE": setString(&c.StorePassphrase),
	}

	for key, parseFn := range envMap {
		parseFn(getenv(key))
	}
}

// ParseFlags parses command line flags and returns the remaining positional
// arguments (the subcommand and its operands).
func (c *Config) ParseFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("promentor", pflag.ContinueOnError)

	fs.StringVarP(&c.APIBaseURL, "api", "a", c.APIBaseURL, "Backend base URL")
	fs.StringVarP(&c.WSBaseURL, "ws-url", "w", c.WSBaseURL, "WebSocket base URL (defaults to the backend base URL)")
	fs.StringVarP(&c.LogLevel, "log-level", "l", c.LogLevel, "Logging level (debug, info, warn, error)")
	fs.StringVarP(&c.Environment, "environment", "e", c.Environment, "Environment (dev, prod)")
	fs.StringVarP(&c.StorePath, "store", "f", c.StorePath, "Credential file path")
	fs.StringVarP(&c.StorePassphrase, "passphrase", "p", c.StorePassphrase, "Credential file passphrase")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

// ResolveStorePath expands the default credential location under the user's
// home directory.
func (c *Config) ResolveStorePath() (string, error) {
	if c.StorePath != "" {
		return c.StorePath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".promentor", "credentials.json"), nil
}
