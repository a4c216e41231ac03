// internal/config/config.go
package config

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"

	"unhunk/internal/errors"
	"unhunk/internal/vcs"
)

type Config struct {
	Server struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	} `json:"server"`

	Git struct {
		Backend      vcs.Backend `json:"backend"` // gogit, exec
		Binary       string      `json:"binary"`
		ContextLines int         `json:"context_lines"`
	} `json:"git"`

	Journal struct {
		Enabled   bool `json:"enabled"`
		CacheSize int  `json:"cache_size"`
	} `json:"journal"`

	Environment string `json:"environment"` // development, production
	LogLevel    string `json:"log_level"`   // debug, info, warn, error
}

func Default() *Config {
	var c Config
	c.Server.Host = "127.0.0.1"
	c.Server.Port = 7420
	c.Git.Backend = vcs.BackendGoGit
	c.Git.Binary = "git"
	c.Git.ContextLines = 3
	c.Journal.CacheSize = 256
	c.Environment = "development"
	c.LogLevel = "info"
	return &c
}

// Path returns the config file selected by UNHUNK_ENV.
func Path() string {
	env := os.Getenv("UNHUNK_ENV")
	if env == "" {
		env = "development"
	}
	return fmt.Sprintf("config/config.%s.json", env)
}

// Load reads the JSON file at path over the defaults.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.IO("opening config", err).WithPath(path)
	}
	defer file.Close()

	config := Default()
	if err := json.NewDecoder(file).Decode(config); err != nil {
		return nil, errors.ValidationError("malformed config", err.Error()).WithPath(path)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadOrDefault loads path, falling back to Default when the file does not
// exist. An empty path means Path().
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	config, err := Load(path)
	if stderrors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

func (c *Config) Validate() error {
	details := map[string]string{}
	switch c.Git.Backend {
	case vcs.BackendGoGit, vcs.BackendExec:
	default:
		details["git.backend"] = fmt.Sprintf("unknown backend %q", c.Git.Backend)
	}
	if c.Git.ContextLines < 1 {
		details["git.context_lines"] = "must be at least 1"
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		details["server.port"] = "must be between 0 and 65535"
	}
	if c.Journal.CacheSize < 0 {
		details["journal.cache_size"] = "must not be negative"
	}
	if len(details) > 0 {
		return errors.ValidationError("invalid config", details)
	}
	return nil
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
