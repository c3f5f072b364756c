package util

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/xyproto/env/v2"
)

// DefaultConfigFile is read from the working directory when no -config is given.
const DefaultConfigFile = "quill.toml"

type Configuration struct {
	Version   string
	BuildDate string
	Commit    string

	Backend  string
	Timeout  time.Duration
	Store    string
	LogLevel string
	LogFile  string

	DebugJsonAST bool
	Listing      bool
}

// fileConfig is the layout of quill.toml.
type fileConfig struct {
	Backend   string `toml:"backend"`
	TimeoutMS *int   `toml:"timeout_ms"`
	Store     string `toml:"store"`
	Log       struct {
		Level string `toml:"level"`
		File  string `toml:"file"`
	} `toml:"log"`
}

func DefaultConfiguration() Configuration {
	return Configuration{
		Backend:  "interp",
		LogLevel: "none",
	}
}

// LoadFile overlays the settings of a TOML file. A missing file is only an error when required.
func (c *Configuration) LoadFile(path string, required bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if fc.Backend != "" {
		c.Backend = fc.Backend
	}
	if fc.TimeoutMS != nil {
		c.Timeout = time.Duration(*fc.TimeoutMS) * time.Millisecond
	}
	if fc.Store != "" {
		c.Store = fc.Store
	}
	if fc.Log.Level != "" {
		c.LogLevel = fc.Log.Level
	}
	if fc.Log.File != "" {
		c.LogFile = fc.Log.File
	}
	return nil
}

// LoadEnv overlays the QUILL_* environment variables.
func (c *Configuration) LoadEnv() {
	c.Backend = env.Str("QUILL_BACKEND", c.Backend)
	if env.Has("QUILL_TIMEOUT_MS") {
		c.Timeout = time.Duration(env.Int("QUILL_TIMEOUT_MS", int(c.Timeout/time.Millisecond))) * time.Millisecond
	}
	c.Store = env.Str("QUILL_STORE", c.Store)
	c.LogLevel = env.Str("QUILL_LOG_LEVEL", c.LogLevel)
}
