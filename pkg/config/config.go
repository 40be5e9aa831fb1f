// SPDX-License-Identifier: Apache-2.0
package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// Configuration
	EnvPrefix       = "FORGE"  // Environment variable prefix for Viper
	ConfigFileName  = "config" // Config file name for XDG config dir (without extension)
	LocalConfigFile = "forge"  // Config file name for current directory (without extension)
	ConfigType      = "yaml"   // Config file type

	// DefaultServerURL is the builder service used when server-url is unset.
	DefaultServerURL = "http://localhost:8001"

	// MinServerVersion is the oldest builder service version forge can talk to.
	// Checked by `forge doctor` against the /api/health version field.
	MinServerVersion = "0.3.0"
)

// Paths holds all XDG-compliant directory paths
type Paths struct {
	DataDir   string
	CacheDir  string
	ConfigDir string
}

var (
	// GlobalPaths is the global paths instance
	GlobalPaths *Paths
)

func init() {
	GlobalPaths = GetPaths()
}

// GetPaths returns XDG-compliant directory paths
func GetPaths() *Paths {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to get home directory: %v\n", err)
			os.Exit(1)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	cacheHome := os.Getenv("XDG_CACHE_HOME")
	if cacheHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to get home directory: %v\n", err)
			os.Exit(1)
		}
		cacheHome = filepath.Join(home, ".cache")
	}

	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to get home directory: %v\n", err)
			os.Exit(1)
		}
		configHome = filepath.Join(home, ".config")
	}

	return &Paths{
		DataDir:   filepath.Join(dataHome, "forge"),
		CacheDir:  filepath.Join(cacheHome, "forge"),
		ConfigDir: filepath.Join(configHome, "forge"),
	}
}

// DefaultBuildDir returns the default ROM build working directory (~/rom-build).
func DefaultBuildDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "rom-build"
	}
	return filepath.Join(home, "rom-build")
}

// InitDirs creates all necessary directories
func InitDirs() error {
	dirs := []string{
		GlobalPaths.ConfigDir,
		GlobalPaths.DataDir,
		GlobalPaths.CacheDir,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
