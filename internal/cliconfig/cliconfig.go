// Package cliconfig loads the pitbossctl settings file.
//
// Settings live in a YAML file under the platform configuration directory
// (for example ~/.config/pitbossctl/config.yaml on Linux). Command-line
// flags override anything read from the file. The grill password is never
// stored here; it is taken from a flag or prompted for when needed.
package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "pitbossctl"
	configFile = "config.yaml"

	defaultTimeoutSeconds = 30
)

// Transport names accepted in the config file and on the command line.
const (
	TransportWS  = "ws"
	TransportBLE = "ble"
)

// Config holds the persistent pitbossctl settings.
type Config struct {
	// Transport selects how to reach the grill: "ws" for the vendor
	// WebSocket relay or "ble" for a direct Bluetooth connection.
	Transport string `yaml:"transport"`

	// GrillID is the cloud identifier used by the ws transport.
	GrillID string `yaml:"grill_id,omitempty"`

	// Address is the Bluetooth device address used by the ble transport.
	Address string `yaml:"address,omitempty"`

	// Model is the grill model name, e.g. "PB850PS2".
	Model string `yaml:"model"`

	// TimeoutSeconds bounds each RPC round trip. Zero or negative means
	// the built-in default.
	TimeoutSeconds int `yaml:"timeout_seconds,omitempty"`

	// LogLevel sets the log verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level,omitempty"`
}

// Default returns a Config with the stock settings.
func Default() *Config {
	return &Config{
		Transport:      TransportWS,
		TimeoutSeconds: defaultTimeoutSeconds,
	}
}

// GetConfigDir returns the OS-appropriate configuration directory.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/pitbossctl or $HOME/.config/pitbossctl
//   - macOS: $HOME/.config/pitbossctl (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\pitbossctl
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			// Fallback to USERPROFILE\AppData\Local if LOCALAPPDATA not set
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		// Linux and other Unix-like systems: XDG_CONFIG_HOME or $HOME/.config
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the configuration from path. An empty path means the default
// location, where a missing file simply yields the default settings. An
// explicitly named file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the configuration names a reachable grill.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportWS:
		if c.GrillID == "" {
			return fmt.Errorf("ws transport requires a grill id (set --grill-id or grill_id)")
		}
	case TransportBLE:
		if c.Address == "" {
			return fmt.Errorf("ble transport requires a device address (set --address or address)")
		}
	default:
		return fmt.Errorf("unknown transport %q (want %s or %s)", c.Transport, TransportWS, TransportBLE)
	}
	if c.Model == "" {
		return fmt.Errorf("grill model is required (set --model or model; see 'pitbossctl models')")
	}
	return nil
}

// Timeout returns the per-call timeout.
func (c *Config) Timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
