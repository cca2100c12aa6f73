// Package config provides functions for loading and saving roller configuration files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/webrtc/autoroller/cmd"
	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up in the checkout root
const DefaultFile = "autoroll.yaml"

// Default returns the built-in configuration rolling WebRTC and Libjingle into Chromium
func Default() *cmd.Config {
	return &cmd.Config{
		BaseBranch:        "master",
		RollBranch:        "special_webrtc_roll_branch",
		PinFile:           "DEPS",
		PinPrefix:         "src/",
		CheckoutMarkerDir: "chrome",
		ReviewBackend:     cmd.ReviewBackendGitCL,
		PinUpdater:        cmd.PinUpdaterRollDep,
		Dependencies: []cmd.Dependency{
			{Name: "WebRTC", Path: "third_party/webrtc"},
			{
				Name:   "Libjingle",
				Path:   "third_party/libjingle/source/talk",
				Readme: "third_party/libjingle/README.chromium",
			},
		},
	}
}

// LoadConfig loads and validates the configuration from the specified file, filling unset
// fields with defaults
func LoadConfig(filename string) (*cmd.Config, error) {
	config, err := ReadConfig(filename)
	if err != nil {
		return nil, err
	}
	if err := Validate(config); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", filename, err)
	}
	return config, nil
}

// ReadConfig decodes the configuration file onto the defaults without validating it
func ReadConfig(filename string) (*cmd.Config, error) {
	data, err := os.ReadFile(filename) //nolint:gosec // Config filename is from command-line flag
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	// Unmarshalling onto the defaults would merge the dependency list, so decode it separately.
	config.Dependencies = nil
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if len(config.Dependencies) == 0 {
		config.Dependencies = Default().Dependencies
	}

	return config, nil
}

// LoadOrDefault loads the configuration file if it exists and returns the defaults otherwise
func LoadOrDefault(filename string) (*cmd.Config, error) {
	config, err := LoadConfig(filename)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return config, err
}

// SaveConfig saves the configuration to the specified file
func SaveConfig(filename string, config *cmd.Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the fields the roller cannot run without
func Validate(config *cmd.Config) error {
	if config.BaseBranch == "" {
		return fmt.Errorf("base_branch must not be empty")
	}
	if config.RollBranch == "" {
		return fmt.Errorf("roll_branch must not be empty")
	}
	if config.RollBranch == config.BaseBranch {
		return fmt.Errorf("roll_branch must differ from base_branch (%s)", config.BaseBranch)
	}
	if config.PinFile == "" {
		return fmt.Errorf("pin_file must not be empty")
	}

	seen := make(map[string]bool)
	for i, dep := range config.Dependencies {
		if dep.Name == "" || dep.Path == "" {
			return fmt.Errorf("dependency #%d needs both name and path", i+1)
		}
		if seen[dep.Path] {
			return fmt.Errorf("dependency path %s listed twice", dep.Path)
		}
		seen[dep.Path] = true
	}

	if config.ReviewBackend == cmd.ReviewBackendGitHub {
		if config.GitHub == nil || config.GitHub.Org == "" || config.GitHub.Repo == "" {
			return fmt.Errorf("review_backend github requires github.org and github.repo")
		}
	}

	return nil
}
