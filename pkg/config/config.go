// Package config provides configuration loading for the audit exporters.
//
// Two inputs are distinguished: the credential record required to reach the
// Atlassian cloud APIs, and optional engine settings tuning page sizes,
// retry budgets and file locations.
package config

import (
	"os"
	"time"

	gojson "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/bzhkem/Wazuh-confluence-atlasian/pkg/errors"
)

// Credential field names as they appear in the JSON config files.
const (
	KeyCloudID = "cloudId"
	KeyEmail   = "AppApi-AccountEmail"
	KeyAPIKey  = "AppApi-Key"
)

// Credentials holds the three required fields for Basic authentication
// against the Atlassian cloud APIs.
type Credentials struct {
	CloudID string `json:"cloudId"`
	Email   string `json:"AppApi-AccountEmail"`
	APIKey  string `json:"AppApi-Key"`
}

// LoadCredentials loads the credential record with fallback precedence:
// the shared path is tried first, then the vendor-specific path. Absence of
// both is a fatal configuration error naming both expected locations and the
// required schema.
func LoadCredentials(sharedPath, vendorPath string) (*Credentials, error) {
	var path string
	switch {
	case fileExists(sharedPath):
		path = sharedPath
	case fileExists(vendorPath):
		path = vendorPath
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"no configuration file found; create either %s (shared) or %s (vendor-specific) "+
				`with format {"cloudId": "...", "AppApi-AccountEmail": "...", "AppApi-Key": "..."}`,
			sharedPath, vendorPath)
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is one of two fixed locations
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeConfig, "failed to read config file %s", path)
	}

	creds := &Credentials{}
	if err := gojson.Unmarshal(data, creds); err != nil {
		return nil, errors.Wrapf(err, errors.ErrorTypeConfig, "failed to parse config file %s", path)
	}

	for _, f := range []struct{ key, value string }{
		{KeyCloudID, creds.CloudID},
		{KeyEmail, creds.Email},
		{KeyAPIKey, creds.APIKey},
	} {
		if f.value == "" {
			return nil, errors.Newf(errors.ErrorTypeConfig,
				"missing required field in %s: %s", path, f.key)
		}
	}

	return creds, nil
}

// Settings tunes the extraction engine. All fields have working defaults;
// an optional YAML file and command-line flags may override them.
type Settings struct {
	// PageSize is the number of records requested per API page
	PageSize int `yaml:"page_size" json:"page_size"`
	// MaxRetries is the per-page retry budget
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// RequestTimeout bounds the wall clock of a single HTTP attempt
	RequestTimeout time.Duration `yaml:"request_timeout" json:"request_timeout"`
	// RateLimitPerSec caps outgoing API requests per second (0 disables)
	RateLimitPerSec int `yaml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	// ConfigDir is where credential files are looked up
	ConfigDir string `yaml:"config_dir" json:"config_dir"`
	// StateDir is where per-vendor watermark files live
	StateDir string `yaml:"state_dir" json:"state_dir"`
	// ScratchDir is where per-run scratch log files are written
	ScratchDir string `yaml:"scratch_dir" json:"scratch_dir"`
	// LogLevel controls diagnostic logging on stderr
	LogLevel string `yaml:"log_level" json:"log_level"`
}

// DefaultSettings returns the built-in engine settings
func DefaultSettings() Settings {
	return Settings{
		PageSize:        100,
		MaxRetries:      5,
		RequestTimeout:  60 * time.Second,
		RateLimitPerSec: 10,
		ConfigDir:       ".",
		StateDir:        ".",
		ScratchDir:      os.TempDir(),
		LogLevel:        "info",
	}
}

// LoadSettings overlays settings from a YAML file onto s. Fields absent from
// the file keep their current values. ${VAR} references are expanded from the
// environment before parsing.
func LoadSettings(path string, s *Settings) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the --settings flag
	if err != nil {
		return errors.Wrapf(err, errors.ErrorTypeConfig, "failed to read settings file %s", path)
	}

	expanded := os.Expand(string(data), os.Getenv)
	if err := yaml.Unmarshal([]byte(expanded), s); err != nil {
		return errors.Wrapf(err, errors.ErrorTypeConfig, "failed to parse settings file %s", path)
	}

	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
