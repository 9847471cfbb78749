// Package conf loads and exposes the application settings.
package conf

import (
	_ "embed" // default configuration template
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var defaultConfig []byte

// GarmentNetConfig holds the classifier model settings.
type GarmentNetConfig struct {
	ModelPath  string // path to the multi-head TFLite model file
	LabelPath  string // optional path to an external label classes JSON, embedded labels used when empty
	Threads    int    // number of CPU threads for inference, 0 = all cores
	UseXNNPACK bool   // true to enable XNNPACK delegate
}

// RecommendConfig holds the recommendation service settings.
type RecommendConfig struct {
	APIKey       string        // API key for the chat completion endpoint
	BaseURL      string        // endpoint base URL
	Model        string        // model identifier, e.g. gpt-4
	Timeout      time.Duration // per request timeout
	CacheTTL     time.Duration // recommendation response cache TTL
	DefaultCount int           // default number of recommendations
}

// Settings contains all runtime configuration for closet-go.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version string `yaml:"-"`

	Main struct {
		Name string // instance name, used in log output
	}

	GarmentNet GarmentNetConfig

	WebServer struct {
		Enabled bool
		Port    string
	}

	Output struct {
		SQLite struct {
			Enabled bool   // true to enable sqlite output
			Path    string // path to sqlite database
		}
		MySQL struct {
			Enabled  bool
			Username string
			Password string
			Host     string
			Port     string
			Database string
		}
	}

	Recommend RecommendConfig
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Setting returns the shared Settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		settingsMutex.Lock()
		defer settingsMutex.Unlock()
		if settingsInstance == nil {
			settings, err := Load()
			if err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
			settingsInstance = settings
		}
	})
	return settingsInstance
}

// GetSettings returns the current settings instance without triggering a load.
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Load reads the configuration from disk, creating a default config file on
// first run, and unmarshals it into a Settings struct.
func Load() (*Settings, error) {
	setDefaultConfig()

	if err := readConfig(); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	settingsMutex.Lock()
	settingsInstance = settings
	settingsMutex.Unlock()
	return settings, nil
}

// readConfig locates the config file, writing the embedded default to the
// first config path when none exists yet.
func readConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("CLOSET")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file found, create one from the embedded default.
		configPath := filepath.Join(configPaths[0], "config.yaml")
		if err := createDefaultConfig(configPath); err != nil {
			return err
		}
		return viper.ReadInConfig()
	}
	return nil
}

// createDefaultConfig writes the embedded default configuration to configPath.
func createDefaultConfig(configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}
	log.Printf("created default config file at %s", configPath)
	return nil
}

// GetDefaultConfigPaths returns the list of directories searched for a
// config file, in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	return []string{
		filepath.Join(homeDir, ".config", "closet-go"),
		".",
	}, nil
}

// GetBasePath expands a possibly relative directory against the working
// directory and ensures it exists.
func GetBasePath(path string) string {
	if path == "" {
		path = "."
	}
	if !filepath.IsAbs(path) {
		if wd, err := os.Getwd(); err == nil {
			path = filepath.Join(wd, path)
		}
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		log.Printf("error creating directory %s: %v", path, err)
	}
	return path
}
