// Package config loads the CLI configuration from TOML files through viper.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

var (
	configDir       string
	configFilePath  string
	credentialsPath string
)

// getConfigDir returns the platform config directory
func getConfigDir() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("LOCALAPPDATA")
		if appData == "" {
			appData = os.Getenv("APPDATA")
		}
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = home
		}
		return filepath.Join(appData, "macchain", "cli"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "macchain", "cli"), nil
}

func getSystemConfigPaths() []string {
	if runtime.GOOS == "windows" {
		return []string{filepath.Join(os.Getenv("ProgramFiles"), "MacChain", "cli", "config.toml")}
	}
	return []string{
		"/etc/macchain/cli/config.toml",
		"/usr/local/etc/macchain/cli/config.toml",
	}
}

// Init loads the system config, then the user config on top of it.
// An empty configPath selects the per-user default location.
func Init(configPath string) error {
	viper.Reset()

	var err error
	if configPath != "" {
		configDir = filepath.Dir(configPath)
		configFilePath = configPath
	} else {
		configDir, err = getConfigDir()
		if err != nil {
			return err
		}
		configFilePath = filepath.Join(configDir, "config.toml")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	credentialsPath = filepath.Join(configDir, "credentials")

	viper.SetConfigType("toml")
	viper.SetEnvPrefix("MACCHAIN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	for _, sysConfigPath := range getSystemConfigPaths() {
		if _, err := os.Stat(sysConfigPath); err == nil {
			viper.SetConfigFile(sysConfigPath)
			_ = viper.ReadInConfig()
			break
		}
	}

	viper.SetConfigFile(configFilePath)
	if _, err := os.Stat(configFilePath); err == nil {
		if err := viper.MergeInConfig(); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults() {
	viper.SetDefault("api.base_url", "http://localhost:8787")
	viper.SetDefault("api.timeout", 30)
	viper.SetDefault("output.format", "text")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.file", filepath.Join(configDir, "macchain-cli.log"))

	viper.SetDefault("sync.conflict_strategy", "server-wins")
	viper.SetDefault("sync.max_concurrent", 3)
	viper.SetDefault("sync.max_retries", 3)
	viper.SetDefault("sync.offline_queue", filepath.Join(configDir, "offline-queue.json"))
}

func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetString returns a string value. Path-like keys have ~ expanded.
func GetString(key string) string {
	value := viper.GetString(key)
	switch key {
	case "log.file", "sync.offline_queue":
		return expandPath(value)
	}
	return value
}

// GetInt returns an int value
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool value
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// Set overrides a value for this process only
func Set(key string, value interface{}) {
	viper.Set(key, value)
}

// SetString sets a value and writes the user config file
func SetString(key, value string) error {
	viper.Set(key, value)
	return viper.WriteConfigAs(configFilePath)
}

// GetConfigDir returns the configuration directory
func GetConfigDir() string {
	return configDir
}

// GetConfigFilePath returns the user config file path
func GetConfigFilePath() string {
	return configFilePath
}

// GetCredentialsPath returns the credentials file path
func GetCredentialsPath() string {
	return credentialsPath
}
