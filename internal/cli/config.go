package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	Store     string `yaml:"store,omitempty"`
	StoreDir  string `yaml:"store_dir,omitempty"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
}

// configDir returns ~/.config/kiosk.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "kiosk"), nil
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// setting resolves a value from a flag, then an env var, then the config
// file, then a fallback.
func setting(flag, env string, fromConfig func(CLIConfig) string, fallback string) string {
	if flag != "" {
		return flag
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	if cfg, err := loadConfig(); err == nil {
		if v := fromConfig(cfg); v != "" {
			return v
		}
	}
	return fallback
}

// getServerURL returns the server URL from env var, config, or default.
func getServerURL() string {
	return setting("", "KIOSK_SERVER_URL", func(c CLIConfig) string { return c.ServerURL }, "http://localhost:8080")
}

// getAPIKey returns the API key from env var or config.
func getAPIKey() string {
	return setting("", "KIOSK_API_KEY", func(c CLIConfig) string { return c.APIKey }, "")
}

// getStoreKind returns the local store backend name.
func getStoreKind() string {
	return setting(flagStore, "KIOSK_STORE", func(c CLIConfig) string { return c.Store }, "file")
}

// getStoreDir returns the file store directory.
func getStoreDir() (string, error) {
	dir := setting(flagStoreDir, "KIOSK_STORE_DIR", func(c CLIConfig) string { return c.StoreDir }, "")
	if dir != "" {
		return dir, nil
	}
	base, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "store"), nil
}

// getRedisAddr returns the redis address for the redis store.
func getRedisAddr() string {
	return setting(flagRedisAddr, "KIOSK_REDIS_ADDR", func(c CLIConfig) string { return c.RedisAddr }, "localhost:6379")
}
