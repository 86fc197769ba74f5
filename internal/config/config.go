// Package config resolves kai CLI settings from flags and environment
// variables. Flags win over environment; environment wins over defaults.
package config

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	kai "github.com/keboola/kai-client-go"
)

// Config carries the settings every kai command needs to reach the backend.
type Config struct {
	BaseURL    string
	Token      string
	StorageURL string
	Model      string
	Debug      bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("base_url", "http://localhost:3000")
	_ = v.BindEnv("token", "STORAGE_API_TOKEN")
	_ = v.BindEnv("url", "STORAGE_API_URL")
	_ = v.BindEnv("base_url", "KAI_BASE_URL")
	_ = v.BindEnv("model", "KAI_MODEL")
	return v
}

// FromCommand resolves the configuration for one command invocation.
func FromCommand(cmd *cobra.Command) (*Config, error) {
	v := newViper()

	bind := func(key, flag string) {
		if f := cmd.Flags().Lookup(flag); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
	bind("base_url", "base-url")
	bind("token", "token")
	bind("url", "storage-url")
	bind("model", "model")

	cfg := &Config{
		BaseURL:    v.GetString("base_url"),
		Token:      v.GetString("token"),
		StorageURL: v.GetString("url"),
		Model:      v.GetString("model"),
	}
	cfg.Debug, _ = cmd.Flags().GetBool("debug")
	return cfg, nil
}

// Validate checks that the credentials the backend requires are present.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("storage API token is required (set STORAGE_API_TOKEN or --token)")
	}
	if c.StorageURL == "" {
		return errors.New("storage API URL is required (set STORAGE_API_URL or --storage-url)")
	}
	return nil
}

// Client builds a kai API client from the resolved configuration.
func (c *Config) Client() (*kai.Client, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return kai.NewClient(kai.Config{
		BaseURL:         c.BaseURL,
		StorageAPIToken: c.Token,
		StorageAPIURL:   c.StorageURL,
	})
}
