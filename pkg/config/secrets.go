package config

import (
	"fmt"

	"github.com/zalando/go-keyring"
)

// ResolveToken fills cfg.Token from the OS keyring when enabled and ensures a credential is present.
func ResolveToken(cfg *BotConfig) error {
	if cfg.Token == "" && cfg.Keyring.Enabled {
		token, err := keyring.Get(cfg.Keyring.Service, cfg.Keyring.User)
		if err != nil {
			return fmt.Errorf("read bot token from keyring %s/%s: %w", cfg.Keyring.Service, cfg.Keyring.User, err)
		}
		cfg.Token = token
	}

	if cfg.Token == "" {
		return ErrMissingToken
	}

	return nil
}
