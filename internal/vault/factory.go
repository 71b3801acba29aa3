package vault

import (
	"context"
	"fmt"

	"autolearner-go/internal/config"
	"autolearner-go/internal/learner"
)

// NewVaultFromConfig creates a content cache based on the cache config type.
// It returns a nil Vault and no error when caching is disabled.
func NewVaultFromConfig(ctx context.Context, cfg config.VaultConfig) (learner.Vault, error) {
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryVault(cfg.Name), nil
	case "filesystem":
		if cfg.FSRoot == "" {
			return nil, fmt.Errorf("filesystem vault requires fs_root to be set")
		}
		v, err := NewFileSystemVault(cfg.Name, cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "s3":
		v, err := NewS3Vault(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "redis":
		v, err := NewRedisVault(cfg)
		if err != nil {
			return nil, err
		}
		return v, nil
	default:
		return nil, fmt.Errorf("unknown vault type: %s", cfg.Type)
	}
}
