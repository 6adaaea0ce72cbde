package oracle

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"

	"github.com/turtacn/sentra/internal/config"
	"github.com/turtacn/sentra/pkg/constants"
	"github.com/turtacn/sentra/pkg/logger"
)

// LoadAPIKeyFromVault fetches the oracle API key from the configured Vault
// KV v2 mount. Config-provided keys take precedence; Vault is consulted only
// when the config key is empty and a Vault address is set.
func LoadAPIKeyFromVault(ctx context.Context, cfg *config.VaultConfig, log logger.Logger) (string, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return "", fmt.Errorf("vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	mount := cfg.MountPath
	if mount == "" {
		mount = "secret"
	}
	secretPath := strings.TrimPrefix(constants.VaultOracleKeyPath, mount+"/")

	secret, err := client.KVv2(mount).Get(ctx, secretPath)
	if err != nil {
		return "", fmt.Errorf("vault read %s: %w", secretPath, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("vault secret %s is empty", secretPath)
	}

	key, ok := secret.Data[constants.VaultOracleKeyField].(string)
	if !ok || key == "" {
		return "", fmt.Errorf("vault secret %s has no %q field", secretPath, constants.VaultOracleKeyField)
	}

	log.Info(ctx, "Oracle API key loaded from Vault", logger.String("path", secretPath))
	return key, nil
}
