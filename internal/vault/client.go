// Package vault resolves market-data vendor credentials from HashiCorp
// Vault. When Vault is disabled the client hands back the fallback
// values from configuration, so local development needs no Vault at
// all.
package vault

import (
	"context"
	"fmt"

	"github.com/hashicorp/vault/api"
)

// Credentials holds the vendor API credentials read from Vault.
type Credentials struct {
	PolygonAPIKey string
	TradierToken  string
}

// Config holds Vault connection settings.
type Config struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`
	SecretPath string `json:"secret_path"`
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

// Client wraps the HashiCorp Vault client.
type Client struct {
	client *api.Client
	config Config
}

// NewClient creates a Vault client. A disabled config returns a client
// whose Credentials call passes fallbacks through.
func NewClient(cfg Config) (*Client, error) {
	if !cfg.Enabled {
		return &Client{config: cfg}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{CACert: cfg.CACert}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg}, nil
}

// Credentials reads vendor credentials from the configured KV v2 path,
// filling any field missing in Vault from the fallback.
func (c *Client) Credentials(ctx context.Context, fallback Credentials) (Credentials, error) {
	if !c.config.Enabled {
		return fallback, nil
	}

	path := fmt.Sprintf("%s/data/%s", c.config.MountPath, c.config.SecretPath)
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read vendor credentials: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return fallback, nil
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return Credentials{}, fmt.Errorf("unexpected secret format at %s", path)
	}

	creds := fallback
	if v, ok := data["polygon_api_key"].(string); ok && v != "" {
		creds.PolygonAPIKey = v
	}
	if v, ok := data["tradier_token"].(string); ok && v != "" {
		creds.TradierToken = v
	}
	return creds, nil
}
