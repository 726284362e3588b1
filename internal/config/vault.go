package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"prepforge/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds the Vault connection settings.
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets names the KVv2 paths the application reads.
type VaultSecrets struct {
	// APIKeys expects a single string with comma-separated values in Vault
	// Example format: "key1,key2,key3"
	APIKeys   string `mapstructure:"apiKeys"`   // Path to server API keys secret
	GeminiKey string `mapstructure:"geminiKey"` // Path to Gemini API key
	TLSCerts  string `mapstructure:"tlsCerts"`  // Path to TLS certificates
}

// VaultClient wraps the Vault API client.
type VaultClient struct {
	client *api.Client
	cfg    VaultConfig
	logger *errors.Logger
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// NewVaultClient connects to Vault and verifies the connection. Returns
// (nil, nil) when Vault integration is disabled.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !cfg.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled")
		}
		return nil, nil
	}

	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}
	client, err := api.NewClient(apiCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
	}

	token, err := resolveVaultToken(cfg, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Failed to connect to Vault", "address", cfg.Address)
		}
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	if logger != nil {
		logger.Info("Connected to Vault",
			"address", cfg.Address,
			"version", health.Version,
			"sealed", health.Sealed,
			"cluster_name", health.ClusterName)
	}

	return &VaultClient{client: client, cfg: cfg, logger: logger}, nil
}

// resolveVaultToken picks the token from config, falling back to the token
// file. An enabled Vault integration without a token is a configuration error.
func resolveVaultToken(cfg VaultConfig, logger *errors.Logger) (string, error) {
	token := cfg.Token

	if token == "" && cfg.TokenFile != "" {
		if logger != nil {
			logger.Debug("Reading Vault token from file", "file", cfg.TokenFile)
		}
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}

	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// GetSecretV2 reads one secret from a KVv2 mount, returning its data and
// version metadata.
func (c *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if c == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}

	if c.logger != nil {
		c.logger.Debug("Reading secret from Vault", "path", path)
	}

	secret, err := c.client.Logical().Read(path)
	if err != nil {
		if c.logger != nil {
			c.logger.LogError(err, "Failed to read secret from Vault", "path", path)
		}
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}

	return parseKVv2Secret(secret, path)
}

// parseKVv2Secret unpacks the data/metadata envelope of a KVv2 read.
func parseKVv2Secret(secret *api.Secret, path string) (*VaultSecret, error) {
	data, ok := secret.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}

	metadata, ok := secret.Data["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	raw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(raw, path)
	if err != nil {
		return nil, err
	}

	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue parses the version, which Vault may return as a number
// or a string depending on the transport.
func parseVersionValue(raw any, path string) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, raw)
	}
}

// GetStringSecret retrieves one string value from a Vault secret.
func (c *VaultClient) GetStringSecret(path, key string) (string, error) {
	secret, err := c.GetSecretV2(path)
	if err != nil {
		return "", err
	}

	raw, ok := secret.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret %s", key, path)
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string in secret %s", key, path)
	}

	if c.logger != nil {
		c.logger.Debug("String secret retrieved from Vault",
			"path", path,
			"key", key,
			"masked_value", maskSecret(value))
	}
	return value, nil
}

// GetStringSliceSecret splits a comma-separated secret value into a slice.
func (c *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	value, err := c.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return []string{}, nil
	}

	keys := strings.Split(value, ",")
	for i, k := range keys {
		keys[i] = strings.TrimSpace(k)
	}
	return keys, nil
}

// maskSecret hides all but the edges of a secret for debug logging.
func maskSecret(s string) string {
	switch {
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	case len(s) > 0:
		return "****"
	default:
		return s
	}
}

// ApplyVaultSecrets loads the configured secrets from Vault and folds them
// into the config: server API keys, the Gemini key, and TLS certificate
// content. Paths left empty are skipped.
func ApplyVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		if logger != nil {
			logger.Debug("Vault integration disabled, skipping secret loading")
		}
		return nil
	}

	if logger != nil {
		logger.Info("Loading secrets from Vault",
			"api_keys_path", cfg.Vault.Secrets.APIKeys,
			"gemini_key_path", cfg.Vault.Secrets.GeminiKey,
			"tls_certs_path", cfg.Vault.Secrets.TLSCerts)
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	if client == nil {
		return nil
	}

	if err := client.applyAPIKeys(cfg); err != nil {
		return err
	}
	if err := client.applyGeminiKey(cfg); err != nil {
		return err
	}
	if err := client.applyTLSCerts(cfg); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("Successfully completed applying secrets from Vault")
	}
	return nil
}

// applyAPIKeys replaces the server API keys with the set stored in Vault.
func (c *VaultClient) applyAPIKeys(cfg *Config) error {
	path := c.cfg.Secrets.APIKeys
	if path == "" {
		return nil
	}

	apiKeys, err := c.GetStringSliceSecret(path, "keys")
	if err != nil {
		return fmt.Errorf("failed to load API keys from vault: %w", err)
	}

	if len(apiKeys) == 0 {
		if c.logger != nil {
			c.logger.Warn("No API keys found in Vault", "path", path)
		}
		return nil
	}

	cfg.Server.APIKeys = apiKeys
	if c.logger != nil {
		c.logger.Info("API keys loaded from Vault", "count", len(apiKeys))
	}
	return nil
}

// applyGeminiKey loads the Gemini key and applies it to the AI configuration.
func (c *VaultClient) applyGeminiKey(cfg *Config) error {
	path := c.cfg.Secrets.GeminiKey
	if path == "" {
		return nil
	}

	geminiKey, err := c.GetStringSecret(path, "api_key")
	if err != nil {
		return fmt.Errorf("failed to load Gemini API key from vault: %w", err)
	}

	if geminiKey == "" {
		if c.logger != nil {
			c.logger.Warn("Empty Gemini API key found in Vault", "path", path)
		}
		return nil
	}

	applyGeminiKeyToConfig(cfg, geminiKey)
	if c.logger != nil {
		c.logger.Info("Gemini API key loaded from Vault and applied to all AI configurations")
	}
	return nil
}

// applyGeminiKeyToConfig sets the shared key and fills any per-operation key
// that was not configured explicitly.
func applyGeminiKeyToConfig(cfg *Config, geminiKey string) {
	cfg.AI.APIKey = geminiKey
	operations := []*OperationAIConfig{
		&cfg.AI.Analyze,
		&cfg.AI.StudyPlan,
		&cfg.AI.Quiz,
		&cfg.AI.Challenges,
		&cfg.AI.Execute,
		&cfg.AI.Hint,
	}
	for _, op := range operations {
		if op.APIKey == "" {
			op.APIKey = geminiKey
		}
	}
}

// applyTLSCerts loads PEM content from the TLS secret into the server config.
func (c *VaultClient) applyTLSCerts(cfg *Config) error {
	path := c.cfg.Secrets.TLSCerts
	if path == "" {
		return nil
	}

	secret, err := c.GetSecretV2(path)
	if err != nil {
		return fmt.Errorf("failed to load TLS certificates from vault: %w", err)
	}

	loaded, err := applyTLSSecret(cfg, secret, c.logger)
	if err != nil {
		return err
	}

	if c.logger != nil {
		c.logger.Info("TLS certificates loaded from Vault", "certificates_loaded", loaded)
	}
	return nil
}

// applyTLSSecret copies cert, key, and ca content from a Vault TLS secret
// into the server TLS configuration. File-path fields are rejected: Vault
// secrets must carry the certificate content itself.
func applyTLSSecret(cfg *Config, secret *VaultSecret, logger *errors.Logger) (int, error) {
	for _, field := range []string{"cert_file", "key_file", "ca_file"} {
		if _, found := secret.Data[field]; found {
			return 0, fmt.Errorf("vault TLS configuration error: '%s' field is no longer supported. Store certificate content in '%s' field instead",
				field, strings.TrimSuffix(field, "_file"))
		}
	}

	targets := []struct {
		key  string
		dest *string
		desc string
	}{
		{"cert", &cfg.Server.TLS.CertContent, "TLS certificate content"},
		{"key", &cfg.Server.TLS.KeyContent, "TLS private key content"},
		{"ca", &cfg.Server.TLS.CAContent, "TLS CA certificate content"},
	}

	loaded := 0
	for _, t := range targets {
		content, ok := secret.Data[t.key].(string)
		if !ok || content == "" {
			continue
		}
		*t.dest = content
		loaded++
		if logger != nil {
			logger.Debug(t.desc+" loaded from Vault", "content_length", len(content))
		}
	}
	return loaded, nil
}
