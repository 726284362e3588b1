package config

import (
	"os"
	"path/filepath"
	"testing"

	"prepforge/internal/errors"

	"github.com/hashicorp/vault/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *errors.Logger {
	t.Helper()
	logger, err := errors.New("debug")
	if err != nil {
		t.Fatalf("building test logger: %v", err)
	}
	return logger
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    int64
		wantErr bool
	}{
		{name: "int64", input: int64(17), want: 17},
		{name: "float64", input: float64(17.0), want: 17},
		{name: "decimal string", input: "17", want: 17},
		{name: "non-numeric string", input: "not-a-number", wantErr: true},
		{name: "slice", input: []string{"17"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseVersionValue(tt.input, "secret/data/app")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseKVv2Secret(t *testing.T) {
	tests := []struct {
		name        string
		secret      *api.Secret
		wantData    map[string]any
		wantVersion int64
		wantErr     string
	}{
		{
			name: "well-formed KVv2 envelope",
			secret: &api.Secret{
				Data: map[string]any{
					"data":     map[string]any{"key1": "value1"},
					"metadata": map[string]any{"version": int64(3)},
				},
			},
			wantData:    map[string]any{"key1": "value1"},
			wantVersion: 3,
		},
		{
			name: "version arrives as json.Number style float",
			secret: &api.Secret{
				Data: map[string]any{
					"data":     map[string]any{},
					"metadata": map[string]any{"version": float64(7)},
				},
			},
			wantData:    map[string]any{},
			wantVersion: 7,
		},
		{
			name: "missing data field",
			secret: &api.Secret{
				Data: map[string]any{"metadata": map[string]any{}},
			},
			wantErr: "missing 'data' field",
		},
		{
			name: "data field wrong type",
			secret: &api.Secret{
				Data: map[string]any{"data": "not-a-map"},
			},
			wantErr: "missing 'data' field",
		},
		{
			name: "missing metadata field",
			secret: &api.Secret{
				Data: map[string]any{"data": map[string]any{}},
			},
			wantErr: "missing 'metadata' field",
		},
		{
			name: "metadata without version",
			secret: &api.Secret{
				Data: map[string]any{
					"data":     map[string]any{},
					"metadata": map[string]any{"other": "value"},
				},
			},
			wantErr: "missing 'version' field",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseKVv2Secret(tt.secret, "secret/test")

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, result.Data)
			assert.Equal(t, tt.wantVersion, result.Version)
		})
	}
}

func TestResolveVaultToken(t *testing.T) {
	logger := testLogger(t)

	t.Run("literal token in config", func(t *testing.T) {
		token, err := resolveVaultToken(VaultConfig{Token: "cfg-token"}, logger)
		assert.NoError(t, err)
		assert.Equal(t, "cfg-token", token)
	})

	t.Run("token from file is trimmed", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token  \n"), 0600))

		token, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile}, logger)
		assert.NoError(t, err)
		assert.Equal(t, "file-token", token)
	})

	t.Run("config token wins over file", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "vault-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("file-token"), 0600))

		token, err := resolveVaultToken(VaultConfig{Token: "cfg-token", TokenFile: tokenFile}, logger)
		assert.NoError(t, err)
		assert.Equal(t, "cfg-token", token)
	})

	t.Run("token file missing", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{TokenFile: "/nonexistent/token/file"}, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read vault token file")
	})

	t.Run("no token configured", func(t *testing.T) {
		_, err := resolveVaultToken(VaultConfig{}, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "vault token is required")
	})

	t.Run("whitespace-only token file", func(t *testing.T) {
		tokenFile := filepath.Join(t.TempDir(), "empty-token")
		require.NoError(t, os.WriteFile(tokenFile, []byte("   \n  \n"), 0600))

		_, err := resolveVaultToken(VaultConfig{TokenFile: tokenFile}, logger)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "vault token is required")
	})
}

func TestApplyGeminiKeyToConfig(t *testing.T) {
	config := &Config{}

	applyGeminiKeyToConfig(config, "test-gemini-key")

	assert.Equal(t, "test-gemini-key", config.AI.APIKey)
	for name, got := range map[string]string{
		"analyze":    config.AI.Analyze.APIKey,
		"studyplan":  config.AI.StudyPlan.APIKey,
		"quiz":       config.AI.Quiz.APIKey,
		"challenges": config.AI.Challenges.APIKey,
		"execute":    config.AI.Execute.APIKey,
		"hint":       config.AI.Hint.APIKey,
	} {
		assert.Equal(t, "test-gemini-key", got, "operation %s should receive the shared key", name)
	}
}

func TestApplyGeminiKeyToConfigKeepsExplicitKeys(t *testing.T) {
	config := &Config{
		AI: AIConfig{
			Quiz: OperationAIConfig{APIKey: "existing-quiz-key"},
		},
	}

	applyGeminiKeyToConfig(config, "test-gemini-key")

	assert.Equal(t, "test-gemini-key", config.AI.APIKey)
	assert.Equal(t, "existing-quiz-key", config.AI.Quiz.APIKey)
	assert.Equal(t, "test-gemini-key", config.AI.Analyze.APIKey)
	assert.Equal(t, "test-gemini-key", config.AI.Challenges.APIKey)
}

func TestApplyTLSSecret(t *testing.T) {
	logger := testLogger(t)

	t.Run("loads all three certificates", func(t *testing.T) {
		config := &Config{}
		secret := &VaultSecret{Data: map[string]any{
			"cert": "cert-content",
			"key":  "key-content",
			"ca":   "ca-content",
		}}

		loaded, err := applyTLSSecret(config, secret, logger)
		require.NoError(t, err)
		assert.Equal(t, 3, loaded)
		assert.Equal(t, "cert-content", config.Server.TLS.CertContent)
		assert.Equal(t, "key-content", config.Server.TLS.KeyContent)
		assert.Equal(t, "ca-content", config.Server.TLS.CAContent)
	})

	t.Run("partial secret loads what is present", func(t *testing.T) {
		config := &Config{}
		secret := &VaultSecret{Data: map[string]any{"cert": "cert-content"}}

		loaded, err := applyTLSSecret(config, secret, logger)
		require.NoError(t, err)
		assert.Equal(t, 1, loaded)
		assert.Equal(t, "cert-content", config.Server.TLS.CertContent)
		assert.Empty(t, config.Server.TLS.KeyContent)
		assert.Empty(t, config.Server.TLS.CAContent)
	})

	t.Run("non-string and empty values are skipped", func(t *testing.T) {
		config := &Config{}
		secret := &VaultSecret{Data: map[string]any{
			"cert": 123,
			"key":  "",
		}}

		loaded, err := applyTLSSecret(config, secret, logger)
		require.NoError(t, err)
		assert.Equal(t, 0, loaded)
	})

	t.Run("file-path fields are rejected before anything applies", func(t *testing.T) {
		for _, field := range []string{"cert_file", "key_file", "ca_file"} {
			config := &Config{}
			secret := &VaultSecret{Data: map[string]any{
				field:  "/path/on/disk",
				"cert": "cert-content",
			}}

			loaded, err := applyTLSSecret(config, secret, logger)
			require.Error(t, err, "field %s should be rejected", field)
			assert.Contains(t, err.Error(), field)
			assert.Contains(t, err.Error(), "no longer supported")
			assert.Equal(t, 0, loaded)
			assert.Empty(t, config.Server.TLS.CertContent)
		}
	})
}

func TestMaskSecret(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"a-key-longer-than-eight", "a-ke****ight"},
		{"12345678", "****"},
		{"x", "****"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := maskSecret(tt.input); got != tt.want {
			t.Errorf("maskSecret(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	config := &Config{Vault: VaultConfig{Enabled: false}}

	err := ApplyVaultSecrets(config, testLogger(t))
	assert.NoError(t, err)
}

func TestNewVaultClientDisabled(t *testing.T) {
	client, err := NewVaultClient(VaultConfig{Enabled: false}, testLogger(t))
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestGetSecretV2NilClient(t *testing.T) {
	var vc *VaultClient
	_, err := vc.GetSecretV2("secret/data/anything")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not initialized")
}
