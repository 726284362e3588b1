package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks fills gaps viper cannot express: legacy environment
// variables, mode-dependent TLS defaults, and the derived service instance.
func (c *Config) applyFallbacks() {
	// Plain GEMINI_API_KEY is honored when no key was configured through
	// file, Vault, or PREPFORGE_AI_APIKEY
	if c.AI.APIKey == "" {
		if legacyKey := os.Getenv("GEMINI_API_KEY"); legacyKey != "" {
			c.AI.APIKey = strings.TrimSpace(legacyKey)
		}
	}

	if len(c.Server.APIKeys) == 0 {
		if raw := os.Getenv("PREPFORGE_SERVER_APIKEYS"); raw != "" {
			keys := strings.Split(raw, ",")
			for i, key := range keys {
				keys[i] = strings.TrimSpace(key)
			}
			c.Server.APIKeys = keys
		}
	}

	tlsCfg := &c.Server.TLS
	if tlsCfg.Mode == "mutual" && tlsCfg.ClientAuthPolicy == "" {
		tlsCfg.ClientAuthPolicy = "require"
	}
	if tlsCfg.MinVersion == "" && tlsCfg.Mode != "disabled" {
		tlsCfg.MinVersion = "1.2"
	}

	if c.Observability.ServiceInstance == "" {
		instance := c.Observability.ServiceName + "-1"
		if hostname, err := os.Hostname(); err == nil {
			instance = c.Observability.ServiceName + "-" + hostname
		}
		c.Observability.ServiceInstance = instance
	}
}

// logConfigurationSources summarizes where the effective configuration came
// from. Key material is masked, never printed.
func (c *Config) logConfigurationSources(fileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")

	switch fileUsed {
	case "":
		log.Println("[CONFIG] Config file: None (using defaults)")
	default:
		log.Printf("[CONFIG] Config file: %s", fileUsed)
	}

	log.Println("[CONFIG] Environment variables:")
	found := false
	for _, envVar := range []string{
		"PREPFORGE_AI_APIKEY",
		"PREPFORGE_AI_PROVIDER",
		"PREPFORGE_AI_MODEL",
		"PREPFORGE_SERVER_PORT",
		"PREPFORGE_SERVER_HOST",
		"PREPFORGE_APP_LOGLEVEL",
		"PREPFORGE_VAULT_ENABLED",
		"GEMINI_API_KEY", // Legacy support
	} {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		found = true
		if strings.Contains(strings.ToLower(envVar), "key") {
			log.Printf("[CONFIG]   %s=***MASKED***", envVar)
		} else {
			log.Printf("[CONFIG]   %s=%s", envVar, value)
		}
	}
	if !found {
		log.Println("[CONFIG]   None set")
	}

	apiKeyStatus := "***NOT SET*** (generation will serve fallback content)"
	if c.AI.APIKey != "" {
		apiKeyStatus = "***CONFIGURED***"
	}

	log.Println("[CONFIG] === Key Configuration Values ===")
	for _, kv := range []struct{ label, value string }{
		{"AI Provider", c.AI.Provider},
		{"AI Model", c.AI.Model},
		{"AI API Key", apiKeyStatus},
		{"Server Host", c.Server.Host},
		{"Server Port", c.Server.Port},
		{"Log Level", c.App.LogLevel},
		{"TLS Mode", c.Server.TLS.Mode},
		{"Vault Enabled", fmt.Sprintf("%t", c.Vault.Enabled)},
		{"Observability Enabled", fmt.Sprintf("%t", c.Observability.Enabled)},
	} {
		log.Printf("[CONFIG] %s: %s", kv.label, kv.value)
	}

	log.Println("[CONFIG] === Operation-Specific AI Configurations ===")
	for _, op := range []struct {
		name string
		cfg  OperationAIConfig
	}{
		{"Analyze", c.AI.Analyze},
		{"StudyPlan", c.AI.StudyPlan},
		{"Quiz", c.AI.Quiz},
		{"Challenges", c.AI.Challenges},
		{"Execute", c.AI.Execute},
		{"Hint", c.AI.Hint},
	} {
		log.Printf("[CONFIG] %s - Provider: %s, Model: %s", op.name, op.cfg.Provider, op.cfg.Model)
	}

	log.Println("[CONFIG] =====================================")
}
