package config

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaults registers every configuration default with viper.
func setDefaults(v *viper.Viper) {
	setAIDefaults(v)
	setServerDefaults(v)
	setAppDefaults(v)
	setVaultDefaults(v)
	setObservabilityDefaults(v)
}

func setAIDefaults(v *viper.Viper) {
	set := v.SetDefault

	// Global fallbacks, inherited by any operation that leaves a field unset
	set("ai.provider", "gemini")
	set("ai.model", "gemini-2.0-flash")
	set("ai.timeout", 60*time.Second)
	set("ai.apiKey", "")
	set("ai.maxRetries", 3)
	set("ai.temperature", 0.7)
	set("ai.useSystemPrompts", true)

	// Per-operation tuning. Extraction and judging run cold for consistency;
	// quiz generation runs hot for variety and gets the longest budget since
	// ~40 questions is the slowest call.
	operations := []struct {
		key         string
		timeout     time.Duration
		maxRetries  int
		temperature float64
	}{
		{"analyze", 75 * time.Second, 2, 0.2},
		{"studyPlan", 90 * time.Second, 2, 0.4},
		{"quiz", 120 * time.Second, 2, 0.7},
		{"challenges", 120 * time.Second, 2, 0.5},
		{"execute", 60 * time.Second, 3, 0.3},
		{"hint", 30 * time.Second, 2, 0.6},
	}

	for _, op := range operations {
		prefix := "ai." + op.key + "."
		set(prefix+"provider", "gemini")
		set(prefix+"model", "") // empty inherits ai.model
		set(prefix+"timeout", op.timeout)
		set(prefix+"apiKey", "")
		set(prefix+"maxRetries", op.maxRetries)
		set(prefix+"temperature", op.temperature)
		set(prefix+"useSystemPrompts", true)

		set(prefix+"circuitBreaker.enabled", true)
		set(prefix+"circuitBreaker.maxRequests", 3)
		set(prefix+"circuitBreaker.interval", 60*time.Second)
		set(prefix+"circuitBreaker.timeout", 60*time.Second)
		set(prefix+"circuitBreaker.minRequests", 3)
		set(prefix+"circuitBreaker.failureThreshold", 0.6)
	}
}

func setServerDefaults(v *viper.Viper) {
	set := v.SetDefault

	set("server.host", "localhost")
	set("server.port", "8080")
	set("server.readTimeout", 30*time.Second)
	set("server.writeTimeout", 30*time.Second)
	set("server.idleTimeout", 120*time.Second)

	set("server.tls.mode", "disabled") // disabled, server, mutual
	set("server.tls.certFile", "")
	set("server.tls.keyFile", "")
	set("server.tls.caFile", "")
	set("server.tls.minVersion", "1.2")
	set("server.tls.cipherSuites", []string{})    // empty means Go defaults
	set("server.tls.clientAuthPolicy", "require") // require, request, verify
	set("server.tls.insecureSkipVerify", false)
	set("server.tls.serverName", "")

	set("server.tls.autoReload.enabled", true)
	set("server.tls.autoReload.checkInterval", 30*time.Second)
	set("server.tls.autoReload.preemptiveRenewal", 72*time.Hour)
	set("server.tls.autoReload.fileWatcher.enabled", true)
	set("server.tls.autoReload.fileWatcher.debounceDelay", time.Second)
	set("server.tls.autoReload.vaultWatcher.enabled", false)
	set("server.tls.autoReload.vaultWatcher.pollInterval", 5*time.Minute)
	set("server.tls.autoReload.vaultWatcher.secretPath", "")

	set("server.apiKeys", []string{})

	set("server.rateLimit.enabled", false)
	set("server.rateLimit.requestsPerMin", 60)
	set("server.rateLimit.burstCapacity", 10)
	set("server.rateLimit.byIP", true)
	set("server.rateLimit.byAPIKey", false)
	set("server.rateLimit.window", time.Minute)
}

func setAppDefaults(v *viper.Viper) {
	set := v.SetDefault

	set("app.logLevel", "info")
	set("app.defaultFormat", "json")
	set("app.supportedFormats", []string{"json", "text", "markdown"})
	set("app.maxFileSize", 4*1024*1024) // 4MB, covers job posting screenshots
}

func setVaultDefaults(v *viper.Viper) {
	set := v.SetDefault

	set("vault.enabled", false)
	set("vault.address", "")
	set("vault.token", "")
	set("vault.tokenFile", "")
	set("vault.namespace", "")
	set("vault.secrets.apiKeys", "")
	set("vault.secrets.geminiKey", "")
	set("vault.secrets.tlsCerts", "")
}

func setObservabilityDefaults(v *viper.Viper) {
	set := v.SetDefault

	set("observability.enabled", true)
	set("observability.serviceName", "prepforge")
	set("observability.serviceVersion", "")  // falls back to the binary version
	set("observability.serviceInstance", "") // auto-generated when empty
	set("observability.consoleOutput", false)
	set("observability.sampleRate", 1.0)

	set("observability.tracing.enabled", true)
	set("observability.tracing.sampleRate", 1.0)
	set("observability.metrics.enabled", true)
	set("observability.metrics.collectionInterval", 15*time.Second)

	set("observability.customMetrics.aiOperations.enabled", true)
	set("observability.customMetrics.aiOperations.trackDuration", true)
	set("observability.customMetrics.aiOperations.trackTokenUsage", true)
	set("observability.customMetrics.aiOperations.trackModelInfo", true)
	set("observability.customMetrics.businessMetrics.enabled", true)
	set("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	set("observability.customMetrics.businessMetrics.trackFallbacks", true)
	set("observability.customMetrics.infrastructure.enabled", true)
	set("observability.customMetrics.infrastructure.trackRateLimits", true)
	set("observability.customMetrics.infrastructure.trackCertExpiry", true)

	set("observability.console.enabled", false)
	set("observability.console.prettyPrint", true)

	set("observability.prometheus.enabled", true)
	set("observability.prometheus.endpoint", "/metrics")
	set("observability.prometheus.port", "9090")

	set("observability.otlp.enabled", false)
	set("observability.otlp.endpoint", "http://localhost:4318")
	set("observability.otlp.insecure", true)
	set("observability.otlp.headers", map[string]string{})

	set("observability.healthCheck.timeout", 15*time.Second)
	set("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
