package cli

import (
	"fmt"
	"prepforge/internal/config"
	"prepforge/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for interview preparation",
	Long: `Start an HTTP server that provides REST API endpoints for building and
working with a preparation session.

Available endpoints:
- POST /prepare: Run a full preparation for a job posting
- GET /session: Snapshot of the current session
- POST /quiz/refresh: Regenerate the quiz for the current session
- POST /challenges/refresh: Regenerate the challenge set for the current session
- POST /execute: Simulate running a challenge submission
- POST /hint: Get a hint for a challenge submission
- POST /reset: Clear the current session
- GET /health: Health check endpoint
- GET /stats: Server statistics and rate limiting info

TLS configuration:
- --tls-mode selects disabled, server or mutual TLS
- --cert-file and --key-file supply the server certificate pair
- --ca-file names the CA bundle used to verify client certificates`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Listen port (overrides config)")
	serveCmd.Flags().String("host", "", "Bind address (overrides config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server or mutual (overrides config)")
	serveCmd.Flags().String("cert-file", "", "PEM server certificate (overrides config)")
	serveCmd.Flags().String("key-file", "", "PEM server private key (overrides config)")
	serveCmd.Flags().String("ca-file", "", "PEM CA bundle for client certificate verification (overrides config)")

	// Flag values override the matching config keys.
	for key, flagName := range map[string]string{
		"server.port":         "port",
		"server.host":         "host",
		"server.tls.mode":     "tls-mode",
		"server.tls.certfile": "cert-file",
		"server.tls.keyfile":  "key-file",
		"server.tls.cafile":   "ca-file",
	} {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(flagName)); err != nil {
			panic(err)
		}
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	// Vault-sourced secrets (API keys, Gemini key, TLS content) land in the
	// config before it is validated or handed to the server
	if err := config.ApplyVaultSecrets(cfg, logger); err != nil {
		return fmt.Errorf("failed to load secrets from Vault: %w", err)
	}

	// Re-check TLS once flag overrides and Vault content are in place.
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	serverCfg := server.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		Version:        Version,
		TLSConfig:      cfg.Server.TLS,
		APIKeys:        cfg.Server.APIKeys,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxRequestSize: int64(cfg.App.MaxFileSize),
		RateLimit:      &cfg.Server.RateLimit,
	}
	return server.NewServer(cfg, serverCfg, logger).Start()
}
