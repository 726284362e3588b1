package server

import (
	"crypto/tls"
	"fmt"
	"net/http"

	"prepforge/internal/config"
	"prepforge/internal/observability"
)

// clientAuthPolicies maps configuration names to client certificate policies.
// Unlisted values fall back to requiring and verifying a client certificate.
var clientAuthPolicies = map[string]tls.ClientAuthType{
	"require": tls.RequireAndVerifyClientCert,
	"request": tls.RequestClientCert,
	"verify":  tls.VerifyClientCertIfGiven,
}

// cipherSuiteIDs maps configuration names to crypto/tls identifiers. Names
// that do not resolve are skipped rather than failing startup.
var cipherSuiteIDs = map[string]uint16{
	"TLS_AES_128_GCM_SHA256":                  tls.TLS_AES_128_GCM_SHA256,
	"TLS_AES_256_GCM_SHA384":                  tls.TLS_AES_256_GCM_SHA384,
	"TLS_CHACHA20_POLY1305_SHA256":            tls.TLS_CHACHA20_POLY1305_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256": tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384": tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":   tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":   tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	"TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305":  tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	"TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305":    tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// configureTLS prepares the HTTP server for the configured TLS mode.
func (s *Server) configureTLS(httpServer *http.Server, vaultClient VaultClientInterface, om *observability.ObservabilityManager) error {
	addr := httpServer.Addr

	switch s.TLSConfig.Mode {
	case "disabled":
		fmt.Printf("Listening on http://%s (TLS disabled)\n", addr)
		return nil
	case "server":
		fmt.Printf("Listening on https://%s (server-only TLS)\n", addr)
	case "mutual":
		fmt.Printf("Listening on https://%s (mutual TLS, client certificates required)\n", addr)
	default:
		return fmt.Errorf("unsupported TLS mode %q", s.TLSConfig.Mode)
	}

	if err := s.setupCertificateManager(vaultClient, om); err != nil {
		return err
	}

	tc, err := s.buildTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	httpServer.TLSConfig = tc
	return nil
}

// setupCertificateManager starts the certificate manager when auto-reload is
// enabled. Without auto-reload the server uses statically loaded certificates.
func (s *Server) setupCertificateManager(vaultClient VaultClientInterface, om *observability.ObservabilityManager) error {
	auto := &s.TLSConfig.AutoReload
	if !auto.Enabled {
		return nil
	}

	cm := NewCertificateManager(&s.TLSConfig, auto, vaultClient, om, s.Logger)
	if err := cm.Start(); err != nil {
		return fmt.Errorf("failed to start certificate manager: %w", err)
	}
	cm.AddReloadCallback(func(ok bool, err error) {
		if !ok {
			s.Logger.LogError(err, "Failed to reload TLS certificates")
			return
		}
		s.Logger.Info("TLS certificates reloaded successfully")
	})
	s.CertificateManager = cm

	fmt.Println("TLS auto-reload: ENABLED")
	if auto.FileWatcher.Enabled {
		fmt.Println("  - File watching enabled")
	}
	if auto.VaultWatcher.Enabled {
		fmt.Println("  - Vault watching enabled")
	}
	return nil
}

// initializeVaultClient creates a Vault client when the Vault watcher needs one.
func (s *Server) initializeVaultClient() (VaultClientInterface, error) {
	if !s.TLSConfig.AutoReload.VaultWatcher.Enabled {
		return nil, nil
	}

	client, err := config.NewVaultClient(s.AppConfig.Vault, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Vault client: %w", err)
	}
	return client, nil
}

// buildTLSConfig assembles the tls.Config for server or mutual mode.
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	tc := &tls.Config{
		MinVersion: minTLSVersion(s.TLSConfig.MinVersion),
	}

	if s.CertificateManager != nil {
		tc.GetCertificate = s.CertificateManager.GetServerCertificate
		if s.TLSConfig.Mode == "mutual" {
			tc.VerifyPeerCertificate = s.CertificateManager.VerifyPeerCertificate
		}
	} else {
		cert, err := s.loadStaticCertificate()
		if err != nil {
			return nil, err
		}
		tc.Certificates = []tls.Certificate{cert}
	}

	if len(s.TLSConfig.CipherSuites) > 0 {
		suites := make([]uint16, 0, len(s.TLSConfig.CipherSuites))
		for _, name := range s.TLSConfig.CipherSuites {
			if id := cipherSuiteIDs[name]; id != 0 {
				suites = append(suites, id)
			}
		}
		tc.CipherSuites = suites
	}

	if err := s.configureClientAuth(tc); err != nil {
		return nil, err
	}

	if s.TLSConfig.InsecureSkipVerify {
		tc.InsecureSkipVerify = true
		fmt.Println("WARNING: TLS certificate verification is disabled (insecureSkipVerify=true)")
	}
	if s.TLSConfig.ServerName != "" {
		tc.ServerName = s.TLSConfig.ServerName
	}

	return tc, nil
}

// loadStaticCertificate loads the server key pair once at startup. Inline
// content wins over file paths because Vault injection populates content.
func (s *Server) loadStaticCertificate() (tls.Certificate, error) {
	var (
		cert   tls.Certificate
		err    error
		source string
	)
	switch {
	case s.TLSConfig.CertContent != "" && s.TLSConfig.KeyContent != "":
		source = "content"
		cert, err = tls.X509KeyPair([]byte(s.TLSConfig.CertContent), []byte(s.TLSConfig.KeyContent))
	case s.TLSConfig.CertFile != "" && s.TLSConfig.KeyFile != "":
		source = "files"
		cert, err = tls.LoadX509KeyPair(s.TLSConfig.CertFile, s.TLSConfig.KeyFile)
	default:
		return tls.Certificate{}, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to load server cert/key from %s: %w", source, err)
	}
	return cert, nil
}

// configureClientAuth sets the client certificate policy for mutual mode.
func (s *Server) configureClientAuth(tc *tls.Config) error {
	if s.TLSConfig.Mode != "mutual" {
		tc.ClientAuth = tls.NoClientCert
		return nil
	}

	pool, err := loadCAPool(s.TLSConfig.CAContent, s.TLSConfig.CAFile)
	if err != nil {
		return err
	}
	if pool == nil {
		return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}
	tc.ClientCAs = pool

	policy, ok := clientAuthPolicies[s.TLSConfig.ClientAuthPolicy]
	if !ok {
		policy = tls.RequireAndVerifyClientCert
	}
	tc.ClientAuth = policy
	return nil
}

// minTLSVersion maps the configured version string to a tls constant.
func minTLSVersion(version string) uint16 {
	if version == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}
