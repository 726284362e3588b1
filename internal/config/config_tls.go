package config

import "fmt"

// ValidateTLSConfig checks the TLS section: the mode, the certificate
// sources it requires, and the minimum version. Certificates can come from
// files or inline content, but never both for the same item.
func (c *Config) ValidateTLSConfig() error {
	tlsCfg := c.Server.TLS

	switch tlsCfg.Mode {
	case "disabled":
	case "server":
		if err := validateCertSources(tlsCfg, "server mode"); err != nil {
			return err
		}
	case "mutual":
		if err := validateCertSources(tlsCfg, "mutual mode"); err != nil {
			return err
		}
		if tlsCfg.CAFile == "" && tlsCfg.CAContent == "" {
			return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
		}
		if tlsCfg.CAFile != "" && tlsCfg.CAContent != "" {
			return fmt.Errorf("cannot specify both caFile and caContent - choose one")
		}
		switch tlsCfg.ClientAuthPolicy {
		case "", "require", "request", "verify":
		default:
			return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", tlsCfg.ClientAuthPolicy)
		}
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tlsCfg.Mode)
	}

	switch tlsCfg.MinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tlsCfg.MinVersion)
	}

	return nil
}

// validateCertSources checks that the server certificate and key are both
// present, each from exactly one source.
func validateCertSources(tlsCfg TLSConfig, mode string) error {
	if (tlsCfg.CertFile == "" && tlsCfg.CertContent == "") || (tlsCfg.KeyFile == "" && tlsCfg.KeyContent == "") {
		return fmt.Errorf("TLS certificate and key are required for %s (provide either files or content)", mode)
	}
	if tlsCfg.CertFile != "" && tlsCfg.CertContent != "" {
		return fmt.Errorf("cannot specify both certFile and certContent - choose one")
	}
	if tlsCfg.KeyFile != "" && tlsCfg.KeyContent != "" {
		return fmt.Errorf("cannot specify both keyFile and keyContent - choose one")
	}
	return nil
}
