package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"prepforge/internal/config"
	"prepforge/internal/errors"
	"prepforge/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ReloadCallback is called after every certificate reload attempt
type ReloadCallback func(success bool, err error)

// CertificateMetrics holds counters about certificate reload activity
type CertificateMetrics struct {
	ReloadCount        int64
	ReloadSuccessCount int64
	ReloadFailureCount int64
	LastReloadTime     time.Time
	LastReloadSuccess  bool
	LastReloadError    string
}

// certState is the result of one successful certificate load. The manager
// swaps whole states under its lock so a TLS handshake never sees a cert
// from one load paired with a CA pool from another.
type certState struct {
	cert     *tls.Certificate
	expiry   time.Time
	caPool   *x509.CertPool
	loadedAt time.Time
}

// CertificateManager loads TLS certificates from files or inline content and
// keeps them fresh: a filesystem watcher covers file rotation, a Vault poller
// covers secret rotation, and handshakes close to expiry trigger a renewal.
type CertificateManager struct {
	tlsCfg  *config.TLSConfig
	autoCfg *config.AutoReloadConfig
	vault   VaultClientInterface
	om      *observability.ObservabilityManager
	logger  *errors.Logger

	mu        sync.RWMutex
	state     *certState
	callbacks []ReloadCallback
	counters  CertificateMetrics

	files    *fileWatcher
	vw       *VaultWatcher
	stop     chan struct{}
	renewing atomic.Bool
}

// NewCertificateManager wires the reload sources configured in autoCfg to a
// certificate store that tls.Config callbacks read from.
func NewCertificateManager(tlsCfg *config.TLSConfig, autoCfg *config.AutoReloadConfig, vault VaultClientInterface, om *observability.ObservabilityManager, logger *errors.Logger) *CertificateManager {
	return &CertificateManager{
		tlsCfg:  tlsCfg,
		autoCfg: autoCfg,
		vault:   vault,
		om:      om,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

// Start loads the initial certificates and launches the configured watchers.
func (m *CertificateManager) Start() error {
	if err := m.reload("startup"); err != nil {
		return fmt.Errorf("failed to load initial certificates: %w", err)
	}

	if err := m.startFileWatcher(); err != nil {
		return err
	}
	m.startVaultWatcher()

	go m.expiryLoop()

	return nil
}

// Stop shuts down the watchers and the expiry reporter.
func (m *CertificateManager) Stop() error {
	var firstErr error

	if m.files != nil {
		if err := m.files.Stop(); err != nil {
			firstErr = err
		}
	}
	if m.vw != nil {
		if err := m.vw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	close(m.stop)

	if m.logger != nil {
		m.logger.Info("Certificate manager stopped")
	}
	return firstErr
}

// startFileWatcher wires certificate file rotation to reloads. Only relevant
// when certificates come from files.
func (m *CertificateManager) startFileWatcher() error {
	if m.autoCfg == nil || !m.autoCfg.FileWatcher.Enabled {
		return nil
	}
	if m.tlsCfg.CertFile == "" && m.tlsCfg.KeyFile == "" && m.tlsCfg.CAFile == "" {
		return nil
	}

	fw := newFileWatcher(
		[]string{m.tlsCfg.CertFile, m.tlsCfg.KeyFile, m.tlsCfg.CAFile},
		m.autoCfg.FileWatcher.DebounceDelay,
		func() {
			if err := m.reload("file"); err != nil && m.logger != nil {
				m.logger.LogError(err, "Failed to reload certificates from files")
			}
		},
		m.logger,
	)
	if err := fw.Start(); err != nil {
		return fmt.Errorf("failed to start certificate file watcher: %w", err)
	}

	m.files = fw
	return nil
}

// startVaultWatcher wires Vault secret rotation to reloads. Only relevant
// when certificates come from Vault-sourced content.
func (m *CertificateManager) startVaultWatcher() {
	if m.autoCfg == nil || !m.autoCfg.VaultWatcher.Enabled {
		return
	}
	if m.tlsCfg.CertContent == "" && m.tlsCfg.KeyContent == "" && m.tlsCfg.CAContent == "" {
		return
	}
	if m.vault == nil {
		if m.logger != nil {
			m.logger.Warn("Vault watcher enabled but Vault client is nil")
		}
		return
	}

	vw := NewVaultWatcher(
		m.vault,
		m.autoCfg.VaultWatcher.SecretPath,
		m.autoCfg.VaultWatcher.PollInterval,
		m.applyVaultData,
		m.logger,
	)
	if err := vw.Start(); err != nil {
		if m.logger != nil {
			m.logger.LogError(err, "Failed to start Vault watcher")
		}
		return
	}

	m.vw = vw
}

// applyVaultData installs fresh certificate material from Vault and reloads.
func (m *CertificateManager) applyVaultData(data *CertificateData) {
	m.mu.Lock()
	if data.CertContent != "" {
		m.tlsCfg.CertContent = data.CertContent
	}
	if data.KeyContent != "" {
		m.tlsCfg.KeyContent = data.KeyContent
	}
	if data.CAContent != "" {
		m.tlsCfg.CAContent = data.CAContent
	}
	m.mu.Unlock()

	if err := m.reload("vault"); err != nil && m.logger != nil {
		m.logger.LogError(err, "Failed to reload certificates from Vault data")
	}
}

// GetServerCertificate serves TLS handshakes. Near-expiry certificates
// trigger a background renewal; expired ones are refused outright.
func (m *CertificateManager) GetServerCertificate(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
	m.mu.RLock()
	state := m.state
	m.mu.RUnlock()

	if state == nil || state.cert == nil {
		return nil, fmt.Errorf("no server certificate available")
	}

	now := time.Now()
	if now.After(state.expiry) {
		if m.logger != nil {
			m.logger.LogError(fmt.Errorf("server certificate expired"), "Server certificate expired",
				"expiry", state.expiry,
				"server_name", hello.ServerName)
		}
		return nil, fmt.Errorf("server certificate expired")
	}

	if m.autoCfg != nil && m.autoCfg.PreemptiveRenewal > 0 &&
		now.After(state.expiry.Add(-m.autoCfg.PreemptiveRenewal)) {
		m.renewPreemptively()
	}

	return state.cert, nil
}

// renewPreemptively reloads in the background, at most once at a time. Every
// handshake inside the renewal window lands here, so the guard matters.
func (m *CertificateManager) renewPreemptively() {
	if !m.renewing.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer m.renewing.Store(false)
		if m.logger != nil {
			m.logger.Info("Certificate close to expiry, renewing preemptively")
		}
		if err := m.reload("preemptive"); err != nil && m.logger != nil {
			m.logger.LogError(err, "Preemptive certificate renewal failed")
		}
	}()
}

// VerifyPeerCertificate verifies a client certificate against the current CA
// pool. Used in mutual TLS mode.
func (m *CertificateManager) VerifyPeerCertificate(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return fmt.Errorf("no peer certificates provided")
	}

	cert, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("failed to parse peer certificate: %w", err)
	}

	m.mu.RLock()
	state := m.state
	m.mu.RUnlock()

	if state == nil || state.caPool == nil {
		return fmt.Errorf("no CA certificate pool available")
	}

	if _, err := cert.Verify(x509.VerifyOptions{Roots: state.caPool}); err != nil {
		return fmt.Errorf("peer certificate verification failed: %w", err)
	}
	return nil
}

// ReloadCertificates forces a reload outside the watcher cadence.
func (m *CertificateManager) ReloadCertificates() error {
	return m.reload("manual")
}

// AddReloadCallback registers a callback invoked after each reload attempt
func (m *CertificateManager) AddReloadCallback(cb ReloadCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// CheckExpiry returns the time remaining until the certificate expires.
func (m *CertificateManager) CheckExpiry() (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.state == nil || m.state.expiry.IsZero() {
		return 0, fmt.Errorf("no certificates loaded")
	}
	return time.Until(m.state.expiry), nil
}

// GetMetrics returns a snapshot of the reload counters.
func (m *CertificateManager) GetMetrics() CertificateMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.counters
}

// AutoReloadStatus reports watcher state for the health endpoint.
func (m *CertificateManager) AutoReloadStatus() map[string]any {
	status := map[string]any{}
	if m.files != nil {
		status["file_watcher_running"] = m.files.Running()
		status["watched_files"] = m.files.Files()
	}
	if m.vw != nil {
		status["vault_watcher_status"] = m.vw.Status()
	}
	return status
}

// reload builds a fresh certState from the current configuration and swaps
// it in. Counters, callbacks, and metrics fire on both outcomes.
func (m *CertificateManager) reload(trigger string) error {
	state, err := m.load()

	m.mu.Lock()
	m.counters.ReloadCount++
	m.counters.LastReloadTime = time.Now()
	if err == nil {
		m.state = state
		m.counters.ReloadSuccessCount++
		m.counters.LastReloadSuccess = true
		m.counters.LastReloadError = ""
	} else {
		m.counters.ReloadFailureCount++
		m.counters.LastReloadSuccess = false
		m.counters.LastReloadError = err.Error()
	}
	callbacks := make([]ReloadCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	m.recordReload(err == nil, err)
	for _, cb := range callbacks {
		go cb(err == nil, err)
	}

	if err != nil {
		if m.logger != nil {
			m.logger.LogError(err, "Failed to reload certificates", "trigger", trigger)
		}
		return err
	}

	if m.logger != nil {
		m.logger.Info("Certificates reloaded",
			"trigger", trigger,
			"expiry", state.expiry)
	}
	return nil
}

// load reads the configured certificate material. Inline content (Vault)
// wins over file paths.
func (m *CertificateManager) load() (*certState, error) {
	m.mu.RLock()
	certContent, keyContent := m.tlsCfg.CertContent, m.tlsCfg.KeyContent
	certFile, keyFile := m.tlsCfg.CertFile, m.tlsCfg.KeyFile
	caContent, caFile := m.tlsCfg.CAContent, m.tlsCfg.CAFile
	mutual := m.tlsCfg.Mode == "mutual"
	m.mu.RUnlock()

	var pair tls.Certificate
	var err error
	switch {
	case certContent != "" && keyContent != "":
		pair, err = tls.X509KeyPair([]byte(certContent), []byte(keyContent))
	case certFile != "" && keyFile != "":
		pair, err = tls.LoadX509KeyPair(certFile, keyFile)
	default:
		return nil, fmt.Errorf("no certificate source configured")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	state := &certState{cert: &pair, loadedAt: time.Now()}

	if len(pair.Certificate) > 0 {
		leaf, err := x509.ParseCertificate(pair.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse server certificate: %w", err)
		}
		state.expiry = leaf.NotAfter
	}

	if mutual {
		pool, err := loadCAPool(caContent, caFile)
		if err != nil {
			return nil, err
		}
		state.caPool = pool
	}

	return state, nil
}

// loadCAPool builds the client-verification pool from inline content or a file.
func loadCAPool(caContent, caFile string) (*x509.CertPool, error) {
	var pem []byte
	switch {
	case caContent != "":
		pem = []byte(caContent)
	case caFile != "":
		data, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pem = data
	default:
		return nil, nil
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}

// expiryLoop republishes the expiry gauge on the configured check interval
// until Stop.
func (m *CertificateManager) expiryLoop() {
	interval := time.Minute
	if m.autoCfg != nil && m.autoCfg.CheckInterval > 0 {
		interval = m.autoCfg.CheckInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.recordExpiry()
		case <-m.stop:
			return
		}
	}
}

// recordReload writes the reload counter with outcome attributes.
func (m *CertificateManager) recordReload(success bool, err error) {
	if m.om == nil {
		return
	}
	metrics := m.om.GetMetrics()
	if metrics == nil || metrics.CertReloadCount == nil {
		return
	}

	attrs := []attribute.KeyValue{attribute.String("cert_type", "server")}
	if success {
		attrs = append(attrs, attribute.String("status", "success"))
	} else {
		msg := ""
		if err != nil {
			msg = err.Error()
		}
		attrs = append(attrs,
			attribute.String("status", "failure"),
			attribute.String("error", msg))
	}
	metrics.CertReloadCount.Add(context.Background(), 1, metric.WithAttributes(attrs...))

	m.recordExpiry()
}

// recordExpiry publishes seconds-until-expiry for the current certificate.
func (m *CertificateManager) recordExpiry() {
	if m.om == nil {
		return
	}
	metrics := m.om.GetMetrics()
	if metrics == nil || metrics.CertExpiryTime == nil {
		return
	}

	m.mu.RLock()
	expiry := time.Time{}
	if m.state != nil {
		expiry = m.state.expiry
	}
	m.mu.RUnlock()

	if expiry.IsZero() {
		return
	}
	metrics.CertExpiryTime.Record(context.Background(), time.Until(expiry).Seconds(),
		metric.WithAttributes(attribute.String("cert_type", "server")))
}
