package server

import (
	"fmt"
	"sync"
	"time"

	"prepforge/internal/config"
	"prepforge/internal/errors"
)

// VaultClientInterface is the slice of the Vault client the watcher needs.
type VaultClientInterface interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
	GetStringSecret(path, key string) (string, error)
	GetStringSliceSecret(path, key string) ([]string, error)
}

// CertificateData holds certificate material fetched from Vault
type CertificateData struct {
	CertContent string
	KeyContent  string
	CAContent   string
}

// certDataFromSecret extracts PEM content from a TLS secret. Missing keys
// leave the corresponding field empty.
func certDataFromSecret(secret *config.VaultSecret) *CertificateData {
	data := &CertificateData{}
	if cert, ok := secret.Data["cert"].(string); ok {
		data.CertContent = cert
	}
	if key, ok := secret.Data["key"].(string); ok {
		data.KeyContent = key
	}
	if ca, ok := secret.Data["ca"].(string); ok {
		data.CAContent = ca
	}
	return data
}

// VaultWatcher polls a KVv2 secret and reports new certificate material when
// the secret version advances. Each poll reads the secret once; the version
// check and the payload come from the same read.
type VaultWatcher struct {
	client   VaultClientInterface
	path     string
	interval time.Duration
	notify   func(*CertificateData)
	logger   *errors.Logger

	mu          sync.Mutex
	stop        chan struct{}
	running     bool
	lastVersion int64
}

// NewVaultWatcher creates a watcher for the TLS secret at path.
func NewVaultWatcher(client VaultClientInterface, path string, interval time.Duration, notify func(*CertificateData), logger *errors.Logger) *VaultWatcher {
	return &VaultWatcher{
		client:   client,
		path:     path,
		interval: interval,
		notify:   notify,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the poll loop. Starting a running watcher is an error.
func (w *VaultWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("vault watcher is already running")
	}
	w.running = true
	go w.pollLoop()

	if w.logger != nil {
		w.logger.Info("Vault watcher started",
			"secret_path", w.path,
			"poll_interval", w.interval)
	}
	return nil
}

// Stop ends the poll loop. Stopping a stopped watcher is a no-op.
func (w *VaultWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	close(w.stop)
	w.running = false

	if w.logger != nil {
		w.logger.Info("Vault watcher stopped")
	}
	return nil
}

func (w *VaultWatcher) pollLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.poll()
		case <-w.stop:
			return
		}
	}
}

// poll reads the secret and notifies when its version has advanced.
func (w *VaultWatcher) poll() {
	secret, err := w.client.GetSecretV2(w.path)
	if err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to check Vault for certificate updates",
				"secret_path", w.path)
		}
		return
	}
	if secret == nil {
		return
	}

	w.mu.Lock()
	fresh := secret.Version > w.lastVersion
	if fresh {
		w.lastVersion = secret.Version
	}
	w.mu.Unlock()

	if !fresh {
		return
	}

	if w.logger != nil {
		w.logger.Info("Vault TLS secret changed, triggering reload",
			"secret_path", w.path,
			"version", secret.Version)
	}
	w.notify(certDataFromSecret(secret))
}

// Status reports the watcher state for health endpoints.
func (w *VaultWatcher) Status() map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()

	return map[string]any{
		"running":       w.running,
		"poll_interval": w.interval.String(),
		"secret_path":   w.path,
		"last_version":  w.lastVersion,
	}
}
