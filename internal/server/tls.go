package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"sync"
	"time"

	"careercoach/internal/config"
	"careercoach/internal/errors"
	"careercoach/internal/observability"
)

// certReloader serves the current certificate and swaps it when the files change
type certReloader struct {
	cfg     config.TLSConfig
	metrics *observability.Metrics
	logger  *errors.Logger

	mu       sync.RWMutex
	cert     *tls.Certificate
	notAfter time.Time

	watcher *config.FileWatcher
}

func newCertReloader(cfg config.TLSConfig, metrics *observability.Metrics, logger *errors.Logger) (*certReloader, error) {
	cr := &certReloader{cfg: cfg, metrics: metrics, logger: logger}
	if err := cr.load(); err != nil {
		return nil, err
	}
	return cr, nil
}

// load reads the certificate from content or files
func (cr *certReloader) load() error {
	var (
		cert tls.Certificate
		err  error
	)

	switch {
	case cr.cfg.CertContent != "" && cr.cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cr.cfg.CertContent), []byte(cr.cfg.KeyContent))
		if err != nil {
			return fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
	case cr.cfg.CertFile != "" && cr.cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cr.cfg.CertFile, cr.cfg.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
	default:
		return fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}

	leaf := cert.Leaf
	if leaf == nil && len(cert.Certificate) > 0 {
		if leaf, err = x509.ParseCertificate(cert.Certificate[0]); err != nil {
			return fmt.Errorf("failed to parse server certificate: %w", err)
		}
	}

	cr.mu.Lock()
	cr.cert = &cert
	if leaf != nil {
		cr.notAfter = leaf.NotAfter
	}
	cr.mu.Unlock()
	return nil
}

// reload is the file watcher callback; a failed reload keeps the old certificate
func (cr *certReloader) reload() {
	err := cr.load()
	cr.metrics.RecordCertReload(context.Background(), err == nil)
	if err != nil {
		cr.logger.LogError(err, "Failed to reload TLS certificates")
		return
	}
	cr.logger.Info("TLS certificates reloaded successfully")
}

// GetCertificate implements tls.Config.GetCertificate
func (cr *certReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	if cr.cert == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}
	return cr.cert, nil
}

func (cr *certReloader) timeToExpiry() (time.Duration, error) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	if cr.notAfter.IsZero() {
		return 0, fmt.Errorf("certificate expiry unknown")
	}
	return time.Until(cr.notAfter), nil
}

// watch starts reloading on file changes. Content-based certificates come
// from Vault at startup and are not watched.
func (cr *certReloader) watch() error {
	if !cr.cfg.AutoReload.Enabled || cr.cfg.CertFile == "" || cr.cfg.CertContent != "" {
		return nil
	}
	files := []string{cr.cfg.CertFile, cr.cfg.KeyFile}
	cr.watcher = config.NewFileWatcher("tls", files, cr.cfg.AutoReload.DebounceDelay, cr.reload, cr.logger)
	if err := cr.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start certificate watcher: %w", err)
	}
	return nil
}

func (cr *certReloader) watching() bool {
	return cr.watcher != nil && cr.watcher.IsRunning()
}

func (cr *certReloader) stop() error {
	if cr.watcher == nil {
		return nil
	}
	return cr.watcher.Stop()
}

// buildTLSConfig creates the TLS configuration for the configured mode.
// It returns nil when TLS is disabled.
func (s *Server) buildTLSConfig() (*tls.Config, error) {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil, nil
	case "server", "mutual":
	default:
		return nil, fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	certs, err := newCertReloader(s.TLSConfig, s.metrics, s.Logger)
	if err != nil {
		return nil, err
	}
	if err := certs.watch(); err != nil {
		return nil, err
	}
	s.certs = certs

	tlsConfig := &tls.Config{
		MinVersion:     tlsVersion(s.TLSConfig.MinVersion),
		CipherSuites:   cipherSuites(s.TLSConfig.CipherSuites),
		GetCertificate: certs.GetCertificate,
		ClientAuth:     tls.NoClientCert,
	}

	if s.TLSConfig.Mode == "mutual" {
		pool, err := loadCACertificatePool(s.TLSConfig)
		if err != nil {
			return nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = clientAuthPolicy(s.TLSConfig.ClientAuthPolicy)
	}

	return tlsConfig, nil
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// cipherSuites maps names to IDs, skipping unknown names
func cipherSuites(names []string) []uint16 {
	if len(names) == 0 {
		return nil
	}
	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		if id := getCipherSuiteID(name); id != 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// loadCACertificatePool loads the CA bundle used to verify client certificates
func loadCACertificatePool(cfg config.TLSConfig) (*x509.CertPool, error) {
	var caCert []byte
	switch {
	case cfg.CAContent != "":
		caCert = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		b, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		caCert = b
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	return pool, nil
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}

// getCipherSuiteID returns the cipher suite ID for a given name
func getCipherSuiteID(name string) uint16 {
	for _, suite := range tls.CipherSuites() {
		if suite.Name == name {
			return suite.ID
		}
	}
	return 0
}
