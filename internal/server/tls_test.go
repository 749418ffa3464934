package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSelfSigned writes a throwaway certificate and key valid for validFor
func writeSelfSigned(t *testing.T, dir string, serial int64, validFor time.Duration) (certFile, keyFile string, certPEM []byte) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serial),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})

	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, certPEM, 0o600))
	require.NoError(t, os.WriteFile(keyFile, keyPEM, 0o600))
	return certFile, keyFile, certPEM
}

func servingSerial(t *testing.T, s *Server) int64 {
	t.Helper()
	cert, err := s.certs.GetCertificate(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	return leaf.SerialNumber.Int64()
}

func TestBuildTLSConfigServerMode(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile, _ := writeSelfSigned(t, dir, 1, 30*24*time.Hour)

	cfg := testConfig()
	cfg.Server.TLS.Mode = "server"
	cfg.Server.TLS.CertFile = certFile
	cfg.Server.TLS.KeyFile = keyFile
	cfg.Server.TLS.MinVersion = "1.3"
	env := newTestEnv(t, cfg, nil)

	tlsConfig, err := env.server.buildTLSConfig()
	require.NoError(t, err)
	require.NotNil(t, tlsConfig)

	assert.Equal(t, uint16(tls.VersionTLS13), tlsConfig.MinVersion)
	assert.Equal(t, tls.NoClientCert, tlsConfig.ClientAuth)
	assert.Equal(t, int64(1), servingSerial(t, env.server))

	health := env.server.checkCertificateHealth()
	assert.Equal(t, true, health["healthy"])
	assert.Equal(t, "ok", health["status"])
}

func TestCertificateReload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile, _ := writeSelfSigned(t, dir, 1, 30*24*time.Hour)

	cfg := testConfig()
	cfg.Server.TLS.Mode = "server"
	cfg.Server.TLS.CertFile = certFile
	cfg.Server.TLS.KeyFile = keyFile
	env := newTestEnv(t, cfg, nil)

	_, err := env.server.buildTLSConfig()
	require.NoError(t, err)
	require.Equal(t, int64(1), servingSerial(t, env.server))

	writeSelfSigned(t, dir, 2, 12*time.Hour)
	env.server.certs.reload()
	assert.Equal(t, int64(2), servingSerial(t, env.server))

	health := env.server.checkCertificateHealth()
	assert.Equal(t, false, health["healthy"])
	assert.Equal(t, "critical", health["status"])

	// a broken file keeps the last good certificate
	require.NoError(t, os.WriteFile(certFile, []byte("not a cert"), 0o600))
	env.server.certs.reload()
	assert.Equal(t, int64(2), servingSerial(t, env.server))
}

func TestBuildTLSConfigMutual(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile, certPEM := writeSelfSigned(t, dir, 1, 30*24*time.Hour)

	cfg := testConfig()
	cfg.Server.TLS.Mode = "mutual"
	cfg.Server.TLS.CertFile = certFile
	cfg.Server.TLS.KeyFile = keyFile
	cfg.Server.TLS.CAContent = string(certPEM)
	cfg.Server.TLS.ClientAuthPolicy = "verify"
	env := newTestEnv(t, cfg, nil)

	tlsConfig, err := env.server.buildTLSConfig()
	require.NoError(t, err)
	assert.NotNil(t, tlsConfig.ClientCAs)
	assert.Equal(t, tls.VerifyClientCertIfGiven, tlsConfig.ClientAuth)
}

func TestBuildTLSConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		mode string
		ca   bool
	}{
		{"invalid mode", "sometimes", false},
		{"mutual without CA", "mutual", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certFile, keyFile, _ := writeSelfSigned(t, t.TempDir(), 1, time.Hour*48)

			cfg := testConfig()
			cfg.Server.TLS.Mode = tt.mode
			cfg.Server.TLS.CertFile = certFile
			cfg.Server.TLS.KeyFile = keyFile
			env := newTestEnv(t, cfg, nil)

			_, err := env.server.buildTLSConfig()
			assert.Error(t, err)
		})
	}
}

func TestBuildTLSConfigDisabled(t *testing.T) {
	env := newTestEnv(t, nil, nil)

	tlsConfig, err := env.server.buildTLSConfig()
	require.NoError(t, err)
	assert.Nil(t, tlsConfig)
	assert.Nil(t, env.server.checkCertificateHealth())
}

func TestTLSHelpers(t *testing.T) {
	assert.Equal(t, uint16(tls.VersionTLS12), tlsVersion(""))
	assert.Equal(t, uint16(tls.VersionTLS12), tlsVersion("1.2"))
	assert.Equal(t, tls.RequireAndVerifyClientCert, clientAuthPolicy("require"))
	assert.Equal(t, tls.RequestClientCert, clientAuthPolicy("request"))
	assert.Equal(t, []uint16{tls.TLS_AES_128_GCM_SHA256}, cipherSuites([]string{"TLS_AES_128_GCM_SHA256", "TLS_MADE_UP"}))
	assert.Nil(t, cipherSuites(nil))
}
