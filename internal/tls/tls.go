// Package tls provides TLS configuration for tquery servers and clients.
package tls

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math/big"
	"net"
	"sync/atomic"
	"time"

	"github.com/latebit/tquery/protocol"
)

// Certificate serves a certificate pair that can be replaced while the
// server runs.
type Certificate struct {
	certFile, keyFile string
	current           atomic.Pointer[tls.Certificate]
}

// LoadCertificate reads a PEM-encoded certificate and key pair.
func LoadCertificate(certFile, keyFile string) (*Certificate, error) {
	c := &Certificate{certFile: certFile, keyFile: keyFile}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload reads the pair from disk again. On failure the previous
// certificate stays in use.
func (c *Certificate) Reload() error {
	if c.certFile == "" {
		return errors.New("certificate has no backing files")
	}
	cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return fmt.Errorf("loading TLS certificate: %w", err)
	}
	c.current.Store(&cert)
	return nil
}

func (c *Certificate) get(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return c.current.Load(), nil
}

// ServerConfig returns a TLS 1.3 config that negotiates the tquery ALPN
// and presents c's current certificate.
func (c *Certificate) ServerConfig() *tls.Config {
	return &tls.Config{
		GetCertificate: c.get,
		MinVersion:     tls.VersionTLS13,
		NextProtos:     []string{protocol.ALPN},
	}
}

// LoadConfig loads a TLS config from PEM-encoded certificate and key files.
// Use this for production deployments with real certificates.
func LoadConfig(certFile, keyFile string) (*tls.Config, error) {
	c, err := LoadCertificate(certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return c.ServerConfig(), nil
}

// GenerateDevCertificate creates a self-signed certificate for development.
// It generates an ephemeral Ed25519 certificate in memory; Reload fails on
// it.
func GenerateDevCertificate() (*Certificate, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
		NotBefore:    now,
		NotAfter:     now.Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, priv.Public(), priv)
	if err != nil {
		return nil, err
	}

	c := &Certificate{}
	c.current.Store(&tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  priv,
	})
	return c, nil
}

// GenerateDevConfig creates a self-signed TLS config for development.
func GenerateDevConfig() (*tls.Config, error) {
	c, err := GenerateDevCertificate()
	if err != nil {
		return nil, err
	}
	return c.ServerConfig(), nil
}

// ClientConfig returns the client side config. insecure skips server
// certificate verification, which dev certificates need.
func ClientConfig(insecure bool) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: insecure,
		MinVersion:         tls.VersionTLS13,
		NextProtos:         []string{protocol.ALPN},
	}
}
