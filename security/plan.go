// Package security resolves the transport encryption policy applied when a
// connection is opened. A plan is either insecure or encrypted with a
// pre-built trust configuration; it is immutable and safe to share across
// concurrent connect calls.
package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/Manny27nyc/neobolt/config"
)

// Plan describes whether and how transport encryption is applied.
type Plan struct {
	requiresEncryption bool
	tlsConfig          *tls.Config
}

// Insecure returns a plan that leaves the transport unencrypted.
func Insecure() Plan {
	return Plan{}
}

// NewTLS builds an encrypted plan from the provided trust settings.
func NewTLS(settings config.TLSSettings) (Plan, error) {
	cfg, err := buildTLSConfig(settings)
	if err != nil {
		return Plan{}, err
	}
	return Plan{requiresEncryption: true, tlsConfig: cfg}, nil
}

// FromSettings resolves a plan from configuration, falling back to an
// insecure plan when TLS is not enabled.
func FromSettings(settings config.TLSSettings) (Plan, error) {
	if !settings.Enabled {
		return Insecure(), nil
	}
	return NewTLS(settings)
}

// RequiresEncryption reports whether the transport must be encrypted.
func (p Plan) RequiresEncryption() bool {
	return p.requiresEncryption
}

// TLSConfig returns a copy of the trust configuration, nil for insecure plans.
func (p Plan) TLSConfig() *tls.Config {
	return p.tlsConfig.Clone()
}

func buildTLSConfig(settings config.TLSSettings) (*tls.Config, error) {
	cfg := &tls.Config{InsecureSkipVerify: settings.InsecureSkipVerify}
	if settings.ServerName != "" {
		cfg.ServerName = settings.ServerName
	}
	if len(settings.ALPN) > 0 {
		cfg.NextProtos = append([]string(nil), settings.ALPN...)
	}

	if settings.CAFile != "" {
		ca, err := os.ReadFile(settings.CAFile)
		if err != nil {
			return nil, fmt.Errorf("security: read ca file: %w", err)
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(ca); !ok {
			return nil, fmt.Errorf("security: parse ca file %s", settings.CAFile)
		}
		cfg.RootCAs = pool
	}

	if settings.CertFile != "" && settings.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(settings.CertFile, settings.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("security: load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}
