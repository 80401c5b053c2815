package tls

import (
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	tlsCrt = "tls.crt"
	tlsKey = "tls.key"
)

// Config is the [server.tls] section.
type Config struct {
	Enabled      bool   `toml:"enabled" mapstructure:"enabled"`
	CertFile     string `toml:"cert_file" mapstructure:"cert_file"`
	KeyFile      string `toml:"key_file" mapstructure:"key_file"`
	Dir          string `toml:"dir" mapstructure:"dir"`
	AutoGenerate bool   `toml:"auto_generate" mapstructure:"auto_generate"`
	MinVersion   string `toml:"min_version" mapstructure:"min_version"`
}

// parseVersion maps "1.2"/"1.3" to the crypto/tls constant. Empty means 1.3.
func parseVersion(v string) (uint16, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.ToLower(v), "tls")) {
	case "", "default", "1.3":
		return tls.VersionTLS13, nil
	case "1.2":
		return tls.VersionTLS12, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version %q", v)
	}
}

// Setup returns the server TLS configuration, or nil when TLS is disabled.
// Explicit cert/key files win; otherwise Dir holds tls.crt and tls.key,
// generated on first use when AutoGenerate is set.
func Setup(cfg Config) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	minVer, err := parseVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	certPath, keyPath := cfg.CertFile, cfg.KeyFile
	if certPath == "" || keyPath == "" {
		if cfg.Dir == "" {
			return nil, errors.New("TLS enabled but no certificate configured")
		}
		certPath = filepath.Join(cfg.Dir, tlsCrt)
		keyPath = filepath.Join(cfg.Dir, tlsKey)
		if cfg.AutoGenerate && !exists(certPath, keyPath) {
			if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create certificate directory: %w", err)
			}
			err := GenerateSelfSignedCert(CertRequest{
				CommonName:  "localhost",
				DNSNames:    []string{"localhost"},
				IPAddresses: []string{"127.0.0.1", "::1"},
				NotAfter:    time.Now().AddDate(1, 0, 0),
				CertPath:    certPath,
				KeyPath:     keyPath,
			})
			if err != nil {
				return nil, fmt.Errorf("certificate generation failed: %w", err)
			}
		}
	}

	cert, err := tls.LoadX509KeyPair(filepath.Clean(certPath), filepath.Clean(keyPath))
	if err != nil {
		return nil, fmt.Errorf("load certificate: %w", err)
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   minVer,
	}, nil
}

func exists(paths ...string) bool {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return false
		}
	}
	return true
}
