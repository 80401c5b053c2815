package tls

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Disabled(t *testing.T) {
	c, err := Setup(Config{})
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSetup_NoCertificate(t *testing.T) {
	_, err := Setup(Config{Enabled: true})
	assert.Error(t, err)
}

func TestSetup_AutoGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tls")
	c, err := Setup(Config{Enabled: true, Dir: dir, AutoGenerate: true})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Len(t, c.Certificates, 1)
	assert.Equal(t, uint16(tls.VersionTLS13), c.MinVersion)

	st, err := os.Stat(filepath.Join(dir, tlsKey))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), st.Mode().Perm())

	// second call reuses the files
	certBefore, err := os.ReadFile(filepath.Join(dir, tlsCrt))
	require.NoError(t, err)
	_, err = Setup(Config{Enabled: true, Dir: dir, AutoGenerate: true, MinVersion: "1.2"})
	require.NoError(t, err)
	certAfter, err := os.ReadFile(filepath.Join(dir, tlsCrt))
	require.NoError(t, err)
	assert.Equal(t, certBefore, certAfter)
}

func TestSetup_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	cp, kp := filepath.Join(dir, "a.crt"), filepath.Join(dir, "a.key")
	require.NoError(t, GenerateSelfSignedCert(CertRequest{
		CommonName: "localhost",
		DNSNames:   []string{"localhost"},
		NotAfter:   time.Now().Add(time.Hour),
		CertPath:   cp,
		KeyPath:    kp,
	}))
	c, err := Setup(Config{Enabled: true, CertFile: cp, KeyFile: kp, MinVersion: "tls1.2"})
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS12), c.MinVersion)
}

func TestSetup_MissingDirWithoutAutoGenerate(t *testing.T) {
	_, err := Setup(Config{Enabled: true, Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	_, err := parseVersion("1.1")
	assert.Error(t, err)
	v, err := parseVersion("TLS1.3")
	require.NoError(t, err)
	assert.Equal(t, uint16(tls.VersionTLS13), v)
}

func TestGenerateSelfSignedCert_SANs(t *testing.T) {
	dir := t.TempDir()
	cp := filepath.Join(dir, "c.pem")
	require.NoError(t, GenerateSelfSignedCert(CertRequest{
		CommonName:  "folio.local",
		DNSNames:    []string{"folio.local"},
		IPAddresses: []string{"127.0.0.1", "bogus"},
		NotAfter:    time.Now().Add(24 * time.Hour),
		CertPath:    cp,
		KeyPath:     filepath.Join(dir, "k.pem"),
	}))
	raw, err := os.ReadFile(cp)
	require.NoError(t, err)
	block, _ := pem.Decode(raw)
	require.NotNil(t, block)
	cert, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.Equal(t, "folio.local", cert.Subject.CommonName)
	assert.Equal(t, []string{"folio.local"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())
}
