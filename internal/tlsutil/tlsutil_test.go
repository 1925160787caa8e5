package tlsutil

import (
	"crypto/tls"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTLSConfig_OnlyAEAD(t *testing.T) {
	cfg := DefaultTLSConfig()
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
	require.NotEmpty(t, cfg.CipherSuites)

	aead := make(map[uint16]bool, len(aeadSuites))
	for _, cs := range aeadSuites {
		aead[cs] = true
	}
	for _, cs := range cfg.CipherSuites {
		assert.True(t, aead[cs], "unexpected cipher suite %d", cs)
	}
}

func TestDefaultTLSConfig_ReturnsFreshCopy(t *testing.T) {
	a := DefaultTLSConfig()
	a.CipherSuites[0] = 0
	b := DefaultTLSConfig()
	assert.NotEqual(t, uint16(0), b.CipherSuites[0])
}

func TestClientConfig(t *testing.T) {
	cfg := ClientConfig("redis.internal")
	assert.Equal(t, "redis.internal", cfg.ServerName)
	assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
}

func TestServerConfig_Errors(t *testing.T) {
	_, err := ServerConfig("", "")
	assert.Error(t, err)

	_, err = ServerConfig("/nonexistent/cert.pem", "/nonexistent/key.pem")
	assert.Error(t, err)
}

func TestSecureHTTPClient(t *testing.T) {
	client := SecureHTTPClient(15 * time.Second)
	assert.Equal(t, 15*time.Second, client.Timeout)

	tr, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.True(t, tr.ForceAttemptHTTP2)
	assert.Equal(t, uint16(tls.VersionTLS12), tr.TLSClientConfig.MinVersion)
}
