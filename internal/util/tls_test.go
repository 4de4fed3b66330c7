package util

import (
	"crypto/tls"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirychukyurii/hostdesk/internal/config"
)

func TestLoadTLSConfig(t *testing.T) {
	t.Run("nil config means plain connection", func(t *testing.T) {
		got, err := LoadTLSConfig(nil)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("empty config uses system roots", func(t *testing.T) {
		got, err := LoadTLSConfig(&config.TLSConfig{})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Nil(t, got.RootCAs)
		assert.Empty(t, got.Certificates)
		assert.Equal(t, uint16(tls.VersionTLS12), got.MinVersion)
	})

	t.Run("missing CA file", func(t *testing.T) {
		_, err := LoadTLSConfig(&config.TLSConfig{CA: filepath.Join(t.TempDir(), "ca.pem")})
		assert.ErrorContains(t, err, "CA certificate")
	})

	t.Run("CA file without certificates", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ca.pem")
		require.NoError(t, os.WriteFile(path, []byte("not a pem"), 0o600))
		_, err := LoadTLSConfig(&config.TLSConfig{CA: path})
		assert.ErrorContains(t, err, "append CA")
	})

	t.Run("key without cert", func(t *testing.T) {
		_, err := LoadTLSConfig(&config.TLSConfig{Key: filepath.Join(t.TempDir(), "key.pem")})
		assert.ErrorContains(t, err, "client certificate")
	})
}
