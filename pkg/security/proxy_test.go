package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTrustedProxies(t *testing.T) {
	proxies, err := ParseTrustedProxies([]string{"10.0.0.0/8", " ", "127.0.0.1", "::1"})
	require.NoError(t, err)
	assert.Len(t, proxies, 3)

	assert.True(t, proxies.Contains("10.1.2.3"))
	assert.True(t, proxies.Contains("127.0.0.1"))
	assert.True(t, proxies.Contains("::1"))
	assert.False(t, proxies.Contains("127.0.0.2"))
	assert.False(t, proxies.Contains("203.0.113.9"))
	assert.False(t, proxies.Contains("not-an-ip"))
}

func TestParseTrustedProxies_Invalid(t *testing.T) {
	_, err := ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)

	_, err = ParseTrustedProxies([]string{"proxy.local"})
	assert.Error(t, err)
}

func TestTrustedProxies_EmptyTrustsNothing(t *testing.T) {
	var proxies TrustedProxies
	assert.False(t, proxies.Contains("127.0.0.1"))
}
