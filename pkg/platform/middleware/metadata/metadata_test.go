package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/pkg/requestcontext"
)

func mustTrust(t *testing.T, entries ...string) TrustedProxies {
	t.Helper()
	trusted, err := ParseTrustedProxies(entries)
	require.NoError(t, err)
	return trusted
}

func TestClientIPFromRequest(t *testing.T) {
	t.Run("forwarding headers from an untrusted peer are ignored", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "203.0.113.7:5555"
		r.Header.Set("X-Forwarded-For", "10.0.0.1")
		r.Header.Set("X-Real-IP", "10.0.0.2")
		assert.Equal(t, "203.0.113.7", ClientIPFromRequest(r, nil))
		assert.Equal(t, "203.0.113.7", ClientIPFromRequest(r, mustTrust(t, "192.0.2.0/24")))
	})

	t.Run("right-most untrusted hop wins behind a trusted proxy", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.5:443"
		r.Header.Set("X-Forwarded-For", "198.51.100.9, 203.0.113.7, 10.0.0.3")
		assert.Equal(t, "203.0.113.7", ClientIPFromRequest(r, mustTrust(t, "10.0.0.0/8")))
	})

	t.Run("spoofed left-most entries do not move the key", func(t *testing.T) {
		trusted := mustTrust(t, "10.0.0.0/8")
		for _, spoofed := range []string{"1.1.1.1", "2.2.2.2", "garbage"} {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = "10.0.0.5:443"
			r.Header.Set("X-Forwarded-For", spoofed+", 203.0.113.7")
			assert.Equal(t, "203.0.113.7", ClientIPFromRequest(r, trusted))
		}
	})

	t.Run("X-Real-IP used behind a trusted proxy without X-Forwarded-For", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "10.0.0.5:443"
		r.Header.Set("X-Real-IP", " 203.0.113.7 ")
		assert.Equal(t, "203.0.113.7", ClientIPFromRequest(r, mustTrust(t, "10.0.0.5")))
	})

	t.Run("IPv6 peer without port brackets", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = "[2001:db8::1]:54321"
		assert.Equal(t, "2001:db8::1", ClientIPFromRequest(r, nil))
	})
}

func TestParseTrustedProxies(t *testing.T) {
	trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8", " 192.0.2.10 ", ""})
	require.NoError(t, err)
	assert.Len(t, trusted, 2)

	_, err = ParseTrustedProxies([]string{"not-an-ip"})
	assert.Error(t, err)
	_, err = ParseTrustedProxies([]string{"10.0.0.0/99"})
	assert.Error(t, err)
}

func TestClientMetadata(t *testing.T) {
	var gotIP, gotUA string
	h := ClientMetadata(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = requestcontext.ClientIP(r.Context())
		gotUA = requestcontext.UserAgent(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.0.2.1:1234"
	r.Header.Set("User-Agent", "curl/8.0")
	r.Header.Set("X-Forwarded-For", "198.51.100.9")
	h.ServeHTTP(httptest.NewRecorder(), r)

	assert.Equal(t, "192.0.2.1", gotIP)
	assert.Equal(t, "curl/8.0", gotUA)
}
