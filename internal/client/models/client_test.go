package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "authgate/pkg/domain-errors"
)

func TestNewClient(t *testing.T) {
	t.Run("rejects empty id", func(t *testing.T) {
		_, err := NewClient("  ", "acme", nil, nil)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("seeds profile as default scope", func(t *testing.T) {
		c, err := NewClient("c1", "acme", []string{"https://app/cb"}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"profile"}, c.DefaultScopes)
		assert.Equal(t, "profile", c.DefaultScope())
	})

	t.Run("deduplicates redirect URIs", func(t *testing.T) {
		c, err := NewClient("c1", "acme", []string{"https://app/cb", " https://app/cb", ""}, []string{"openid", "profile"})
		require.NoError(t, err)
		assert.Equal(t, []string{"https://app/cb"}, c.RedirectURIs)
		assert.Equal(t, "openid profile", c.DefaultScope())
	})
}

func TestDefaultRedirectURI(t *testing.T) {
	tests := []struct {
		name   string
		uris   []string
		want   string
		wantOK bool
	}{
		{name: "none registered", uris: nil, wantOK: false},
		{name: "exactly one", uris: []string{"https://app/cb"}, want: "https://app/cb", wantOK: true},
		{name: "ambiguous", uris: []string{"https://app/cb", "https://app/other"}, wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{ID: "c1", RedirectURIs: tt.uris}
			got, ok := c.DefaultRedirectURI()
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasRedirectURI(t *testing.T) {
	c := &Client{ID: "c1", RedirectURIs: []string{"https://app/cb"}}
	assert.True(t, c.HasRedirectURI("https://app/cb"))
	assert.False(t, c.HasRedirectURI("https://app/cb/"))
	assert.False(t, c.HasRedirectURI("https://evil/cb"))
}
