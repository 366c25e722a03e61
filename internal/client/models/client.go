package models

import (
	"slices"
	"strings"

	dErrors "authgate/pkg/domain-errors"
	pkgstrings "authgate/pkg/platform/strings"
)

// DefaultScope is granted when a request names no scope and the client was
// registered without its own defaults.
const DefaultScope = "profile"

// Client is a registered OAuth 2.0 client.
//
// Invariants:
//   - ID is non-empty
//   - RedirectURIs holds unique, non-empty entries (set semantics)
//   - DefaultScopes is non-empty; it falls back to ["profile"]
type Client struct {
	ID               string   `json:"client_id"`
	OrganizationName string   `json:"organization_name"`
	RedirectURIs     []string `json:"redirect_uris"`
	DefaultScopes    []string `json:"default_scopes"`
}

// NewClient validates and normalizes a client registration.
func NewClient(id, organization string, redirectURIs, defaultScopes []string) (*Client, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "client_id cannot be empty")
	}
	scopes := pkgstrings.DedupeAndTrim(defaultScopes)
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}
	return &Client{
		ID:               id,
		OrganizationName: strings.TrimSpace(organization),
		RedirectURIs:     pkgstrings.DedupeAndTrim(redirectURIs),
		DefaultScopes:    scopes,
	}, nil
}

// HasRedirectURI reports whether uri is registered. Comparison is exact.
func (c *Client) HasRedirectURI(uri string) bool {
	return slices.Contains(c.RedirectURIs, uri)
}

// DefaultRedirectURI returns the sole registered URI. It reports false when
// the client has zero or several, since then no default is unambiguous.
func (c *Client) DefaultRedirectURI() (string, bool) {
	if len(c.RedirectURIs) != 1 {
		return "", false
	}
	return c.RedirectURIs[0], true
}

// DefaultScope returns the default scopes in their space-joined wire form.
func (c *Client) DefaultScope() string {
	if len(c.DefaultScopes) == 0 {
		return DefaultScope
	}
	return strings.Join(c.DefaultScopes, " ")
}
