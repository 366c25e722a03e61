package models

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// ResponseTypeCode is the only response_type of the authorization code flow.
const ResponseTypeCode = "code"

// AuthorizationRequest identifies the requesting client and the desired flow.
// After validation RedirectURI and Scope are non-empty.
type AuthorizationRequest struct {
	ClientID     string `json:"client_id"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	ResponseType string `json:"response_type"`
	Scope        string `json:"scope,omitempty"`
	State        string `json:"state,omitempty"`
}

// AuthorizationRequestFromQuery reads the request parameters from a query string.
func AuthorizationRequestFromQuery(q url.Values) AuthorizationRequest {
	return AuthorizationRequest{
		ClientID:     q.Get("client_id"),
		RedirectURI:  q.Get("redirect_uri"),
		ResponseType: q.Get("response_type"),
		Scope:        q.Get("scope"),
		State:        q.Get("state"),
	}
}

// Query encodes the request back into query parameters, omitting empty ones.
func (r AuthorizationRequest) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("client_id", r.ClientID)
	set("redirect_uri", r.RedirectURI)
	set("response_type", r.ResponseType)
	set("scope", r.Scope)
	set("state", r.State)
	return q
}

// AuthorizeResult is a validated request plus the organization owning the
// client, which selects the sign-in page.
type AuthorizeResult struct {
	Request      AuthorizationRequest
	Organization string
}

// AuditMetadata is attached to ticket issuance for traceability.
type AuditMetadata struct {
	Host      string `json:"host"`
	UserAgent string `json:"user_agent"`
}

// AuthorizationResponse carries a freshly issued ticket.
type AuthorizationResponse struct {
	Ticket string `json:"ticket"`
	State  string `json:"state,omitempty"`
}

// ConsentDecision is the user's answer on the consent page.
type ConsentDecision string

const (
	DecisionAllow ConsentDecision = "allow"
	DecisionDeny  ConsentDecision = "deny"
)

// IsValid reports whether d is allow or deny.
func (d ConsentDecision) IsValid() bool {
	return d == DecisionAllow || d == DecisionDeny
}

// ConsentRequest is posted by the consent page.
type ConsentRequest struct {
	Ticket   string          `json:"ticket"`
	State    string          `json:"state,omitempty"`
	Decision ConsentDecision `json:"decision"`
}

// ConsentResponse is a granted consent: the client redirect location with
// the authorization code and state attached.
type ConsentResponse struct {
	Location string `json:"location"`
	Code     string `json:"-"`
	State    string `json:"-"`
}

// TicketBinding is what a ticket stands for until consent consumes it.
type TicketBinding struct {
	Ticket      string        `json:"ticket"`
	UserID      uuid.UUID     `json:"user_id"`
	ClientID    string        `json:"client_id"`
	RedirectURI string        `json:"redirect_uri"`
	Scope       string        `json:"scope"`
	State       string        `json:"state,omitempty"`
	Metadata    AuditMetadata `json:"metadata"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
}

// IsExpired reports whether the binding is past its lifetime at now.
func (b *TicketBinding) IsExpired(now time.Time) bool {
	return !now.Before(b.ExpiresAt)
}

// AuthorizationCodeRecord is a code minted on consent, awaiting exchange.
type AuthorizationCodeRecord struct {
	Code        string    `json:"code"`
	ClientID    string    `json:"client_id"`
	UserID      uuid.UUID `json:"user_id"`
	RedirectURI string    `json:"redirect_uri"`
	Scope       string    `json:"scope"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// IsExpired reports whether the code is past its lifetime at now.
func (r *AuthorizationCodeRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// AppendQuery merges params into the query of rawURI, keeping any query it
// already carries. Keys are encoded in sorted order.
func AppendQuery(rawURI string, params url.Values) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
