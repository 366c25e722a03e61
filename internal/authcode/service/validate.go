package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"authgate/internal/authcode/models"
	clientmodels "authgate/internal/client/models"
	dErrors "authgate/pkg/domain-errors"
	"authgate/pkg/platform/sentinel"
	pkgstrings "authgate/pkg/platform/strings"
)

// ValidateAndFill checks req against the client registry and returns a copy
// with redirect_uri and scope filled from the client's registration.
//
// Protocol failures are returned as *models.RequestError. A registry failure
// is returned as a domain error with CodeInternal.
//
// A filled, valid request passes through unchanged.
func (s *Service) ValidateAndFill(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationRequest, error) {
	filled, _, err := s.validate(ctx, req)
	return filled, err
}

// Authorize validates req and reports the organization that owns the client.
// The result is non-nil whenever the client was resolved, including when the
// request is otherwise invalid, so the caller can still pick the client's
// sign-in page for the error.
func (s *Service) Authorize(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizeResult, error) {
	filled, client, err := s.validate(ctx, req)
	if client == nil {
		return nil, err
	}
	result := &models.AuthorizeResult{Organization: client.OrganizationName}
	if filled != nil {
		result.Request = *filled
	}
	return result, err
}

func (s *Service) validate(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizationRequest, *clientmodels.Client, error) {
	if strings.TrimSpace(req.ClientID) == "" {
		return nil, nil, models.NewRequestError(models.ErrInvalidRequest, "client_id is required")
	}
	if strings.TrimSpace(req.ResponseType) == "" {
		return nil, nil, models.NewRequestError(models.ErrInvalidRequest, "response_type is required")
	}

	client, err := s.resolveClient(ctx, req.ClientID)
	if err != nil {
		return nil, nil, err
	}

	filled := req
	if filled.RedirectURI != "" {
		if !client.HasRedirectURI(filled.RedirectURI) {
			return nil, client, models.NewRequestError(models.ErrInvalidRequest, "redirect_uri is not registered for this client")
		}
	} else {
		uri, ok := client.DefaultRedirectURI()
		if !ok {
			return nil, client, models.NewRequestError(models.ErrInvalidRequest, "redirect_uri is required when the client has several registered")
		}
		filled.RedirectURI = uri
	}

	if filled.ResponseType != models.ResponseTypeCode {
		return nil, client, models.NewRequestError(models.ErrUnsupportedResponseType, "response_type must be code")
	}

	filled.Scope = pkgstrings.NormalizeSpaceList(filled.Scope)
	if filled.Scope == "" {
		filled.Scope = client.DefaultScope()
	}

	return &filled, client, nil
}

func (s *Service) resolveClient(ctx context.Context, clientID string) (*clientmodels.Client, error) {
	start := time.Now()
	defer s.metrics.ObserveResolveClient(start)

	client, err := s.clients.FindByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, models.NewRequestError(models.ErrInvalidClient, "unknown client")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load client")
	}
	return client, nil
}
