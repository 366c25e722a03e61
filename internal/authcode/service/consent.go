package service

import (
	"context"
	"errors"
	"net/url"

	"authgate/internal/authcode/models"
	dErrors "authgate/pkg/domain-errors"
	audit "authgate/pkg/platform/audit"
	"authgate/pkg/platform/sentinel"
	"authgate/pkg/requestcontext"
)

// ProcessConsent applies the user's decision to the ticket.
//
// Protocol failures are returned as *models.ConsentError; RedirectURI is set
// only when the ticket resolved. The echoed state is always req.State.
// Any other error is an internal failure.
func (s *Service) ProcessConsent(ctx context.Context, req models.ConsentRequest) (*models.ConsentResponse, error) {
	if !req.Decision.IsValid() {
		return nil, &models.ConsentError{
			Err:   models.RequestError{Code: models.ErrInvalidRequest, Description: "decision must be allow or deny"},
			State: req.State,
		}
	}

	now := requestcontext.Now(ctx)
	binding, err := s.tickets.TakeIfValid(ctx, req.Ticket, now)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || errors.Is(err, sentinel.ErrExpired) {
			s.logAudit(ctx, audit.Event{
				Action: string(audit.EventTicketRejected),
				Reason: rejectReason(err),
			})
			return nil, &models.ConsentError{
				Err:   models.RequestError{Code: models.ErrInvalidTicket, Description: "ticket is unknown, expired or already used"},
				State: req.State,
			}
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve ticket")
	}
	s.metrics.IncrementTicketsConsumed(string(req.Decision))

	consentEvent := audit.Event{
		UserID:    binding.UserID.String(),
		ClientID:  binding.ClientID,
		Decision:  string(req.Decision),
		Host:      binding.Metadata.Host,
		UserAgent: binding.Metadata.UserAgent,
	}

	if req.Decision == models.DecisionDeny {
		consentEvent.Action = string(audit.EventConsentDenied)
		s.logAudit(ctx, consentEvent)
		return nil, &models.ConsentError{
			Err:         models.RequestError{Code: models.ErrAccessDenied},
			RedirectURI: binding.RedirectURI,
			State:       req.State,
		}
	}

	code, err := s.mintCode(ctx, binding)
	if err != nil {
		return nil, err
	}
	consentEvent.Action = string(audit.EventConsentGranted)
	s.logAudit(ctx, consentEvent)

	q := url.Values{"code": {code}}
	if req.State != "" {
		q.Set("state", req.State)
	}
	location, err := models.AppendQuery(binding.RedirectURI, q)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build redirect location")
	}
	return &models.ConsentResponse{Location: location, Code: code, State: req.State}, nil
}

func (s *Service) mintCode(ctx context.Context, binding *models.TicketBinding) (string, error) {
	now := requestcontext.Now(ctx)
	for range maxMintAttempts {
		code, err := s.newToken()
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate authorization code")
		}
		err = s.codes.Create(ctx, &models.AuthorizationCodeRecord{
			Code:        code,
			ClientID:    binding.ClientID,
			UserID:      binding.UserID,
			RedirectURI: binding.RedirectURI,
			Scope:       binding.Scope,
			CreatedAt:   now,
			ExpiresAt:   now.Add(s.authCodeTTL),
		})
		if err == nil {
			return code, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store authorization code")
		}
	}
	return "", dErrors.New(dErrors.CodeInternal, "failed to mint a unique authorization code")
}

func rejectReason(err error) string {
	if errors.Is(err, sentinel.ErrExpired) {
		return "expired"
	}
	return "unknown_or_used"
}
