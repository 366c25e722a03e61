package service

import (
	"context"
	"errors"

	"authgate/internal/authcode/models"
	usermodels "authgate/internal/user/models"
	dErrors "authgate/pkg/domain-errors"
	audit "authgate/pkg/platform/audit"
	"authgate/pkg/platform/sentinel"
	"authgate/pkg/requestcontext"
)

// Authenticate verifies creds and issues a ticket for the request.
// Wrong credentials return a CodeUnauthorized domain error.
func (s *Service) Authenticate(ctx context.Context, creds usermodels.Credentials, req models.AuthorizationRequest, meta models.AuditMetadata) (*models.AuthorizationResponse, error) {
	creds.Normalize()
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.Verify(ctx, creds)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
			s.logAudit(ctx, audit.Event{
				ClientID:  req.ClientID,
				Action:    string(audit.EventAuthFailed),
				Reason:    "invalid_credentials",
				Host:      meta.Host,
				UserAgent: meta.UserAgent,
			})
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify credentials")
	}

	return s.IssueTicket(ctx, user, req, meta)
}

// IssueTicket re-validates req and binds it to user under a fresh ticket.
func (s *Service) IssueTicket(ctx context.Context, user *usermodels.User, req models.AuthorizationRequest, meta models.AuditMetadata) (*models.AuthorizationResponse, error) {
	if user == nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "user is required")
	}

	filled, err := s.ValidateAndFill(ctx, req)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	binding := &models.TicketBinding{
		UserID:      user.ID,
		ClientID:    filled.ClientID,
		RedirectURI: filled.RedirectURI,
		Scope:       filled.Scope,
		State:       filled.State,
		Metadata:    meta,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.ticketTTL),
	}
	if err := s.putTicket(ctx, binding); err != nil {
		return nil, err
	}

	s.metrics.IncrementTicketsIssued()
	s.logAudit(ctx, audit.Event{
		UserID:    user.ID.String(),
		ClientID:  filled.ClientID,
		Action:    string(audit.EventTicketIssued),
		Host:      meta.Host,
		UserAgent: meta.UserAgent,
	})

	return &models.AuthorizationResponse{Ticket: binding.Ticket, State: filled.State}, nil
}

// putTicket stores binding under a newly minted identifier, retrying on the
// rare collision with a live ticket.
func (s *Service) putTicket(ctx context.Context, binding *models.TicketBinding) error {
	for range maxMintAttempts {
		ticket, err := s.newToken()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate ticket")
		}
		binding.Ticket = ticket
		err = s.tickets.Put(ctx, binding)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store ticket")
		}
		s.logger.WarnContext(ctx, "ticket collision, regenerating",
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return dErrors.New(dErrors.CodeInternal, "failed to mint a unique ticket")
}
