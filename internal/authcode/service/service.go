package service

import (
	"context"
	"log/slog"
	"time"

	"authgate/internal/authcode/models"
	clientmodels "authgate/internal/client/models"
	"authgate/internal/platform/metrics"
	usermodels "authgate/internal/user/models"
	audit "authgate/pkg/platform/audit"
	"authgate/pkg/requestcontext"
	"authgate/pkg/secrets"
)

const (
	DefaultTicketTTL   = 5 * time.Minute
	DefaultAuthCodeTTL = 10 * time.Minute

	// maxMintAttempts bounds retries when a freshly generated identifier
	// collides with a live one.
	maxMintAttempts = 3
)

type ClientRegistry interface {
	FindByID(ctx context.Context, id string) (*clientmodels.Client, error)
}

type UserVerifier interface {
	Verify(ctx context.Context, creds usermodels.Credentials) (*usermodels.User, error)
}

type TicketStore interface {
	Put(ctx context.Context, binding *models.TicketBinding) error
	TakeIfValid(ctx context.Context, ticket string, now time.Time) (*models.TicketBinding, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type CodeStore interface {
	Create(ctx context.Context, record *models.AuthorizationCodeRecord) error
	DeleteExpiredCodes(ctx context.Context, now time.Time) (int, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service validates authorization requests, issues tickets and applies
// consent decisions. It owns no state; tickets and codes live in the stores.
type Service struct {
	clients ClientRegistry
	users   UserVerifier
	tickets TicketStore
	codes   CodeStore

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics

	ticketTTL   time.Duration
	authCodeTTL time.Duration
	newToken    func() (string, error)
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTicketTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ticketTTL = ttl
		}
	}
}

func WithAuthCodeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.authCodeTTL = ttl
		}
	}
}

// WithTokenGenerator replaces the generator used for tickets and codes.
func WithTokenGenerator(gen func() (string, error)) Option {
	return func(s *Service) {
		s.newToken = gen
	}
}

// New constructs a Service.
func New(clients ClientRegistry, users UserVerifier, tickets TicketStore, codes CodeStore, opts ...Option) *Service {
	s := &Service{
		clients:     clients,
		users:       users,
		tickets:     tickets,
		codes:       codes,
		logger:      slog.Default(),
		ticketTTL:   DefaultTicketTTL,
		authCodeTTL: DefaultAuthCodeTTL,
		newToken:    secrets.Generate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	s.logger.InfoContext(ctx, event.Action,
		"event", event.Action,
		"log_type", "audit",
		"request_id", event.RequestID,
		"user_id", event.UserID,
		"client_id", event.ClientID,
	)
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"event", event.Action,
			"request_id", event.RequestID,
			"error", err,
		)
	}
}
