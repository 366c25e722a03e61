package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"authgate/internal/authcode/models"
	"authgate/internal/platform/config"
	"authgate/internal/platform/metrics"
	"authgate/internal/platform/middleware"
	usermodels "authgate/internal/user/models"
	dErrors "authgate/pkg/domain-errors"
	"authgate/pkg/platform/httputil"
	"authgate/pkg/platform/middleware/metadata"
	"authgate/pkg/platform/middleware/requesttime"
)

// DefaultSignInPath is used when no client organization can be resolved.
const DefaultSignInPath = "/signin"

// Service is the authorization flow as seen by the HTTP layer.
type Service interface {
	Authorize(ctx context.Context, req models.AuthorizationRequest) (*models.AuthorizeResult, error)
	Authenticate(ctx context.Context, creds usermodels.Credentials, req models.AuthorizationRequest, meta models.AuditMetadata) (*models.AuthorizationResponse, error)
	ProcessConsent(ctx context.Context, req models.ConsentRequest) (*models.ConsentResponse, error)
}

// Config selects the sign-in fallback page and how a granted consent is
// returned to the browser.
type Config struct {
	SignInFallbackPath  string
	ConsentResponseMode string
	RequestTimeout      time.Duration
	// TrustedProxies may report the client address in forwarding headers.
	TrustedProxies metadata.TrustedProxies
	// AuthenticateLimit wraps the authenticate route, typically with a
	// per-IP rate limiter. Nil leaves the route unlimited.
	AuthenticateLimit func(http.Handler) http.Handler
}

// Handler serves the authorize, authenticate and consent endpoints.
type Handler struct {
	logger  *slog.Logger
	service Service
	metrics *metrics.Metrics
	cfg     Config
}

// New creates a new authorization flow Handler.
func New(service Service, logger *slog.Logger, metrics *metrics.Metrics, cfg Config) *Handler {
	if cfg.SignInFallbackPath == "" {
		cfg.SignInFallbackPath = DefaultSignInPath
	}
	if cfg.ConsentResponseMode == "" {
		cfg.ConsentResponseMode = config.ConsentModeRedirect
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return &Handler{
		logger:  logger,
		service: service,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Register registers the flow routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.Logger(h.logger))
		r.Use(middleware.Timeout(h.cfg.RequestTimeout))
		r.Use(metadata.NewClientMetadata(h.cfg.TrustedProxies))
		r.Use(requesttime.Middleware)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Get("/api/authorize", h.handleAuthorize)
		r.With(h.authenticateLimit()).Post("/api/authenticate", h.handleAuthenticate)
		r.Post("/api/consent", h.handleConsent)
	})
}

func (h *Handler) authenticateLimit() func(http.Handler) http.Handler {
	if h.cfg.AuthenticateLimit != nil {
		return h.cfg.AuthenticateLimit
	}
	return func(next http.Handler) http.Handler { return next }
}

// handleAuthorize always redirects to a sign-in page; the query carries either
// the filled request or the error.
func (h *Handler) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	req := models.AuthorizationRequestFromQuery(r.URL.Query())

	result, err := h.service.Authorize(ctx, req)
	h.observe(metrics.OpAuthorize, err)

	organization := ""
	if result != nil {
		organization = result.Organization
	}
	signIn := h.signInLocation(organization)

	if err != nil {
		var reqErr *models.RequestError
		if !errors.As(err, &reqErr) {
			h.logger.ErrorContext(ctx, "failed to validate authorization request",
				"request_id", requestID,
				"client_id", req.ClientID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		h.logger.WarnContext(ctx, "invalid authorization request",
			"request_id", requestID,
			"client_id", req.ClientID,
			"error", reqErr.Code,
		)
		h.redirect(w, r, signIn, reqErr.Query(req.State))
		return
	}

	h.redirect(w, r, signIn, result.Request.Query())
}

// handleAuthenticate verifies the posted credentials and returns a ticket.
func (h *Handler) handleAuthenticate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var creds usermodels.Credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		h.logger.WarnContext(ctx, "invalid authenticate request body",
			"request_id", requestID,
			"error", err.Error(),
		)
		h.observe(metrics.OpAuthenticate, dErrors.New(dErrors.CodeBadRequest, ""))
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	req := models.AuthorizationRequestFromQuery(r.URL.Query())
	meta := models.AuditMetadata{Host: r.Host, UserAgent: r.UserAgent()}

	resp, err := h.service.Authenticate(ctx, creds, req, meta)
	h.observe(metrics.OpAuthenticate, err)
	if err != nil {
		var reqErr *models.RequestError
		switch {
		case errors.As(err, &reqErr):
			h.logger.WarnContext(ctx, "authenticate rejected request",
				"request_id", requestID,
				"client_id", req.ClientID,
				"error", reqErr.Code,
			)
			httputil.WriteJSON(w, http.StatusBadRequest, reqErr)
		case dErrors.HasCode(err, dErrors.CodeUnauthorized):
			h.logger.WarnContext(ctx, "authentication failed",
				"request_id", requestID,
				"client_id", req.ClientID,
			)
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorBody{Error: string(dErrors.CodeUnauthorized)})
		case dErrors.HasCode(err, dErrors.CodeBadRequest):
			httputil.WriteError(w, err)
		default:
			h.logger.ErrorContext(ctx, "failed to issue ticket",
				"request_id", requestID,
				"error", err,
			)
			httputil.WriteError(w, err)
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleConsent applies the decision. Failures redirect to the client (or the
// sign-in page when the ticket did not resolve) with the error in the query.
func (h *Handler) handleConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.ConsentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid consent request body",
			"request_id", requestID,
			"error", err.Error(),
		)
		h.observe(metrics.OpConsent, dErrors.New(dErrors.CodeBadRequest, ""))
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	resp, err := h.service.ProcessConsent(ctx, req)
	h.observe(metrics.OpConsent, err)
	if err != nil {
		var consentErr *models.ConsentError
		if !errors.As(err, &consentErr) {
			h.logger.ErrorContext(ctx, "failed to process consent",
				"request_id", requestID,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}
		target := consentErr.RedirectURI
		if target == "" {
			target = h.cfg.SignInFallbackPath
		}
		h.logger.InfoContext(ctx, "consent not granted",
			"request_id", requestID,
			"error", consentErr.Err.Code,
		)
		h.redirect(w, r, target, consentErr.Err.Query(consentErr.State))
		return
	}

	if h.cfg.ConsentResponseMode == config.ConsentModeJSON {
		httputil.WriteJSON(w, http.StatusOK, resp)
		return
	}
	http.Redirect(w, r, resp.Location, http.StatusFound)
}

func (h *Handler) signInLocation(organization string) string {
	if organization == "" {
		return h.cfg.SignInFallbackPath
	}
	return "/organization/" + url.PathEscape(organization) + "/signin"
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, base string, q url.Values) {
	location, err := models.AppendQuery(base, q)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to build redirect location",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build redirect location"))
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

func (h *Handler) observe(operation string, err error) {
	if err == nil {
		h.metrics.ObserveFlow(operation, metrics.OutcomeSuccess, "")
		return
	}
	var reqErr *models.RequestError
	if errors.As(err, &reqErr) {
		h.metrics.ObserveFlow(operation, metrics.OutcomeError, string(reqErr.Code))
		return
	}
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal || code == dErrors.CodeUnavailable {
		h.metrics.ObserveFlow(operation, metrics.OutcomeFailure, string(code))
		return
	}
	h.metrics.ObserveFlow(operation, metrics.OutcomeError, string(code))
}
