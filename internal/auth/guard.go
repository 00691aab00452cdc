package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hhaamed74/promanager-api/internal/model"
	"github.com/hhaamed74/promanager-api/internal/repository"
)

// Authentication and authorization errors.
// Everything except ErrForbidden maps to 401; ErrForbidden maps to 403.
var (
	ErrUnauthenticated   = errors.New("authentication required")
	ErrInvalidToken      = errors.New("invalid or expired token")
	ErrPrincipalNotFound = errors.New("account no longer exists")
	ErrAccountDisabled   = errors.New("account is disabled")
	ErrForbidden         = errors.New("forbidden")
)

// IsAuthenticationError reports whether err is one of the 401 errors.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrUnauthenticated) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrPrincipalNotFound) ||
		errors.Is(err, ErrAccountDisabled)
}

// TokenVerifier checks a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (*TokenClaims, error)
}

// AccountFinder resolves an account by ID.
// A missing account must be reported as repository.ErrAccountNotFound.
type AccountFinder interface {
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
}

// Guard authenticates bearer tokens.
// It holds no mutable state and is safe for concurrent use.
type Guard struct {
	verifier TokenVerifier
	accounts AccountFinder
	logger   *slog.Logger
}

// NewGuard creates a Guard. A nil logger falls back to slog.Default.
func NewGuard(verifier TokenVerifier, accounts AccountFinder, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		verifier: verifier,
		accounts: accounts,
		logger:   logger.With("component", "auth.guard"),
	}
}

// ExtractBearer returns the token from an Authorization header value.
func ExtractBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrUnauthenticated
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrUnauthenticated
	}
	return token, nil
}

// Authenticate resolves a bearer token to an active principal.
func (g *Guard) Authenticate(ctx context.Context, bearerToken string) (*model.Principal, error) {
	ctx, span := otel.Tracer("github.com/hhaamed74/promanager-api/internal/auth").Start(ctx, "auth.Authenticate")
	defer span.End()

	p, err := g.authenticate(ctx, bearerToken)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		g.logger.DebugContext(ctx, "authentication rejected", slog.String("reason", err.Error()))
		return nil, err
	}
	span.SetAttributes(attribute.String("principal.id", p.ID), attribute.String("principal.role", string(p.Role)))
	return p, nil
}

func (g *Guard) authenticate(ctx context.Context, bearerToken string) (*model.Principal, error) {
	if strings.TrimSpace(bearerToken) == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := g.verifier.Verify(bearerToken)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	account, err := g.accounts.GetAccountByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, ErrPrincipalNotFound
		}
		return nil, fmt.Errorf("lookup principal: %w", err)
	}

	if !account.Active {
		return nil, ErrAccountDisabled
	}

	return account.Principal(), nil
}

// AuthorizeRole fails with ErrForbidden unless the principal's role is allowed.
func AuthorizeRole(p *model.Principal, allowed model.RoleSet) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if !allowed.Contains(p.Role) {
		return ErrForbidden
	}
	return nil
}

// AuthorizeOwnerOrAdmin fails with ErrForbidden unless the principal owns the
// resource or is an admin.
func AuthorizeOwnerOrAdmin(p *model.Principal, ownerID string) error {
	if p == nil {
		return ErrUnauthenticated
	}
	if p.Role == model.RoleAdmin {
		return nil
	}
	if ownerID != "" && p.ID == ownerID {
		return nil
	}
	return ErrForbidden
}
