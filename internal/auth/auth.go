// Package auth resolves bearer tokens to actors and guards routes by role.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/surplus-delivery/internal/domain"
	"github.com/joao-fontenele/surplus-delivery/internal/respond"
)

var ErrUnauthenticated = errors.New("unauthenticated")

// Resolver maps a bearer token to the actor it was issued to. It returns
// ErrUnauthenticated for unknown or expired tokens.
type Resolver interface {
	Resolve(ctx context.Context, token string) (domain.Actor, error)
}

type actorKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

func ActorFrom(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}

type Middleware struct {
	resolver Resolver
	logger   *slog.Logger
}

func NewMiddleware(resolver Resolver, logger *slog.Logger) *Middleware {
	return &Middleware{resolver: resolver, logger: logger}
}

// Authenticate resolves the Authorization header and stores the actor on the
// request context.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			respond.Error(w, m.logger, http.StatusUnauthorized, "missing bearer token")
			return
		}

		actor, err := m.resolver.Resolve(r.Context(), token)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				respond.Error(w, m.logger, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			m.logger.Error("failed to resolve session", "error", err)
			respond.Error(w, m.logger, http.StatusInternalServerError, "internal server error")
			return
		}

		next(w, r.WithContext(WithActor(r.Context(), actor)))
	}
}

// RequireRole authenticates the request and rejects actors of any other role.
func (m *Middleware) RequireRole(role domain.Role, next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ActorFrom(r.Context())
		if actor.Role != role {
			respond.Error(w, m.logger, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
