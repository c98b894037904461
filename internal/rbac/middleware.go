package rbac

import (
	"context"
	"net/http"
	"strings"

	"log/slog"

	"github.com/odyssey-erp/assettrack/internal/platform/httpx"
	"github.com/odyssey-erp/assettrack/internal/shared"
)

// LegacyTokenHeader is the header the browser client sends the token in.
const LegacyTokenHeader = "x-auth-token"

// TokenVerifier resolves a raw credential into a principal.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (Principal, error)
}

// Middleware wires authentication and RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Service  *Service
	Verifier TokenVerifier
	Logger   *slog.Logger
}

// Authenticate resolves the caller from the request credential and stores the
// principal in the context. Requests without a credential pass through
// anonymously; guards below reject them where a role is required.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.Verifier.Verify(r.Context(), raw)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Debug("rbac verify token", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// RequireAuthenticated rejects anonymous callers.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole admits callers holding one of roles.
func (m Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			m.denied(r, principal, []string{"role"})
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

// RequireAny ensures the current caller has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if len(normalized) == 0 || hasAnyPermission(m.Service.EffectivePermissions(principal.Role), normalized) {
				next.ServeHTTP(w, r)
				return
			}
			m.denied(r, principal, normalized)
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

// RequireAll ensures the current caller has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if hasAllPermissions(m.Service.EffectivePermissions(principal.Role), normalized) {
				next.ServeHTTP(w, r)
				return
			}
			m.denied(r, principal, normalized)
			httpx.RespondError(w, shared.ErrForbidden)
		})
	}
}

func (m Middleware) denied(r *http.Request, p Principal, required []string) {
	if m.Logger == nil {
		return
	}
	m.Logger.Warn("rbac denied",
		slog.String("path", r.URL.Path),
		slog.String("user_id", p.UserID.String()),
		slog.String("role", string(p.Role)),
		slog.Any("required", required))
}

func tokenFromRequest(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(r.Header.Get(LegacyTokenHeader))
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}

func hasAnyPermission(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; ok {
			return true
		}
	}
	return false
}

func hasAllPermissions(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(granted))
	for _, p := range granted {
		set[strings.ToLower(p)] = struct{}{}
	}
	for _, r := range required {
		if _, ok := set[r]; !ok {
			return false
		}
	}
	return true
}
