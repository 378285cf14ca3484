package policy

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/sales-portal/auth"
	"github.com/diewo77/sales-portal/gate"
	"github.com/diewo77/sales-portal/httpx"
	"github.com/diewo77/sales-portal/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Resource types registered on the gate.
const (
	ResourceOrder  = services.ResourceOrder
	ResourceReport = "report"
	ResourceJob    = "job"
)

// AuthGate holds the gate and the cached caller resolver.
// Use it as the single authorization point of the application.
type AuthGate struct {
	Gate    *gate.Gate[*auth.Caller]
	Callers *gate.CachedResolver[uint, *auth.Caller]
	log     *zap.Logger
}

// NewAuthGate builds a gate whose callers are loaded from db and cached for
// cacheTTL.
func NewAuthGate(db *gorm.DB, cacheTTL time.Duration, log *zap.Logger) *AuthGate {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthGate{
		Gate:    gate.NewGate[*auth.Caller](),
		Callers: gate.NewCachedResolver[uint, *auth.Caller](NewDBCallerResolver(db), cacheTTL),
		log:     log,
	}
}

// RegisterPolicy adds a policy for a resource type.
func (ag *AuthGate) RegisterPolicy(resourceType string, p gate.Policy[*auth.Caller]) {
	ag.Gate.Register(resourceType, p)
}

// Authorize checks caller against the policy of resourceType.
func (ag *AuthGate) Authorize(ctx context.Context, caller *auth.Caller, action gate.Action, resourceType string, resource any) error {
	return ag.Gate.Authorize(ctx, caller, action, resourceType, resource)
}

// Can is Authorize for the caller stored in ctx, as a bool.
func (ag *AuthGate) Can(ctx context.Context, action gate.Action, resourceType string, resource any) bool {
	c, ok := auth.CallerFromContext(ctx)
	if !ok {
		return false
	}
	return ag.Authorize(ctx, c, action, resourceType, resource) == nil
}

// InvalidateUser drops the cached caller of a user.
// Call this when a user's staff flag or representative changes.
func (ag *AuthGate) InvalidateUser(userID uint) {
	ag.Callers.Invalidate(userID)
}

// InvalidateAll clears the caller cache.
func (ag *AuthGate) InvalidateAll() {
	ag.Callers.InvalidateAll()
}

// VerifyUser reports whether userID still resolves to a caller. It is meant
// for auth.SetUserVerifier.
func (ag *AuthGate) VerifyUser(ctx context.Context, userID uint) bool {
	_, err := ag.Callers.Resolve(ctx, userID)
	return err == nil
}

// ResolveCaller returns middleware that turns the authenticated user id into
// a Caller stored in the request context. Requests without a user id answer
// 401.
func (ag *AuthGate) ResolveCaller() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uid, ok := auth.UserIDFromContext(r.Context())
			if !ok || uid == 0 {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			c, err := ag.Callers.Resolve(r.Context(), uid)
			if err != nil {
				if errors.Is(err, services.ErrNotFound) {
					auth.ClearSession(w)
					httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
					return
				}
				ag.log.Error("resolve caller", zap.Uint("user_id", uid), zap.Error(err))
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), c)))
		})
	}
}

// RequirePermission returns middleware that answers 403 unless the caller
// may perform action on resourceType. It runs after ResolveCaller.
func (ag *AuthGate) RequirePermission(resourceType string, action gate.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ag.Can(r.Context(), action, resourceType, nil) {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff returns middleware that only lets staff through.
func (ag *AuthGate) RequireStaff() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, ok := auth.CallerFromContext(r.Context())
			if !ok {
				httpx.JSONError(w, http.StatusUnauthorized, "unauthorized", nil)
				return
			}
			if !c.Staff {
				httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
