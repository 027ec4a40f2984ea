package identity

import (
	"context"
	"net/http"
	"strings"

	"aspirant-quiz-service/internal/domain"
)

// Headers set by the fronting auth proxy after it verified the user.
const (
	HeaderUID   = "X-Auth-Uid"
	HeaderName  = "X-Auth-Name"
	HeaderEmail = "X-Auth-Email"
)

type ctxKey struct{}

// Middleware attaches the caller's identity to the request context.
// The X-Auth-* headers are only honoured when trustHeaders is set, which is
// safe only behind an auth proxy that verifies the user and overwrites these
// headers on every request. Otherwise every request is treated as signed out.
// Requests without a uid are treated as signed out.
func Middleware(trustHeaders bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !trustHeaders {
				next.ServeHTTP(w, r)
				return
			}
			if who := FromHeaders(r.Header); who != nil {
				r = r.WithContext(WithIdentity(r.Context(), who))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// FromHeaders reads the auth proxy headers; nil when no uid is present.
func FromHeaders(h http.Header) *domain.Identity {
	uid := strings.TrimSpace(h.Get(HeaderUID))
	if uid == "" {
		return nil
	}
	return &domain.Identity{
		UID:         uid,
		DisplayName: strings.TrimSpace(h.Get(HeaderName)),
		Email:       strings.TrimSpace(h.Get(HeaderEmail)),
	}
}

func WithIdentity(ctx context.Context, who *domain.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, who)
}

// FromContext returns the signed-in user, or nil.
func FromContext(ctx context.Context) *domain.Identity {
	who, _ := ctx.Value(ctxKey{}).(*domain.Identity)
	return who
}
