package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sweetmart/sweetmart/internal/auth"
)

// authedHandler is a handler that runs after authentication succeeded.
type authedHandler func(w http.ResponseWriter, r *http.Request, identity *auth.Identity)

// requireAction authenticates the bearer token and checks the role's
// capability before handing off.
func requireAction(authn auth.Authenticator, action auth.Action, next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := bearerIdentity(r, authn)
		if err != nil {
			respondStoreError(w, err)
			return
		}

		if !auth.Can(identity.Role, action) {
			respondStoreError(w, auth.ErrForbidden)
			return
		}

		next(w, r, identity)
	}
}

func bearerIdentity(r *http.Request, authn auth.Authenticator) (*auth.Identity, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, auth.ErrUnauthenticated
	}
	return authn.Authenticate(r.Context(), token)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Request")
	})
}
