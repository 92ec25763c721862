package rest

import (
	"crypto/subtle"
	"net/http"
	"strconv"
)

// BasicAuth returns middleware that requires HTTP basic auth credentials
// matching cfg. Failures are answered with 401 and a WWW-Authenticate
// challenge.
func BasicAuth(cfg BasicAuthConfig) Middleware {
	return basicAuth(cfg, func(w http.ResponseWriter, _ *http.Request, err error) {
		writeErrorResponse(w, err)
	})
}

func basicAuth(cfg BasicAuthConfig, onFail ErrorHandler) Middleware {
	realm := cfg.Realm
	if realm == "" {
		realm = "Restricted"
	}
	challenge := "Basic realm=" + strconv.Quote(realm)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok || cfg.Username == "" ||
				subtle.ConstantTimeCompare([]byte(user), []byte(cfg.Username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(pass), []byte(cfg.Password)) != 1 {
				w.Header().Set("WWW-Authenticate", challenge)
				onFail(w, r, Error(http.StatusUnauthorized, "authentication required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
