package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tutoria.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// Paths every service serves without a token.
var commonPublicPaths = []string{
	"/health",
	"/metrics",
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("authorization header is required")
	}
	if !strings.HasPrefix(header, bearer) {
		return "", errors.New("authorization header must be a bearer token")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearer))
	if token == "" {
		return "", errors.New("bearer token is empty")
	}
	return token, nil
}

// WithAuth rejects requests without a valid bearer token and stores the
// caller's identity in the context. extraPublic lists service-specific
// paths served without a token.
func WithAuth(next http.Handler, extraPublic ...string) http.Handler {
	public := append([]string{}, commonPublicPaths...)
	public = append(public, extraPublic...)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		for _, p := range public {
			if r.URL.Path == p {
				next.ServeHTTP(w, r)
				return
			}
		}

		token, err := extractBearerToken(r.Header.Get(authHeader))
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		claims, err := auth.ParseAndValidate(token)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "token inválido o expirado")
			return
		}
		accountID, err := claims.AccountID()
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "token inválido o expirado")
			return
		}

		ctx := auth.ContextWithUser(r.Context(), accountID, claims.Username, claims.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// caller returns the authenticated account id, writing a 401 when absent.
func caller(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "no autenticado")
		return 0, false
	}
	return id, true
}
