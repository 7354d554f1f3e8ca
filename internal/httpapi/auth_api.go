package httpapi

import (
	"errors"
	"net/http"

	"tutoria.org/internal/auth"
	"tutoria.org/internal/config"
)

// CredentialAPI serves login and token validation.
type CredentialAPI struct {
	mux   *http.ServeMux
	creds *auth.Service
}

func NewCredentialAPI(creds *auth.Service, version string) *CredentialAPI {
	a := &CredentialAPI{
		mux:   http.NewServeMux(),
		creds: creds,
	}
	mountCommon(a.mux, config.ServiceAuth, version)
	a.mux.HandleFunc("/login", a.handleLogin)
	a.mux.HandleFunc("/validate", a.handleValidate)
	a.mux.HandleFunc("/logout", a.handleLogout)
	return a
}

func (a *CredentialAPI) Handler() http.Handler {
	return Chain(config.ServiceAuth, a.mux)
}

func (a *CredentialAPI) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	session, err := a.creds.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeError(w, r, http.StatusUnauthorized, "Credenciales inválidas")
		case errors.Is(err, auth.ErrInvalidInput):
			writeError(w, r, http.StatusBadRequest, err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "error interno")
		}
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *CredentialAPI) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	info, ok := a.tokenInfo(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// handleLogout re-validates the token and acknowledges. Tokens are
// stateless; discarding the client copy ends the session.
func (a *CredentialAPI) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	info, ok := a.tokenInfo(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje": "Sesión cerrada exitosamente",
		"usuario": info.Username,
	})
}

func (a *CredentialAPI) tokenInfo(w http.ResponseWriter, r *http.Request) (*auth.TokenInfo, bool) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return nil, false
	}
	info, err := a.creds.Validate(req.Token)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "Token inválido o expirado")
		return nil, false
	}
	return info, true
}
