package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tutoria.org/internal/config"
	"tutoria.org/internal/identity"
)

// IdentityAPI serves account management. It sits on the internal network
// behind the gateway and, like its peers' directory lookups, takes no
// bearer token of its own.
type IdentityAPI struct {
	mux      *http.ServeMux
	accounts *identity.Service
}

func NewIdentityAPI(accounts *identity.Service, version string) *IdentityAPI {
	a := &IdentityAPI{
		mux:      http.NewServeMux(),
		accounts: accounts,
	}
	mountCommon(a.mux, config.ServiceUsers, version)
	a.mux.HandleFunc("/tutores/lista", a.handleTutorList)
	a.mux.HandleFunc("/tutores/asignar", a.handleAssignTutor)
	a.mux.HandleFunc("/tutores/", a.handleTutorStudents)
	a.mux.HandleFunc("/", a.handleRoot)
	return a
}

func (a *IdentityAPI) Handler() http.Handler {
	return Chain(config.ServiceUsers, a.mux)
}

func (a *IdentityAPI) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		switch r.Method {
		case http.MethodGet:
			a.list(w, r)
		case http.MethodPost:
			a.create(w, r)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
		}
		return
	}

	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.get(w, r, id)
	case http.MethodPut:
		a.update(w, r, id)
	case http.MethodDelete:
		a.delete(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *IdentityAPI) create(w http.ResponseWriter, r *http.Request) {
	var req identity.NewAccount
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	account, err := a.accounts.Register(r.Context(), req)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"mensaje":    "Usuario registrado exitosamente",
		"usuario_id": account.ID,
		"username":   account.Username,
		"rol":        account.Role,
	})
}

func (a *IdentityAPI) list(w http.ResponseWriter, r *http.Request) {
	accounts, err := a.accounts.List(r.Context(), identity.Role(r.URL.Query().Get("rol")))
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []*identity.Account{}
	}
	writeJSON(w, http.StatusOK, accounts)
}

func (a *IdentityAPI) get(w http.ResponseWriter, r *http.Request, id int64) {
	profile, err := a.accounts.Get(r.Context(), id)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (a *IdentityAPI) update(w http.ResponseWriter, r *http.Request, id int64) {
	var req identity.AccountUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := a.accounts.Update(r.Context(), id, req); err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":    "Usuario actualizado",
		"usuario_id": id,
	})
}

func (a *IdentityAPI) delete(w http.ResponseWriter, r *http.Request, id int64) {
	if err := a.accounts.Delete(r.Context(), id); err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":    "Usuario eliminado",
		"usuario_id": id,
	})
}

func (a *IdentityAPI) handleTutorList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	tutors, err := a.accounts.Tutors(r.Context())
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	if tutors == nil {
		tutors = []identity.Summary{}
	}
	writeJSON(w, http.StatusOK, tutors)
}

func (a *IdentityAPI) handleTutorStudents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/tutores/")
	rawID, ok := strings.CutSuffix(path, "/estudiantes")
	if !ok {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	id, err := parseID(strings.TrimSuffix(rawID, "/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	roster, err := a.accounts.StudentsOf(r.Context(), id)
	if err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

func (a *IdentityAPI) handleAssignTutor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req struct {
		StudentID int64 `json:"estudiante_id"`
		TutorID   int64 `json:"tutor_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.accounts.AssignTutor(r.Context(), req.StudentID, req.TutorID); err != nil {
		handleIdentityError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":       "Tutor asignado correctamente",
		"estudiante_id": req.StudentID,
		"tutor_id":      req.TutorID,
	})
}

func handleIdentityError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, identity.ErrConflict):
		writeError(w, r, http.StatusBadRequest, "Username o email ya registrado")
	case errors.Is(err, identity.ErrTutorNotFound):
		writeError(w, r, http.StatusNotFound, "Tutor no encontrado")
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Usuario no encontrado")
	case errors.Is(err, identity.ErrHasDependents):
		writeError(w, r, http.StatusBadRequest, "No se puede eliminar un tutor con estudiantes asignados")
	case errors.Is(err, identity.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "error interno")
	}
}
