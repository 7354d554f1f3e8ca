package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"tutoria.org/internal/auth"
	"tutoria.org/internal/config"
	"tutoria.org/internal/files"
	"tutoria.org/internal/identity"
)

// maxUploadBytes caps one uploaded deliverable.
const maxUploadBytes = 25 << 20

// SubmissionAPI serves file deliveries and their review workflow.
type SubmissionAPI struct {
	mux  *http.ServeMux
	subs *files.Service
}

func NewSubmissionAPI(subs *files.Service, version string) *SubmissionAPI {
	a := &SubmissionAPI{
		mux:  http.NewServeMux(),
		subs: subs,
	}
	mountCommon(a.mux, config.ServiceFiles, version)
	a.mux.HandleFunc("/subir", a.handleUpload)
	a.mux.HandleFunc("/estudiante/", a.handleByStudent)
	a.mux.HandleFunc("/tutor/", a.handleByTutor)
	a.mux.HandleFunc("/historial/", a.handleHistory)
	a.mux.HandleFunc("/", a.handleResource)
	return a
}

func (a *SubmissionAPI) Handler() http.Handler {
	return Chain(config.ServiceFiles, WithAuth(a.mux))
}

func (a *SubmissionAPI) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	studentID, ok := caller(w, r)
	if !ok {
		return
	}
	if auth.RoleFromContext(r.Context()) != identity.RoleStudent {
		writeError(w, r, http.StatusForbidden, "Solo los estudiantes pueden subir archivos")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "formulario multipart inválido")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "el campo 'file' es obligatorio")
		return
	}
	defer file.Close()

	sub, err := a.subs.Upload(r.Context(), studentID, header.Filename, file)
	if err != nil {
		handleFilesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"mensaje":         "Archivo subido exitosamente",
		"archivo_id":      sub.ID,
		"nombre_original": sub.OriginalName,
		"nombre_guardado": sub.StoredName,
		"tipo":            sub.Kind,
		"tamanio_bytes":   sub.Size,
	})
}

func (a *SubmissionAPI) handleByStudent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/estudiante/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	subs, err := a.subs.ForStudent(r.Context(), id)
	if err != nil {
		handleFilesError(w, r, err)
		return
	}
	if subs == nil {
		subs = []*files.Submission{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"estudiante_id": id,
		"archivos":      subs,
		"total":         len(subs),
	})
}

func (a *SubmissionAPI) handleByTutor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/tutor/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	views, counts, err := a.subs.ForTutor(r.Context(), id, r.URL.Query().Get("estado"))
	if err != nil {
		handleFilesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tutor_id":   id,
		"archivos":   views,
		"total":      len(views),
		"por_estado": counts,
	})
}

func (a *SubmissionAPI) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/historial/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	history, err := a.subs.History(r.Context(), id)
	if err != nil {
		handleFilesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (a *SubmissionAPI) handleResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}

	if rest, ok := strings.CutSuffix(path, "/descargar"); ok {
		id, err := parseID(rest)
		if err != nil {
			writeError(w, r, http.StatusNotFound, "recurso no encontrado")
			return
		}
		a.download(w, r, id)
		return
	}
	if rest, ok := strings.CutSuffix(path, "/feedback"); ok {
		id, err := parseID(rest)
		if err != nil {
			writeError(w, r, http.StatusNotFound, "recurso no encontrado")
			return
		}
		a.feedback(w, r, id)
		return
	}

	id, err := parseID(path)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	switch r.Method {
	case http.MethodGet:
		a.get(w, r, id)
	case http.MethodDelete:
		a.delete(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodDelete)
	}
}

func (a *SubmissionAPI) get(w http.ResponseWriter, r *http.Request, id int64) {
	sub, err := a.subs.Get(r.Context(), id)
	if err != nil {
		handleFilesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (a *SubmissionAPI) download(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	sub, rc, err := a.subs.Download(r.Context(), callerID, id)
	if err != nil {
		handleFilesError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="`+sub.OriginalName+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, rc)
}

func (a *SubmissionAPI) feedback(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	tutorID, ok := caller(w, r)
	if !ok {
		return
	}
	if !auth.IsTutor(r.Context()) {
		writeError(w, r, http.StatusForbidden, "Solo los tutores pueden dejar feedback")
		return
	}
	var req files.Feedback
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	sub, err := a.subs.AddFeedback(r.Context(), tutorID, id, req)
	if err != nil {
		handleFilesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":    "Feedback agregado",
		"archivo_id": sub.ID,
		"estado":     sub.State,
	})
}

func (a *SubmissionAPI) delete(w http.ResponseWriter, r *http.Request, id int64) {
	studentID, ok := caller(w, r)
	if !ok {
		return
	}
	if err := a.subs.Delete(r.Context(), studentID, id); err != nil {
		handleFilesError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":    "Archivo eliminado",
		"archivo_id": id,
	})
}

func handleFilesError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, files.ErrUnsupportedType):
		writeError(w, r, http.StatusBadRequest, "Solo se permiten archivos PDF o ZIP")
	case errors.Is(err, files.ErrMissingBlob):
		writeError(w, r, http.StatusNotFound, "Archivo físico no encontrado")
	case errors.Is(err, files.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Archivo no encontrado")
	case errors.Is(err, files.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "Operación no permitida sobre este archivo")
	case errors.Is(err, files.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Usuario no encontrado")
	case errors.Is(err, identity.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "servicio de usuarios no disponible")
	default:
		writeError(w, r, http.StatusInternalServerError, "error interno")
	}
}
