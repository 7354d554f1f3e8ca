package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tutoria.org/internal/appointments"
	"tutoria.org/internal/auth"
	"tutoria.org/internal/config"
	"tutoria.org/internal/identity"
)

// SchedulingAPI serves the tutoring appointment lifecycle.
type SchedulingAPI struct {
	mux   *http.ServeMux
	appts *appointments.Service
}

func NewSchedulingAPI(appts *appointments.Service, version string) *SchedulingAPI {
	a := &SchedulingAPI{
		mux:   http.NewServeMux(),
		appts: appts,
	}
	mountCommon(a.mux, config.ServiceAppointments, version)
	a.mux.HandleFunc("/solicitar", a.handleRequest)
	a.mux.HandleFunc("/usuario/", a.handleForUser)
	a.mux.HandleFunc("/agenda/", a.handleAgenda)
	a.mux.HandleFunc("/pendientes/", a.handlePending)
	a.mux.HandleFunc("/estadisticas/", a.handleStats)
	a.mux.HandleFunc("/", a.handleResource)
	return a
}

func (a *SchedulingAPI) Handler() http.Handler {
	return Chain(config.ServiceAppointments, WithAuth(a.mux))
}

func (a *SchedulingAPI) handleRequest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	studentID, ok := caller(w, r)
	if !ok {
		return
	}
	if auth.RoleFromContext(r.Context()) != identity.RoleStudent {
		writeError(w, r, http.StatusForbidden, "Solo los estudiantes pueden solicitar citas")
		return
	}
	var req appointments.Request
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := a.appts.Request(r.Context(), studentID, req)
	if err != nil {
		handleSchedulingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"mensaje": "Cita solicitada correctamente",
		"cita":    appt,
	})
}

func (a *SchedulingAPI) handleForUser(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "/usuario/")
	if !ok {
		return
	}
	appts, err := a.appts.ForUser(r.Context(), id, r.URL.Query().Get("estado"))
	if err != nil {
		handleSchedulingError(w, r, err)
		return
	}
	if appts == nil {
		appts = []*appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

func (a *SchedulingAPI) handleAgenda(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "/agenda/")
	if !ok {
		return
	}
	appts, err := a.appts.Agenda(r.Context(), id, parseBool(r.URL.Query().Get("proximas")))
	if err != nil {
		handleSchedulingError(w, r, err)
		return
	}
	if appts == nil {
		appts = []*appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

func (a *SchedulingAPI) handlePending(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "/pendientes/")
	if !ok {
		return
	}
	appts, err := a.appts.PendingFor(r.Context(), id)
	if err != nil {
		handleSchedulingError(w, r, err)
		return
	}
	if appts == nil {
		appts = []*appointments.Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

func (a *SchedulingAPI) handleStats(w http.ResponseWriter, r *http.Request) {
	id, ok := a.pathID(w, r, "/estadisticas/")
	if !ok {
		return
	}
	stats, err := a.appts.StatsFor(r.Context(), id)
	if err != nil {
		handleSchedulingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *SchedulingAPI) pathID(w http.ResponseWriter, r *http.Request, prefix string) (int64, bool) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return 0, false
	}
	id, err := parseID(strings.TrimPrefix(r.URL.Path, prefix))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return 0, false
	}
	return id, true
}

func (a *SchedulingAPI) handleResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}

	if rest, ok := strings.CutSuffix(path, "/responder"); ok {
		a.respond(w, r, rest)
		return
	}
	if rest, ok := strings.CutSuffix(path, "/cancelar"); ok {
		a.cancel(w, r, rest)
		return
	}
	if rest, ok := strings.CutSuffix(path, "/completar"); ok {
		a.complete(w, r, rest)
		return
	}

	id, err := parseID(path)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	appt, err := a.appts.Get(r.Context(), id)
	if err != nil {
		handleSchedulingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (a *SchedulingAPI) respond(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	id, err := parseID(rawID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	tutorID, ok := caller(w, r)
	if !ok {
		return
	}
	if !auth.IsTutor(r.Context()) {
		writeError(w, r, http.StatusForbidden, "Solo los tutores pueden responder citas")
		return
	}
	var req appointments.Response
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := a.appts.Respond(r.Context(), tutorID, id, req)
	if err != nil {
		handleSchedulingError(w, r, err)
		return
	}
	mensaje := "Cita confirmada"
	if appt.State == appointments.StateRejected {
		mensaje = "Cita rechazada"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje": mensaje,
		"estado":  appt.State,
		"cita":    appt,
	})
}

func (a *SchedulingAPI) cancel(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	id, err := parseID(rawID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	appt, err := a.appts.Cancel(r.Context(), callerID, id)
	if err != nil {
		handleSchedulingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje": "Cita cancelada",
		"estado":  appt.State,
	})
}

func (a *SchedulingAPI) complete(w http.ResponseWriter, r *http.Request, rawID string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	id, err := parseID(rawID)
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	tutorID, ok := caller(w, r)
	if !ok {
		return
	}
	if !auth.IsTutor(r.Context()) {
		writeError(w, r, http.StatusForbidden, "Solo los tutores pueden completar citas")
		return
	}
	var req struct {
		Notes string `json:"notas"`
	}
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errBodyRequired) {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := a.appts.Complete(r.Context(), tutorID, id, req.Notes)
	if err != nil {
		handleSchedulingError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje": "Cita completada",
		"estado":  appt.State,
	})
}

func handleSchedulingError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, appointments.ErrSlotTaken):
		writeError(w, r, http.StatusBadRequest, "Ya existe una cita pendiente para esa fecha y hora")
	case errors.Is(err, appointments.ErrInvalidTransition):
		writeError(w, r, http.StatusBadRequest, "La cita ya fue procesada")
	case errors.Is(err, appointments.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "No tienes permiso sobre esta cita")
	case errors.Is(err, appointments.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Cita no encontrada")
	case errors.Is(err, appointments.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrUnavailable):
		writeError(w, r, http.StatusServiceUnavailable, "servicio de usuarios no disponible")
	default:
		writeError(w, r, http.StatusInternalServerError, "error interno")
	}
}
