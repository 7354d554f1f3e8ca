package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"tutoria.org/internal/config"
	"tutoria.org/internal/notifications"
	"tutoria.org/internal/notify"
)

// NotificationAPI serves the per-user notification inbox. The create
// endpoint is public: peer services fire notifications without carrying a
// user token, the same way they resolve accounts through the directory.
type NotificationAPI struct {
	mux   *http.ServeMux
	inbox *notifications.Service
}

func NewNotificationAPI(inbox *notifications.Service, version string) *NotificationAPI {
	a := &NotificationAPI{
		mux:   http.NewServeMux(),
		inbox: inbox,
	}
	mountCommon(a.mux, config.ServiceNotifications, version)
	a.mux.HandleFunc("/usuario/", a.handleUser)
	a.mux.HandleFunc("/contador/", a.handleCounter)
	a.mux.HandleFunc("/resumen/", a.handleSummary)
	a.mux.HandleFunc("/difusion", a.handleBroadcast)
	a.mux.HandleFunc("/", a.handleRoot)
	return a
}

func (a *NotificationAPI) Handler() http.Handler {
	return Chain(config.ServiceNotifications, WithAuth(a.mux, "/"))
}

func (a *NotificationAPI) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/" {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.create(w, r)
		return
	}

	if rest, ok := strings.CutSuffix(strings.TrimPrefix(r.URL.Path, "/"), "/leer"); ok {
		id, err := parseID(rest)
		if err != nil {
			writeError(w, r, http.StatusNotFound, "recurso no encontrado")
			return
		}
		a.markRead(w, r, id)
		return
	}

	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	a.delete(w, r, id)
}

func (a *NotificationAPI) create(w http.ResponseWriter, r *http.Request) {
	var msg notify.Message
	if err := decodeJSON(w, r, &msg); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	n, err := a.inbox.Create(r.Context(), msg)
	if err != nil {
		handleNotificationsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"mensaje":         "Notificación creada",
		"notificacion_id": n.ID,
		"tipo":            n.Kind,
	})
}

// handleUser serves the /usuario/{id} subtree: the inbox listing plus the
// leer-todas and purgar bulk actions.
func (a *NotificationAPI) handleUser(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/usuario/")

	if rest, ok := strings.CutSuffix(path, "/leer-todas"); ok {
		id, err := parseID(rest)
		if err != nil {
			writeError(w, r, http.StatusNotFound, "recurso no encontrado")
			return
		}
		a.markAllRead(w, r, id)
		return
	}
	if rest, ok := strings.CutSuffix(path, "/purgar"); ok {
		id, err := parseID(rest)
		if err != nil {
			writeError(w, r, http.StatusNotFound, "recurso no encontrado")
			return
		}
		a.purge(w, r, id)
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
	limit, err := parsePositiveInt(r.URL.Query().Get("limite"), notifications.DefaultListLimit, 1, 200)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	views, err := a.inbox.ListFor(r.Context(), id, parseBool(r.URL.Query().Get("no_leidas")), limit)
	if err != nil {
		handleNotificationsError(w, r, err)
		return
	}
	if views == nil {
		views = []notifications.View{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"usuario_id":     id,
		"notificaciones": views,
		"total":          len(views),
	})
}

func (a *NotificationAPI) handleCounter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/contador/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	unread, err := a.inbox.UnreadCount(r.Context(), id)
	if err != nil {
		handleNotificationsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"usuario_id": id,
		"no_leidas":  unread,
	})
}

func (a *NotificationAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id, err := parseID(strings.TrimPrefix(r.URL.Path, "/resumen/"))
	if err != nil {
		writeError(w, r, http.StatusNotFound, "recurso no encontrado")
		return
	}
	summary, err := a.inbox.SummaryFor(r.Context(), id)
	if err != nil {
		handleNotificationsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *NotificationAPI) markRead(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := a.inbox.MarkRead(r.Context(), callerID, id)
	if err != nil {
		handleNotificationsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":         "Notificación marcada como leída",
		"notificacion_id": n.ID,
	})
}

func (a *NotificationAPI) markAllRead(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	updated, err := a.inbox.MarkAllRead(r.Context(), id)
	if err != nil {
		handleNotificationsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":      "Todas las notificaciones marcadas como leídas",
		"actualizadas": updated,
	})
}

func (a *NotificationAPI) delete(w http.ResponseWriter, r *http.Request, id int64) {
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	if err := a.inbox.Delete(r.Context(), callerID, id); err != nil {
		handleNotificationsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":         "Notificación eliminada",
		"notificacion_id": id,
	})
}

func (a *NotificationAPI) purge(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	removed, err := a.inbox.Purge(r.Context(), id, parseBool(r.URL.Query().Get("solo_leidas")))
	if err != nil {
		handleNotificationsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":    "Notificaciones eliminadas",
		"eliminadas": removed,
	})
}

func (a *NotificationAPI) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	callerID, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		Body string `json:"mensaje"`
		Kind string `json:"tipo"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	delivered, err := a.inbox.Broadcast(r.Context(), req.Body, req.Kind, &callerID)
	if err != nil {
		handleNotificationsError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje":    "Difusión enviada",
		"entregadas": delivered,
	})
}

func handleNotificationsError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, notifications.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "Notificación no encontrada")
	case errors.Is(err, notifications.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "La notificación pertenece a otro usuario")
	case errors.Is(err, notifications.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "error interno")
	}
}
