package httpapi

import (
	"fmt"
	"net/http"
	"testing"

	"tutoria.org/internal/config"
	"tutoria.org/internal/notify"
)

func TestNotificationInboxFlow(t *testing.T) {
	e := newEnv(t)
	tutorID := e.registerTutor("Dr. Antonio López", "tutor1")
	studentID := e.registerStudent("Juan Pérez", "estudiante1", tutorID)
	studentToken := e.login("estudiante1", "estudiante123")

	// Producers post without a token, like the notify sinks do.
	for i, kind := range []string{"feedback_nuevo", "tipo_inventado"} {
		resp := e.do(http.MethodPost, e.base(config.ServiceNotifications)+"/", notify.Message{
			Kind:        kind,
			RecipientID: studentID,
			SenderID:    &tutorID,
			Body:        fmt.Sprintf("mensaje %d", i),
		}, "")
		wantStatus(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	resp := e.do(http.MethodGet, e.base(config.ServiceNotifications)+fmt.Sprintf("/usuario/%d", studentID), nil, studentToken)
	wantStatus(t, resp, http.StatusOK)
	inbox := decode[struct {
		Total int `json:"total"`
		Items []struct {
			ID         int64  `json:"id"`
			Kind       string `json:"tipo"`
			Icon       string `json:"icono"`
			SenderName string `json:"origen_nombre"`
		} `json:"notificaciones"`
	}](t, resp)
	if inbox.Total != 2 {
		t.Fatalf("total = %d, want 2", inbox.Total)
	}
	kinds := map[string]bool{}
	for _, n := range inbox.Items {
		kinds[n.Kind] = true
		if n.SenderName != "Dr. Antonio López" {
			t.Fatalf("origen_nombre = %q", n.SenderName)
		}
	}
	// The unknown kind was coerced to sistema.
	if !kinds["feedback_nuevo"] || !kinds["sistema"] {
		t.Fatalf("unexpected kinds: %v", kinds)
	}

	first := inbox.Items[0].ID
	resp = e.do(http.MethodPut, e.base(config.ServiceNotifications)+fmt.Sprintf("/%d/leer", first), nil, studentToken)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// Someone else cannot read or delete it.
	tutorToken := e.login("tutor1", "tutor123")
	resp = e.do(http.MethodPut, e.base(config.ServiceNotifications)+fmt.Sprintf("/%d/leer", first), nil, tutorToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
	resp = e.do(http.MethodDelete, e.base(config.ServiceNotifications)+fmt.Sprintf("/%d", first), nil, tutorToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = e.do(http.MethodGet, e.base(config.ServiceNotifications)+fmt.Sprintf("/usuario/%d?no_leidas=true", studentID), nil, studentToken)
	wantStatus(t, resp, http.StatusOK)
	unread := decode[struct {
		Total int `json:"total"`
	}](t, resp)
	if unread.Total != 1 {
		t.Fatalf("unread total = %d, want 1", unread.Total)
	}

	resp = e.do(http.MethodPut, e.base(config.ServiceNotifications)+fmt.Sprintf("/usuario/%d/leer-todas", studentID), nil, studentToken)
	wantStatus(t, resp, http.StatusOK)
	marked := decode[map[string]any](t, resp)
	if marked["actualizadas"] != float64(1) {
		t.Fatalf("actualizadas = %v, want 1", marked["actualizadas"])
	}

	resp = e.do(http.MethodGet, e.base(config.ServiceNotifications)+fmt.Sprintf("/resumen/%d", studentID), nil, studentToken)
	wantStatus(t, resp, http.StatusOK)
	summary := decode[struct {
		Total  int            `json:"total"`
		Unread int            `json:"no_leidas"`
		ByKind map[string]int `json:"por_tipo"`
	}](t, resp)
	if summary.Total != 2 || summary.Unread != 0 || summary.ByKind["sistema"] != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}

	resp = e.do(http.MethodDelete, e.base(config.ServiceNotifications)+fmt.Sprintf("/usuario/%d/purgar?solo_leidas=si", studentID), nil, studentToken)
	wantStatus(t, resp, http.StatusOK)
	purged := decode[map[string]any](t, resp)
	if purged["eliminadas"] != float64(2) {
		t.Fatalf("eliminadas = %v, want 2", purged["eliminadas"])
	}
}

func TestNotificationBroadcast(t *testing.T) {
	e := newEnv(t)
	tutorID := e.registerTutor("Dr. Antonio López", "tutor1")
	studentID := e.registerStudent("Juan Pérez", "estudiante1", tutorID)
	e.registerStudent("María García", "estudiante2", tutorID)
	tutorToken := e.login("tutor1", "tutor123")

	resp := e.do(http.MethodPost, e.base(config.ServiceNotifications)+"/difusion",
		map[string]string{"mensaje": "Mañana no hay tutorías"}, tutorToken)
	wantStatus(t, resp, http.StatusOK)
	sent := decode[map[string]any](t, resp)
	// The sender is skipped.
	if sent["entregadas"] != float64(2) {
		t.Fatalf("entregadas = %v, want 2", sent["entregadas"])
	}

	// A broadcast may carry its own tipo.
	resp = e.do(http.MethodPost, e.base(config.ServiceNotifications)+"/difusion",
		map[string]string{"mensaje": "Agenda de citas actualizada", "tipo": "cita_nueva"}, tutorToken)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	studentToken := e.login("estudiante1", "estudiante123")
	resp = e.do(http.MethodGet, e.base(config.ServiceNotifications)+fmt.Sprintf("/usuario/%d", studentID), nil, studentToken)
	wantStatus(t, resp, http.StatusOK)
	inbox := decode[struct {
		Items []struct {
			Kind string `json:"tipo"`
			Body string `json:"mensaje"`
		} `json:"notificaciones"`
	}](t, resp)
	if len(inbox.Items) != 2 || inbox.Items[0].Kind != "cita_nueva" {
		t.Fatalf("unexpected inbox: %+v", inbox.Items)
	}

	resp = e.do(http.MethodPost, e.base(config.ServiceNotifications)+"/difusion",
		map[string]string{"mensaje": "  "}, tutorToken)
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}

func TestNotificationCreateValidation(t *testing.T) {
	e := newEnv(t)

	resp := e.do(http.MethodPost, e.base(config.ServiceNotifications)+"/", notify.Message{
		Kind: "sistema",
		Body: "sin destinatario",
	}, "")
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}
