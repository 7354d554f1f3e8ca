package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"tutoria.org/internal/config"
	"tutoria.org/internal/files"
)

func (e *env) upload(token, filename string, content []byte) *http.Response {
	e.t.Helper()
	body, contentType := multipartFile(e.t, "file", filename, content)
	req, err := http.NewRequest(http.MethodPost, e.base(config.ServiceFiles)+"/subir", body)
	if err != nil {
		e.t.Fatal(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(authHeader, bearer+token)
	resp, err := e.client.Do(req)
	if err != nil {
		e.t.Fatalf("upload: %v", err)
	}
	return resp
}

func TestSubmissionLifecycle(t *testing.T) {
	e := newEnv(t)
	tutorID := e.registerTutor("Dr. Antonio López", "tutor1")
	studentID := e.registerStudent("Juan Pérez", "estudiante1", tutorID)
	studentToken := e.login("estudiante1", "estudiante123")
	tutorToken := e.login("tutor1", "tutor123")

	resp := e.upload(studentToken, "memoria.pdf", []byte("%PDF-1.4 contenido"))
	wantStatus(t, resp, http.StatusCreated)
	uploaded := decode[struct {
		FileID     int64  `json:"archivo_id"`
		StoredName string `json:"nombre_guardado"`
		Kind       string `json:"tipo"`
	}](t, resp)
	if uploaded.Kind != "pdf" {
		t.Fatalf("tipo = %q, want pdf", uploaded.Kind)
	}
	if !strings.HasPrefix(uploaded.StoredName, fmt.Sprintf("%d_", studentID)) {
		t.Fatalf("stored name %q not keyed by student", uploaded.StoredName)
	}

	// The assigned tutor got an inbox entry through the notify sink.
	resp = e.do(http.MethodGet, e.base(config.ServiceNotifications)+fmt.Sprintf("/usuario/%d", tutorID), nil, tutorToken)
	wantStatus(t, resp, http.StatusOK)
	inbox := decode[struct {
		Total int `json:"total"`
		Items []struct {
			Kind string `json:"tipo"`
			Icon string `json:"icono"`
		} `json:"notificaciones"`
	}](t, resp)
	if inbox.Total != 1 || inbox.Items[0].Kind != "archivo_nuevo" || inbox.Items[0].Icon != "📄" {
		t.Fatalf("unexpected tutor inbox: %+v", inbox)
	}

	// Tutors cannot upload; students cannot leave feedback.
	resp = e.upload(tutorToken, "apuntes.pdf", []byte("x"))
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()
	resp = e.do(http.MethodPost, e.base(config.ServiceFiles)+fmt.Sprintf("/%d/feedback", uploaded.FileID),
		files.Feedback{Text: "bien"}, studentToken)
	wantStatus(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = e.do(http.MethodPost, e.base(config.ServiceFiles)+fmt.Sprintf("/%d/feedback", uploaded.FileID),
		files.Feedback{Text: "Revisa la sección 3", State: files.StateNeedsChanges}, tutorToken)
	wantStatus(t, resp, http.StatusOK)
	fb := decode[struct {
		State string `json:"estado"`
	}](t, resp)
	if fb.State != files.StateNeedsChanges {
		t.Fatalf("estado = %q, want %q", fb.State, files.StateNeedsChanges)
	}

	resp = e.do(http.MethodGet, e.base(config.ServiceFiles)+fmt.Sprintf("/tutor/%d", tutorID), nil, tutorToken)
	wantStatus(t, resp, http.StatusOK)
	byTutor := decode[struct {
		Total  int            `json:"total"`
		Counts map[string]int `json:"por_estado"`
		Files  []struct {
			StudentName string `json:"estudiante_nombre"`
		} `json:"archivos"`
	}](t, resp)
	if byTutor.Total != 1 || byTutor.Counts[files.StateNeedsChanges] != 1 {
		t.Fatalf("unexpected tutor view: %+v", byTutor)
	}
	if byTutor.Files[0].StudentName != "Juan Pérez" {
		t.Fatalf("estudiante_nombre = %q", byTutor.Files[0].StudentName)
	}

	resp = e.do(http.MethodGet, e.base(config.ServiceFiles)+fmt.Sprintf("/%d/descargar", uploaded.FileID), nil, studentToken)
	wantStatus(t, resp, http.StatusOK)
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "memoria.pdf") {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	raw, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(raw) != "%PDF-1.4 contenido" {
		t.Fatalf("downloaded %q", raw)
	}

	resp = e.do(http.MethodDelete, e.base(config.ServiceFiles)+fmt.Sprintf("/%d", uploaded.FileID), nil, studentToken)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()
	resp = e.do(http.MethodGet, e.base(config.ServiceFiles)+fmt.Sprintf("/%d", uploaded.FileID), nil, studentToken)
	wantStatus(t, resp, http.StatusNotFound)
	resp.Body.Close()
}

func TestSubmissionUploadValidation(t *testing.T) {
	e := newEnv(t)
	tutorID := e.registerTutor("Dr. Antonio López", "tutor1")
	e.registerStudent("Juan Pérez", "estudiante1", tutorID)
	token := e.login("estudiante1", "estudiante123")

	resp := e.upload(token, "virus.exe", []byte("MZ"))
	wantStatus(t, resp, http.StatusBadRequest)
	body := decode[map[string]any](t, resp)
	if body["detail"] != "Solo se permiten archivos PDF o ZIP" {
		t.Fatalf("unexpected detail: %v", body["detail"])
	}

	// Missing multipart field.
	req, err := http.NewRequest(http.MethodPost, e.base(config.ServiceFiles)+"/subir", strings.NewReader("nada"))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.Header.Set(authHeader, bearer+token)
	resp, err = e.client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	wantStatus(t, resp, http.StatusBadRequest)
	resp.Body.Close()
}
