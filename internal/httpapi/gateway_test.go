package httpapi

import (
	"net/http"
	"testing"

	"tutoria.org/internal/config"
	"tutoria.org/internal/identity"
)

func TestGatewayProxyRoundTrip(t *testing.T) {
	e := newEnv(t)

	// Register through the gateway, Spanish segment.
	resp := e.do(http.MethodPost, e.gateway.URL+"/api/usuarios/", identity.NewAccount{
		Name:     "Dr. Antonio López",
		Email:    "tutor@usal.es",
		Username: "tutor1",
		Password: "tutor123",
		Role:     identity.RoleTutor,
	}, "")
	wantStatus(t, resp, http.StatusCreated)
	created := decode[struct {
		UserID int64 `json:"usuario_id"`
	}](t, resp)
	if created.UserID == 0 {
		t.Fatal("missing usuario_id")
	}

	// Login through the gateway and use the token on a proxied protected
	// route. The auth header must pass through untouched.
	resp = e.do(http.MethodPost, e.gateway.URL+"/api/auth/login", map[string]string{
		"username": "tutor1",
		"password": "tutor123",
	}, "")
	wantStatus(t, resp, http.StatusOK)
	session := decode[struct {
		Token string `json:"access_token"`
	}](t, resp)

	resp = e.do(http.MethodGet, e.gateway.URL+"/api/citas/pendientes/1", nil, session.Token)
	wantStatus(t, resp, http.StatusOK)
	resp.Body.Close()

	// Downstream business errors pass through verbatim.
	resp = e.do(http.MethodGet, e.gateway.URL+"/api/usuarios/999", nil, "")
	wantStatus(t, resp, http.StatusNotFound)
	body := decode[map[string]any](t, resp)
	if body["detail"] != "Usuario no encontrado" {
		t.Fatalf("unexpected detail: %v", body["detail"])
	}
}

func TestGatewayUnknownService(t *testing.T) {
	e := newEnv(t)

	resp := e.do(http.MethodGet, e.gateway.URL+"/api/inventado/cosas", nil, "")
	wantStatus(t, resp, http.StatusBadGateway)
	resp.Body.Close()
}

func TestGatewayDeadBackend(t *testing.T) {
	e := newEnv(t)
	e.servers[config.ServiceFiles].Close()

	resp := e.do(http.MethodGet, e.gateway.URL+"/api/archivos/estudiante/1", nil, "")
	wantStatus(t, resp, http.StatusServiceUnavailable)
	body := decode[map[string]any](t, resp)
	if body["detail"] != "servicio files no disponible" {
		t.Fatalf("unexpected detail: %v", body["detail"])
	}
}

func TestGatewayHealthAggregation(t *testing.T) {
	e := newEnv(t)

	resp := e.do(http.MethodGet, e.gateway.URL+"/api/health", nil, "")
	wantStatus(t, resp, http.StatusOK)
	health := decode[struct {
		State    string `json:"estado"`
		Services []struct {
			Service string `json:"servicio"`
			State   string `json:"estado"`
		} `json:"servicios"`
	}](t, resp)
	if health.State != "operativo" {
		t.Fatalf("estado = %q, want operativo", health.State)
	}
	if len(health.Services) != 5 {
		t.Fatalf("servicios = %d, want 5", len(health.Services))
	}

	// One dead service degrades the whole system.
	e.servers[config.ServiceNotifications].Close()
	resp = e.do(http.MethodGet, e.gateway.URL+"/api/health", nil, "")
	wantStatus(t, resp, http.StatusOK)
	degraded := decode[struct {
		State    string `json:"estado"`
		Services []struct {
			Service string `json:"servicio"`
			State   string `json:"estado"`
		} `json:"servicios"`
	}](t, resp)
	if degraded.State != "degradado" {
		t.Fatalf("estado = %q, want degradado", degraded.State)
	}
	for _, svc := range degraded.Services {
		want := "activo"
		if svc.Service == config.ServiceNotifications {
			want = "inactivo"
		}
		if svc.State != want {
			t.Errorf("servicio %s: estado %q, want %q", svc.Service, svc.State, want)
		}
	}
}

func TestGatewayLocalEndpoints(t *testing.T) {
	e := newEnv(t)

	resp := e.do(http.MethodGet, e.gateway.URL+"/api/services", nil, "")
	wantStatus(t, resp, http.StatusOK)
	catalog := decode[struct {
		Services []map[string]string `json:"servicios"`
	}](t, resp)
	if len(catalog.Services) != 5 {
		t.Fatalf("servicios = %d, want 5", len(catalog.Services))
	}

	resp = e.do(http.MethodPost, e.gateway.URL+"/api/logout", nil, "")
	wantStatus(t, resp, http.StatusOK)
	out := decode[map[string]any](t, resp)
	if out["mensaje"] != "Sesión cerrada exitosamente" {
		t.Fatalf("unexpected logout payload: %v", out)
	}
}
