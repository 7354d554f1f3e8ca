package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"tutoria.org/internal/config"
)

const (
	proxyTimeout  = 30 * time.Second
	healthTimeout = 2 * time.Second
)

// Gateway is the single public entry point. It routes /api/{servicio}/...
// to the owning service, aggregates health, and answers a few endpoints
// locally. Everything else about a request passes through untouched, so
// downstream error bodies reach the client verbatim.
type Gateway struct {
	mux      *http.ServeMux
	registry config.Registry
	client   *http.Client
	probe    *http.Client
	version  string
}

// Spanish public path segments mapped onto the logical service names of
// the registry. The English names work too.
var serviceAliases = map[string]string{
	"auth":           config.ServiceAuth,
	"usuarios":       config.ServiceUsers,
	"users":          config.ServiceUsers,
	"archivos":       config.ServiceFiles,
	"files":          config.ServiceFiles,
	"citas":          config.ServiceAppointments,
	"appointments":   config.ServiceAppointments,
	"notificaciones": config.ServiceNotifications,
	"notifications":  config.ServiceNotifications,
}

func NewGateway(registry config.Registry, version string) *Gateway {
	g := &Gateway{
		mux:      http.NewServeMux(),
		registry: registry,
		client:   &http.Client{Timeout: proxyTimeout},
		probe:    &http.Client{Timeout: healthTimeout},
		version:  version,
	}
	mountCommon(g.mux, config.ServiceGateway, version)
	g.mux.HandleFunc("/api/health", g.handleHealth)
	g.mux.HandleFunc("/api/services", g.handleServices)
	g.mux.HandleFunc("/api/logout", g.handleLogout)
	g.mux.HandleFunc("/api/", g.handleProxy)
	return g
}

func (g *Gateway) Handler() http.Handler {
	return Chain(config.ServiceGateway, RateLimit(g.mux, 40, 20))
}

// handleProxy forwards /api/{servicio}/{rest} to the owning service as
// {base}/{rest}, passing method, query, body and the auth header through.
func (g *Gateway) handleProxy(w http.ResponseWriter, r *http.Request) {
	segment, rest, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/api/"), "/")
	name, ok := serviceAliases[segment]
	if !ok {
		writeError(w, r, http.StatusBadGateway, "servicio desconocido: "+segment)
		return
	}
	base, ok := g.registry.Lookup(name)
	if !ok {
		writeError(w, r, http.StatusBadGateway, "servicio desconocido: "+segment)
		return
	}

	target := base + "/" + rest
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
	if err != nil {
		writeError(w, r, http.StatusBadGateway, "petición inválida")
		return
	}
	copyHeader(req.Header, r.Header, "Content-Type", authHeader, "X-Request-ID")
	req.ContentLength = r.ContentLength

	resp, err := g.client.Do(req)
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, "servicio "+name+" no disponible")
		return
	}
	defer resp.Body.Close()

	copyHeader(w.Header(), resp.Header, "Content-Type", "Content-Disposition")
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}

func copyHeader(dst, src http.Header, keys ...string) {
	for _, k := range keys {
		if v := src.Get(k); v != "" {
			dst.Set(k, v)
		}
	}
}

type serviceHealth struct {
	Service string `json:"servicio"`
	State   string `json:"estado"`
	Detail  any    `json:"detalles,omitempty"`
}

// handleHealth probes every registered service concurrently. The overall
// estado is operativo only when all of them answer.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}

	names := make([]string, 0, len(g.registry))
	for name := range g.registry {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]serviceHealth, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = g.probeService(r.Context(), name)
		}(i, name)
	}
	wg.Wait()

	estado := "operativo"
	for _, res := range results {
		if res.State != "activo" {
			estado = "degradado"
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gateway":   "activo",
		"estado":    estado,
		"servicios": results,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (g *Gateway) probeService(ctx context.Context, name string) serviceHealth {
	base, _ := g.registry.Lookup(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/health", nil)
	if err != nil {
		return serviceHealth{Service: name, State: "inactivo"}
	}
	resp, err := g.probe.Do(req)
	if err != nil {
		return serviceHealth{Service: name, State: "inactivo"}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return serviceHealth{Service: name, State: "error"}
	}
	health := serviceHealth{Service: name, State: "activo"}
	if detail, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10)); err == nil && len(detail) > 0 {
		health.Detail = json.RawMessage(detail)
	}
	return health
}

func (g *Gateway) handleServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	catalog := make([]map[string]string, 0, len(g.registry))
	names := make([]string, 0, len(g.registry))
	for name := range g.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		base, _ := g.registry.Lookup(name)
		catalog = append(catalog, map[string]string{
			"servicio": name,
			"url":      base,
			"salud":    base + "/health",
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"gateway":   "Sistema de Tutorías",
		"version":   g.version,
		"servicios": catalog,
	})
}

// handleLogout answers locally. Tokens are stateless; the session ends
// when the client drops its copy.
func (g *Gateway) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mensaje": "Sesión cerrada exitosamente",
	})
}
