// Package config resolves service configuration from the environment with
// the fixed localhost port assignments used in development. The resulting
// Config is built once in main and passed down explicitly; nothing in this
// package is global.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Fixed development port map, one per service.
const (
	PortGateway       = 5000
	PortAuth          = 5001
	PortIdentity      = 5002
	PortFiles         = 5003
	PortAppointments  = 5004
	PortNotifications = 5005
)

// Config carries everything a service binary needs at startup.
type Config struct {
	Service    string
	ListenAddr string

	// PostgresDSN is empty when the service runs against in-memory stores
	// (tests, demos).
	PostgresDSN string

	// AuthSecret signs and verifies bearer tokens. Shared by all services.
	AuthSecret string
	TokenTTL   time.Duration

	// UploadDir is where the submission service keeps binaries.
	UploadDir string

	// Registry maps logical service names to base URLs for cross-service
	// calls and gateway routing.
	Registry Registry
}

// Registry maps a logical service name to its base address.
type Registry map[string]string

// Known logical service names.
const (
	ServiceGateway       = "gateway"
	ServiceAuth          = "auth"
	ServiceUsers         = "users"
	ServiceFiles         = "files"
	ServiceAppointments  = "appointments"
	ServiceNotifications = "notifications"
)

// Load builds the Config for the named service from environment variables,
// falling back to the localhost defaults.
func Load(service string, port int) Config {
	return Config{
		Service:     service,
		ListenAddr:  getenv("TUTORIA_LISTEN_ADDR", fmt.Sprintf(":%d", port)),
		PostgresDSN: os.Getenv("TUTORIA_PG_DSN"),
		AuthSecret:  os.Getenv("TUTORIA_AUTH_SECRET"),
		TokenTTL:    tokenTTL(),
		UploadDir:   getenv("TUTORIA_UPLOAD_DIR", "./uploads"),
		Registry:    LoadRegistry(),
	}
}

// LoadRegistry resolves every peer base URL. Environment overrides use the
// service name upper-cased, e.g. USERS_SERVICE=http://users:5002.
func LoadRegistry() Registry {
	return Registry{
		ServiceAuth:          getenv("AUTH_SERVICE", baseURL(PortAuth)),
		ServiceUsers:         getenv("USERS_SERVICE", baseURL(PortIdentity)),
		ServiceFiles:         getenv("FILES_SERVICE", baseURL(PortFiles)),
		ServiceAppointments:  getenv("APPOINTMENTS_SERVICE", baseURL(PortAppointments)),
		ServiceNotifications: getenv("NOTIFICATIONS_SERVICE", baseURL(PortNotifications)),
	}
}

// Lookup returns the base URL for a logical service name.
func (r Registry) Lookup(service string) (string, bool) {
	base, ok := r[service]
	return base, ok
}

func baseURL(port int) string {
	return fmt.Sprintf("http://localhost:%d", port)
}

func tokenTTL() time.Duration {
	raw := strings.TrimSpace(os.Getenv("TUTORIA_TOKEN_TTL_HOURS"))
	if raw == "" {
		return 24 * time.Hour
	}
	hours, err := strconv.Atoi(raw)
	if err != nil || hours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(hours) * time.Hour
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
