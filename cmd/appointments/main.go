package main

import (
	"log"

	"github.com/joho/godotenv"

	"tutoria.org/internal/appointments"
	"tutoria.org/internal/config"
	"tutoria.org/internal/httpapi"
	"tutoria.org/internal/identity"
	"tutoria.org/internal/notify"
	"tutoria.org/internal/obs"
	"tutoria.org/internal/server"
	"tutoria.org/internal/store/pg"
)

var version = "1.0.0"

func main() {
	_ = godotenv.Load()
	obs.Init()
	obs.InitBuildInfo(config.ServiceAppointments, version)

	cfg := config.Load(config.ServiceAppointments, config.PortAppointments)

	var store appointments.Store
	if cfg.PostgresDSN != "" {
		db, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()
		store = db.Appointments()
	} else {
		log.Println("TUTORIA_PG_DSN not set; running on in-memory store")
		store = appointments.NewMemoryStore()
	}

	directory := identity.NewClient(cfg.Registry[config.ServiceUsers])
	sink := notify.NewClient(config.ServiceAppointments, cfg.Registry[config.ServiceNotifications])

	api := httpapi.NewSchedulingAPI(appointments.NewService(store, directory, sink), version)
	server.Run(cfg, version, api.Handler())
}
