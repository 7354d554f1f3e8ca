package main

import (
	"log"

	"github.com/joho/godotenv"

	"tutoria.org/internal/config"
	"tutoria.org/internal/httpapi"
	"tutoria.org/internal/identity"
	"tutoria.org/internal/notifications"
	"tutoria.org/internal/obs"
	"tutoria.org/internal/server"
	"tutoria.org/internal/store/pg"
)

var version = "1.0.0"

func main() {
	_ = godotenv.Load()
	obs.Init()
	obs.InitBuildInfo(config.ServiceNotifications, version)

	cfg := config.Load(config.ServiceNotifications, config.PortNotifications)

	var store notifications.Store
	if cfg.PostgresDSN != "" {
		db, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()
		store = db.Notifications()
	} else {
		log.Println("TUTORIA_PG_DSN not set; running on in-memory store")
		store = notifications.NewMemoryStore()
	}

	directory := identity.NewClient(cfg.Registry[config.ServiceUsers])

	api := httpapi.NewNotificationAPI(notifications.NewService(store, directory), version)
	server.Run(cfg, version, api.Handler())
}
