package main

import (
	"log"

	"github.com/joho/godotenv"

	"tutoria.org/internal/auth"
	"tutoria.org/internal/config"
	"tutoria.org/internal/httpapi"
	"tutoria.org/internal/identity"
	"tutoria.org/internal/obs"
	"tutoria.org/internal/server"
	"tutoria.org/internal/store/pg"
)

var version = "1.0.0"

func main() {
	_ = godotenv.Load()
	obs.Init()
	obs.InitBuildInfo(config.ServiceAuth, version)

	cfg := config.Load(config.ServiceAuth, config.PortAuth)

	var accounts auth.Accounts
	if cfg.PostgresDSN != "" {
		db, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()
		accounts = db.Accounts()
	} else {
		log.Println("TUTORIA_PG_DSN not set; running on in-memory store")
		accounts = identity.NewMemoryStore()
	}

	api := httpapi.NewCredentialAPI(auth.NewService(accounts, cfg.TokenTTL), version)
	server.Run(cfg, version, api.Handler())
}
