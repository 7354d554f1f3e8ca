package main

import (
	"log"

	"github.com/joho/godotenv"

	"tutoria.org/internal/config"
	"tutoria.org/internal/files"
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
	obs.InitBuildInfo(config.ServiceFiles, version)

	cfg := config.Load(config.ServiceFiles, config.PortFiles)

	var store files.Store
	if cfg.PostgresDSN != "" {
		db, err := pg.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer db.Close()
		store = db.Submissions()
	} else {
		log.Println("TUTORIA_PG_DSN not set; running on in-memory store")
		store = files.NewMemoryStore()
	}

	blobs, err := files.NewDiskBlobStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("blob store: %v", err)
	}

	directory := identity.NewClient(cfg.Registry[config.ServiceUsers])
	sink := notify.NewClient(config.ServiceFiles, cfg.Registry[config.ServiceNotifications])

	api := httpapi.NewSubmissionAPI(files.NewService(store, blobs, directory, sink), version)
	server.Run(cfg, version, api.Handler())
}
