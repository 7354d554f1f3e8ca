package main

import (
	"github.com/joho/godotenv"

	"tutoria.org/internal/config"
	"tutoria.org/internal/httpapi"
	"tutoria.org/internal/obs"
	"tutoria.org/internal/server"
)

var version = "1.0.0"

func main() {
	_ = godotenv.Load()
	obs.Init()
	obs.InitBuildInfo(config.ServiceGateway, version)

	cfg := config.Load(config.ServiceGateway, config.PortGateway)
	gw := httpapi.NewGateway(cfg.Registry, version)
	server.Run(cfg, version, gw.Handler())
}
