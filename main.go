package main

import (
	log "github.com/sirupsen/logrus"

	"github.com/printforge/teepress/config"
	"github.com/printforge/teepress/service"
)

func main() {
	cfg, err := config.InitConfig("./config/config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	teeService := service.NewService(cfg)

	if err := teeService.StartService(); err != nil {
		log.Fatalf("failed to start tee service: %v", err)
	}
}
