package main

import (
	"context"
	"log"

	"ai-counseling-be/internal/bootstrap"
	"ai-counseling-be/internal/config"
	"ai-counseling-be/internal/server"
	"ai-counseling-be/internal/tracer"
	"ai-counseling-be/pkg/database"
)

func main() {
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	cfg := config.Load()

	gormDB, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Panicf("Unable to connect to GORM DB: %v", err)
	}

	// Startup reconciliation runs inside the container; traffic is not
	// served until it completes.
	container, err := bootstrap.NewContainer(gormDB, cfg)
	if err != nil {
		log.Panicf("Bootstrap failed: %v", err)
	}

	go func() {
		log.Println("Background: Starting Consumer Service...")
		if err := container.ConsumerService.Consume(context.Background()); err != nil {
			log.Printf("Background Consumer Error: %v", err)
		}
	}()

	srv := server.New(cfg, container)

	log.Fatal(srv.Run())
}
