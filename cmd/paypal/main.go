package main

import (
	"log"

	"github.com/shestoi/paypal-adaptive/internal/app"
	"github.com/shestoi/paypal-adaptive/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	cfg.Log()

	// Build собирает граф зависимостей: PostgreSQL, PayPal клиент, HTTP API, outbox dispatcher
	application, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to build app: %v", err)
	}

	// Run блокируется до SIGINT/SIGTERM и graceful shutdown
	if err := application.Run(); err != nil {
		log.Fatalf("Service error: %v", err)
	}
}
