package main

import (
	"log"

	"github.com/joho/godotenv"

	corecmd "github.com/m3rciful/kinobot/core/cmd"
	"github.com/m3rciful/kinobot/internal/app"
)

func main() {
	// Missing .env is fine; real deployments inject the environment.
	_ = godotenv.Load()

	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return app.Load(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.New(cfg.(*app.Config))
		},
	})
	if err != nil {
		log.Fatalf("kinobot: %v", err)
	}
}
