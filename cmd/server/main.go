package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/soundfilter/internal/server"
	"github.com/dmitrijs2005/soundfilter/internal/server/config"
	"github.com/joho/godotenv"
)

func main() {

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.LoadConfig()
	app, err := server.NewApp(ctx, cfg)

	if err != nil {
		log.Printf("%v", err)
		return
	}

	app.Run(ctx)

}
