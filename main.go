// @title Photo Caption Service
// @version 0.1
// @description Accepts JPEG uploads, stores them in object storage and derives a title/description for each image.

// @host localhost:8080
// @BasePath /
// @schemes http

package main

import (
	"log"

	"vkozyrev/photocaption/internal/app"
	"vkozyrev/photocaption/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	app.Run(cfg)
}
