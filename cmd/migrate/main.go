// Command migrate applies the schema to the configured database. Production
// deployments run this explicitly; development connections migrate on start.
package main

import (
	"log"

	"myfeed/internal/config"
	"myfeed/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Schema migration completed")
}
