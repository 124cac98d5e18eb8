package main

import (
	"github.com/wfunc/townserver/config"
	"github.com/wfunc/townserver/logger"
	"github.com/wfunc/townserver/persistence"
	"github.com/wfunc/townserver/server"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load configuration
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	db, err := persistence.NewGormPostgreSQL(
		cfg.Database.Postgres.Host,
		cfg.Database.Postgres.Port,
		cfg.Database.Postgres.User,
		cfg.Database.Postgres.Password,
		cfg.Database.Postgres.DBName,
	)
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Info("Database connection successful.")

	// Initialize Town Server
	townServer := server.NewTownServer(cfg, db)

	// Start Server
	logger.Log.Infof("Starting town server on %s", cfg.Server.HTTPAddress)
	if err := townServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
