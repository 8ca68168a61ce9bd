package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cafes/cmd"
	"cafes/internal/api"
	"cafes/internal/db"

	"github.com/gin-gonic/gin"
)

// version is set at build time via -ldflags
var version = "dev"

func main() {
	// Parse CLI flags
	config, err := cmd.ParseFlags(version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if config.ShowVersion {
		fmt.Println("cafes", config.Version)
		return
	}
	if config.APIKey == "" {
		fmt.Fprintln(os.Stderr, "ℹ  No API key configured — DELETE /report-closed will always answer 404")
	}

	logger := log.Default()
	gin.SetMode(gin.ReleaseMode)

	// Open database
	database, err := db.Open(config.DBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	store := db.NewStore(database)

	if config.SeedPath != "" {
		cafes, err := db.LoadSeedFile(config.SeedPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load seed: %v\n", err)
			os.Exit(1)
		}
		n, err := store.Seed(context.Background(), cafes)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to seed database: %v\n", err)
			os.Exit(1)
		}
		logger.Printf("cafes: seeded %d cafes", n)
	}

	srv := api.NewServer(store, api.ServerOptions{
		Addr:            config.Addr,
		APIKey:          config.APIKey,
		ShutdownTimeout: config.ShutdownTimeout,
		Logger:          logger,
	})
	srv.Start()

	// Handle shutdown signals
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	sig := <-signals
	logger.Printf("cafes: received signal %v, shutting down", sig)

	if err := srv.Stop(context.Background()); err != nil {
		logger.Printf("cafes: graceful shutdown error: %v", err)
	}
	logger.Printf("cafes: stopped")
}
