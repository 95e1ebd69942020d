package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/config"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/logging"
	"github.com/ChristianVaughn/GeoGuessrDesktop/internal/server"
)

func main() {
	// Optional .env next to the binary; real env still wins.
	_ = godotenv.Load()

	port := flag.String("port", "", "Override listen port")
	dataDir := flag.String("data-dir", "", "Override data directory")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dataDir != "" {
		cfg.Storage.DataDir = *dataDir
	}

	var logger *logging.Logger
	if *dev || cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger, err = logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: false,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			log.Fatalf("Failed to create logger: %v", err)
		}
	}
	defer logger.Sync()

	srv, err := server.NewServer(*cfg, logger, server.NewLoggingShell(logger))
	if err != nil {
		logger.Fatal("Failed to create server: " + err.Error())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("Shutting down gracefully")
		if err := srv.Close(); err != nil {
			logger.Warn("Error during shutdown: " + err.Error())
		}
	case err := <-errChan:
		logger.Fatal("Server error: " + err.Error())
	}
}
