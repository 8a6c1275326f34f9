package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"flashsale-backend/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system environment variables")
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	logger.Init(env)

	deps, err := initializeDependencies()
	if err != nil {
		log.Fatalf("failed to initialize worker dependencies: %v", err)
	}
	defer deps.Cleanup()

	srv := setupAsynqServer(deps)
	scheduler := setupScheduler(deps)

	waitForShutdown(srv, scheduler)
}

func waitForShutdown(srv *asynqServer, scheduler *workerScheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down", nil)
	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info("worker stopped", nil)
}
