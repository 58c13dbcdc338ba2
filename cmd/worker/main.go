package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/simonkvalheim/hm9-ledger/internal/notify"
)

func main() {
	// Load configuration
	cfg := loadConfig()

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()

	// Test Redis connection
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	pingCancel()
	log.Println("Connected to Redis")

	// Initialize the notification feed worker
	worker := notify.NewWorker(redisClient)

	// Create context that cancels on shutdown signal
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutdown signal received, stopping worker...")
		cancel()
		worker.Stop()
	}()

	// Start the worker
	log.Println("Starting notification feed worker...")
	worker.Run(ctx)

	log.Println("Worker stopped")
}

// Config holds all configuration for the worker
type Config struct {
	RedisURL      string
	RedisPassword string
}

// loadConfig reads configuration from environment variables
func loadConfig() Config {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")

	return Config{
		RedisURL:      redisURL,
		RedisPassword: redisPassword,
	}
}
