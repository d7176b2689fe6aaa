package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"example.com/sqliteblog/cmd/server"
	"example.com/sqliteblog/cmd/worker"
	appkafka "example.com/sqliteblog/internal/broker"
	config "example.com/sqliteblog/internal/init"
	"example.com/sqliteblog/internal/logger"
	"example.com/sqliteblog/internal/store"
	"github.com/joho/godotenv"
)

func main() {
	// Local .env is optional; real environment variables win
	_ = godotenv.Load()

	// Initialize application configuration
	cfg := config.Init()
	logger.SetLevel(cfg.LogLevel)
	mode := cfg.Mode

	// Open the SQLite database and apply migrations
	st, err := store.New()
	if err != nil {
		log.Fatalf("SQLite open failed: %v", err)
	}
	defer st.Close()

	// Post events go to Kafka only when enabled
	kafkaCfg := appkafka.ConfigFrom(cfg)

	var kafkaWriter appkafka.KafkaWriter = appkafka.NopWriter{}
	var kafkaReader appkafka.KafkaReader

	switch {
	case mode == "server" && cfg.KafkaEnabled:
		w, err := appkafka.NewEventWriter(kafkaCfg)
		if err != nil {
			log.Fatalf("Kafka writer init failed: %v", err)
		}
		kafkaWriter = w
		defer kafkaWriter.Close()
	case mode == "worker":
		if !cfg.KafkaEnabled {
			log.Fatal("worker mode requires KAFKA_ENABLED=true")
		}
		kafkaReader, err = appkafka.NewEventReader(kafkaCfg)
		if err != nil {
			log.Fatalf("Kafka reader init failed: %v", err)
		}
	}

	// Setup OS signal handling for graceful shutdown (SIGINT, SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch mode {
	case "server":
		if err := server.Run(ctx, st, kafkaWriter, cfg); err != nil {
			log.Printf("server stopped with error: %v", err)
		}
	case "worker":
		// Log post lifecycle events published by the server
		w := worker.New(st, kafkaReader, nil, 0, 0)
		w.Run(ctx)
		if err := w.Close(); err != nil {
			log.Printf("worker close failed: %v", err)
		}
	default:
		log.Fatalf("unknown mode: %s", mode)
	}

	log.Println("Shutdown completed")
}
