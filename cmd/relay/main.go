// Command relay starts the Global Network real-time messaging relay.
//
// The relay authenticates WebSocket connections with bearer tokens minted by
// the REST API, tracks which discussion server each connection has joined,
// persists chat messages to PostgreSQL, and fans broadcasts out to connected
// members. Configuration comes from the environment (optionally a .env
// file); JWT_SECRET and DATABASE_URL are the settings without usable
// defaults.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/globalnetwork/relay/internal/auth"
	"github.com/globalnetwork/relay/internal/server"
	"github.com/globalnetwork/relay/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := server.NewConfigFromEnv()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	server.SetConfig(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create database pool: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}

	registry := server.NewRegistry()
	engine := server.NewEngine(registry, auth.NewVerifier(cfg.JWTSecret), store.NewPostgres(pool))
	sweeper := server.NewSweeper(engine, cfg.HeartbeatInterval)

	httpServer := server.CreateServer(cfg.Port, server.SetupRoutes(engine))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := server.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		if err := server.ShutdownServer(httpServer, shutdownTimeout); err != nil {
			log.Printf("HTTP shutdown error: %v", err)
		}
		registry.CloseAll()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("Relay exited with error: %v", err)
	}
	log.Println("Relay shutdown completed")
}
