// Command plantsim runs the feedwater training simulator: the plant loop,
// the HTTP/WebSocket API, and an optional Redis command/event bridge.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/holla2040/plantsim/internal/api"
	"github.com/holla2040/plantsim/internal/plant"
	"github.com/holla2040/plantsim/internal/redisbus"
)

const serverVersion = "1.0.0"

func main() {
	configPath := flag.String("config", "", "plant config YAML (defaults built in)")
	listenAddr := flag.String("listen", ":8002", "HTTP listen address")
	redisAddr := flag.String("redis", "", "Redis address (empty disables the bridge)")
	flag.Parse()

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load plant configuration
	cfg := plant.DefaultConfig()
	if *configPath != "" {
		loaded, err := plant.LoadConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config %s: %v", *configPath, err)
		}
		cfg = loaded
		log.Printf("Loaded config from %s", *configPath)
	}

	p, err := plant.New(cfg)
	if err != nil {
		log.Fatalf("Failed to build plant %s: %v", cfg.Name, err)
	}
	log.Printf("Plant %s ready (step time %.0f ms)", cfg.Name, cfg.StepTime*1000)

	// WebSocket hub, fed by plant events and periodic snapshots
	wsHub := api.NewHub(p)
	p.AddBroadcaster(wsHub)

	// Optional Redis bridge
	var bus *redisbus.Bridge
	var rdb *redis.Client
	if *redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: *redisAddr})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis at %s: %v", *redisAddr, err)
		}
		log.Printf("Connected to Redis at %s", *redisAddr)

		bus = redisbus.New(rdb, p)
		p.AddBroadcaster(bus)
	}

	// HTTP handler
	handler := &api.Handler{
		Plant: p,
		Hub:   wsHub,
	}

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"service":"plantsim","version":"` + serverVersion + `"}`))
	})

	server := &http.Server{
		Addr:    *listenAddr,
		Handler: mux,
	}

	var wg sync.WaitGroup

	// 1. Plant simulation loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		p.Run(ctx)
	}()

	// 2. WebSocket hub
	wg.Add(1)
	go func() {
		defer wg.Done()
		wsHub.Run(ctx)
	}()

	// 3. Redis bridge (nil-safe; returns immediately when disabled)
	wg.Add(1)
	go func() {
		defer wg.Done()
		bus.Run(ctx)
	}()

	// 4. HTTP server
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf("HTTP server listening on %s", *listenAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Println("Shutting down...")

	// Graceful HTTP shutdown with 5s timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	wg.Wait()
	log.Println("Shutdown complete")
}
