package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"railquiz/internal/auth"
	"railquiz/internal/content"
	"railquiz/internal/gateway"
	"railquiz/internal/session"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg := loadConfig()
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	provider, err := loadContent(cfg.ContentPack)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.ContentPack).Msg("failed to load content pack")
	}

	logger := log.Logger
	registry := gateway.NewRegistry(logger)

	// The NATS mirror is optional: without a broker the server runs fully
	// standalone and events only reach WebSocket clients.
	var sink session.EventSink
	if cfg.NATSURL != "" {
		mirrorCfg := gateway.DefaultMirrorConfig()
		mirrorCfg.URL = cfg.NATSURL
		mirror, err := gateway.NewMirror(mirrorCfg, logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect event mirror")
		}
		defer mirror.Close()
		sink = mirror
		log.Info().Str("nats_url", cfg.NATSURL).Msg("event mirror enabled")
	}

	store := session.NewStore(provider, cfg.Session, clockwork.NewRealClock(), registry, sink, logger)
	defer store.Close()
	store.StartCleanup(10*time.Minute, cfg.SessionMaxAge)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	wsHandler := gateway.NewHandler(store, verifier, registry, gateway.DefaultConnectionConfig(), logger)

	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	mux.HandleFunc("/ws/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := registry.Stats()
		stats["sessions"] = store.Count()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      c.Handler(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	log.Info().Msg("shutdown complete")
}

// loadContent reads the YAML pack at path, or falls back to the built-in
// destination bank when no pack is configured.
func loadContent(path string) (content.Provider, error) {
	if path == "" {
		log.Info().Msg("no content pack configured, using built-in destinations")
		return content.Static(content.Builtin()), nil
	}
	pack, err := content.LoadPack(path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("pack_id", pack.PackID).Int("destinations", len(pack.Items)).Msg("content pack loaded")
	return pack, nil
}
