package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/config"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/contacts"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/httpserver"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/relay"
	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/upstream"
)

func main() {
	// Include sub-second precision in all log timestamps
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	cfg := config.Load()

	var store contacts.Store
	if cfg.SupabaseURL != "" && cfg.SupabaseServiceKey != "" {
		s, err := contacts.NewSupabaseStore(cfg.SupabaseURL, cfg.SupabaseServiceKey)
		if err != nil {
			log.Fatalf("supabase store: %v", err)
		}
		store = s
	} else {
		log.Println("Warning: using in-memory contact store, saved contacts will not survive restarts")
		store = contacts.NewMemoryStore()
	}

	dial := func(ctx context.Context) (relay.Upstream, error) {
		return upstream.Dial(ctx, cfg.RealtimeURL, cfg.OpenAIKey)
	}

	srv := httpserver.New(cfg, store, dial)
	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Echo,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("server listening on %s", cfg.HTTPAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
			return server.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
