package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/lasha-gamrekelashvili/voice-ai-contact-collector/internal/upstream"
)

// Config holds application configuration.
type Config struct {
	HTTPAddress        string
	OpenAIKey          string
	RealtimeURL        string
	SupabaseURL        string
	SupabaseServiceKey string
	FrontendURL        string
	MaxConnections     int
	SetupTimeout       time.Duration
}

// Load reads environment variables and returns Config with sane defaults.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file loaded, using process environment")
	}

	addr := os.Getenv("HTTP_ADDRESS")
	if addr == "" {
		addr = ":3001"
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	if openAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - voice sessions will not work")
	}

	realtimeURL := os.Getenv("OPENAI_REALTIME_URL")
	if realtimeURL == "" {
		realtimeURL = upstream.DefaultRealtimeURL
	}

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseKey := os.Getenv("SUPABASE_SERVICE_ROLE_KEY")
	if supabaseURL == "" || supabaseKey == "" {
		log.Println("Warning: SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY not set - contacts will be kept in memory")
	}

	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}

	maxConns := envInt("MAX_WS_CONNECTIONS", 100)
	setupTimeout := time.Duration(envInt("WS_CONNECTION_TIMEOUT_MS", 60000)) * time.Millisecond

	log.Printf("config: HTTP_ADDRESS=%s MAX_WS_CONNECTIONS=%d", addr, maxConns)
	return Config{
		HTTPAddress:        addr,
		OpenAIKey:          openAIKey,
		RealtimeURL:        realtimeURL,
		SupabaseURL:        supabaseURL,
		SupabaseServiceKey: supabaseKey,
		FrontendURL:        frontendURL,
		MaxConnections:     maxConns,
		SetupTimeout:       setupTimeout,
	}
}

func envInt(name string, def int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("Warning: invalid %s=%q, using %d", name, raw, def)
		return def
	}
	return v
}
