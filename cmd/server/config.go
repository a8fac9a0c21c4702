package main

import (
	"os"
	"strings"
	"time"

	"railquiz/internal/session"
)

// serverConfig collects everything read from the environment at startup.
type serverConfig struct {
	Port           string
	JWTSecret      string
	NATSURL        string
	ContentPack    string
	AllowedOrigins []string
	SessionMaxAge  time.Duration
	Session        session.Config
}

func loadConfig() serverConfig {
	return serverConfig{
		Port:           getEnv("PORT", "8080"),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		NATSURL:        getEnv("NATS_URL", ""),
		ContentPack:    getEnv("CONTENT_PACK", ""),
		AllowedOrigins: splitEnv(getEnv("ALLOWED_ORIGINS", "*")),
		SessionMaxAge:  getEnvDuration("SESSION_MAX_AGE", 4*time.Hour),
		Session: session.Config{
			IntroDelay:        getEnvDuration("INTRO_DELAY", 4*time.Second),
			BrakeAnswerWindow: getEnvDuration("BRAKE_ANSWER_WINDOW", 20*time.Second),
			FollowupWindow:    getEnvDuration("FOLLOWUP_WINDOW", 15*time.Second),
			BrakeRateLimit:    getEnvDuration("BRAKE_RATE_LIMIT", 2*time.Second),
			CommandBuffer:     256,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitEnv(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
