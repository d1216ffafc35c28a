package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	relay "chat-relay-service/internal/relay"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx := context.Background()

	port := getenv("PORT", "4000")
	apiBase := getenv("API_BASE", "http://localhost:8000/api")
	redisURL := getenv("REDIS_URL", "")
	allowedOrigins := getenv("ALLOWED_ORIGINS", "*")
	upstreamTimeout := getenvDuration("UPSTREAM_TIMEOUT", 5*time.Second)

	// Hub owns all connection/room state; one goroutine, started first.
	hub := relay.NewHub()
	go hub.Run()

	identity := relay.NewIdentityClient(apiBase)

	// Fan-out is local unless a Redis URL is configured, in which case
	// broadcasts bridge across sibling instances via pub/sub.
	var fanout relay.Fanout = relay.NewLocalFanout(hub)
	if redisURL != "" {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			log.Fatalf("chat-relay-service: invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opt)
		defer rdb.Close()

		rf := relay.NewRedisFanout(rdb, hub)
		go rf.Run(ctx)
		fanout = rf
	}

	srv := relay.NewServer(hub, identity, fanout, allowedOrigins, upstreamTimeout)

	r := srv.Router(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	log.Printf("chat-relay-service listening on :%s (api=%s)", port, apiBase)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("chat-relay-service: %v", err)
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	raw := os.Getenv(k)
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
