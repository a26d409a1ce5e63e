package main

import (
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"boardflow/api"
	"boardflow/board"
	"boardflow/remote"
	"boardflow/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()

	upstream := os.Getenv("UPSTREAM_BASE_URL")
	if upstream == "" {
		log.Fatal("missing upstream config")
	}
	client := remote.New(upstream, logger)
	if err := client.Validate(); err != nil {
		log.Fatalf("remote: %v", err)
	}

	var rc *redis.Client
	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		rc = redis.NewClient(redisOpts)
	}

	cache := storage.NewCache(storage.Options{
		Capacity:      envInt("CACHE_CAPACITY", storage.DefaultCapacity),
		TTL:           envDur("CACHE_TTL", storage.DefaultTTL),
		SweepInterval: envDur("CACHE_SWEEP_INTERVAL", storage.DefaultSweepInterval),
		Logger:        logger,
	})
	defer cache.Close()
	mirror := storage.NewMirror(rc, envDur("MIRROR_TTL", 0), logger)

	feed := api.NewNotificationFeed()
	engine := board.NewEngine(envDur("COMMIT_TIMEOUT", board.DefaultCommitTimeout), feed, logger)
	b := board.New(client, cache, mirror, engine, logger)
	drag := board.NewDragController(b, logger)

	var deduper api.Deduper = api.NopDeduper()
	if rc != nil {
		deduper = api.NewRedisDeduper(rc, envDur("DEDUPER_TTL", 24*time.Hour))
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, "Idempotency-Key"},
	}))
	e.Use(echoprometheus.NewMiddleware("boardflow"))
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, b, drag, deduper, feed, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("LISTEN_ADDR"); ok {
		listenAddr = val
	}
	e.Logger.Fatal(e.Start(listenAddr))
}

func envInt(name string, fallback int) int {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("invalid %s: %q", name, v)
	}
	return n
}

func envDur(name string, fallback time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		log.Fatalf("invalid %s: %q", name, v)
	}
	return d
}
