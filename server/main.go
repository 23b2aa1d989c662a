package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"deckr/server/engine"
	"deckr/server/events"
	"deckr/server/store"
)

//
// ===== bootstrap =====
//

func mustEnv(keys ...string) {
	for _, k := range keys {
		if os.Getenv(k) == "" {
			log.Fatalf("Missing required env var %s. Put it in .env (dev) or set it on the host (prod).", k)
		}
	}
}
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}

type config struct {
	Port         string
	Store        string // postgres | memory
	DSN          string
	AutoMigrate  bool
	RedisAddr    string
	RedisChannel string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func loadConfig() config {
	return config{
		Port:         getenv("PORT", "8080"),
		Store:        strings.ToLower(getenv("STORE", "postgres")),
		DSN:          os.Getenv("DATABASE_URL"),
		AutoMigrate:  asBool(os.Getenv("AUTO_MIGRATE")),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		RedisChannel: getenv("REDIS_CHANNEL", events.DefaultChannel),
		ReadTimeout:  time.Duration(atoiDef(os.Getenv("READ_TIMEOUT_SECONDS"), 15)) * time.Second,
		WriteTimeout: time.Duration(atoiDef(os.Getenv("WRITE_TIMEOUT_SECONDS"), 15)) * time.Second,
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	_ = godotenv.Load()

	var migrate bool
	for _, a := range os.Args[1:] {
		switch a {
		case "--migrate":
			migrate = true
		}
	}

	cfg := loadConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st engine.Store
	switch cfg.Store {
	case "memory":
		if migrate {
			log.Fatal("--migrate needs STORE=postgres")
		}
		st = store.NewMemory()
		log.Println("using in-memory store")
	default:
		mustEnv("DATABASE_URL")
		db, err := store.Open(cfg.DSN)
		if err != nil {
			log.Fatal(err)
		}
		defer db.Close(context.Background())
		if migrate || cfg.AutoMigrate {
			if err := store.Migrate(ctx, db); err != nil {
				log.Fatal(err)
			}
			log.Println("migrated")
		}
		if migrate {
			return
		}
		st = db
	}

	var opts []engine.Option
	if cfg.RedisAddr != "" {
		rdb := events.NewRedis(cfg.RedisAddr, cfg.RedisChannel)
		if err := rdb.Ping(ctx); err != nil {
			log.Printf("Redis disabled (ping failed): %v", err)
			rdb.Close()
		} else {
			defer rdb.Close()
			opts = append(opts, engine.WithNotifier(rdb))
			log.Printf("publishing changes on %s", rdb.Channel())
		}
	}
	eng := engine.New(st, opts...)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: Router(eng), ReadTimeout: cfg.ReadTimeout, WriteTimeout: cfg.WriteTimeout}
	go watchSignals(cancel)
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("listening on http://localhost:%s (Ctrl+C to stop)", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}

func watchSignals(cancel context.CancelFunc) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	cancel()
}
