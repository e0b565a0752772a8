package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fjod/cart-widget/internal/badge"
	"github.com/fjod/cart-widget/internal/cart"
	"github.com/fjod/cart-widget/internal/checkout"
	"github.com/fjod/cart-widget/internal/httpapi"
	"github.com/fjod/cart-widget/internal/notify"
	"github.com/fjod/cart-widget/internal/store"
	"github.com/fjod/cart-widget/internal/view"
)

type Config struct {
	HTTPPort        string
	StoreBackend    string
	RedisAddr       string
	RedisPassword   string
	MongoURI        string
	MongoDBName     string
	MongoTimeout    time.Duration
	MongoPoolSize   uint64
	CartKey         string
	BackendURL      string
	CurrencyPrefix  string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		StoreBackend:    getEnv("STORE_BACKEND", "redis"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     getEnv("MONGO_DB_NAME", "cartdb"),
		MongoTimeout:    10 * time.Second,
		MongoPoolSize:   16,
		CartKey:         getEnv("CART_KEY", "cart"),
		BackendURL:      os.Getenv("BACKEND_URL"),
		CurrencyPrefix:  getEnv("CURRENCY_PREFIX", "R$"),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()

	// No placeholder fallback: an unset backend URL would send orders
	// into the void, so refuse to start without one.
	if cfg.BackendURL == "" {
		log.Fatal("BACKEND_URL must be set")
	}

	ctx := context.Background()

	st, cleanup, err := buildStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up store: %v", err)
	}
	defer cleanup()

	badges := badge.NewHub()
	notifier := notify.NewHub()

	cartState := cart.New(st)
	cartState.OnChange(badges.Publish)
	cartState.Load(ctx)
	log.Printf("Cart loaded with %d items", cartState.ItemCount())

	renderer := view.NewRenderer(cfg.CurrencyPrefix)

	backendClient := &http.Client{}
	newFlow := func() *checkout.Flow {
		return checkout.NewFlow(cartState, cfg.BackendURL, backendClient, notifier)
	}

	router := httpapi.NewRouter(httpapi.Deps{
		Cart:           cartState,
		Renderer:       renderer,
		Badges:         badges,
		Notifier:       notifier,
		NewFlow:        newFlow,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // SSE endpoints hold their connections open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Cart widget starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}

func buildStore(ctx context.Context, cfg *Config) (store.Store, func(), error) {
	switch cfg.StoreBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Printf("Connected to Redis at %s", cfg.RedisAddr)
		return store.NewRedisStore(client, cfg.CartKey), func() { client.Close() }, nil

	case "mongo":
		db, err := store.DialMongo(ctx, store.MongoOptions{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDBName,
			ConnectTimeout: cfg.MongoTimeout,
			MaxPoolSize:    cfg.MongoPoolSize,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

		mongoStore := store.NewMongoStore(db, cfg.CartKey)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			db.Client().Disconnect(ctx)
			return nil, nil, err
		}
		cleanup := func() {
			if err := db.Client().Disconnect(context.Background()); err != nil {
				log.Printf("failed to disconnect MongoDB: %v", err)
			}
		}
		return mongoStore, cleanup, nil

	case "memory":
		log.Println("Using in-memory store; cart will not survive restarts")
		return store.NewMemoryStore(), func() {}, nil

	default:
		return nil, nil, errors.New("unknown STORE_BACKEND: " + cfg.StoreBackend)
	}
}
