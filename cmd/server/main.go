package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"challan-backend/internal/assets"
	"challan-backend/internal/auth"
	"challan-backend/internal/cache"
	"challan-backend/internal/config"
	"challan-backend/internal/database"
	"challan-backend/internal/db"
	"challan-backend/internal/handlers"
	"challan-backend/internal/health"
	h "challan-backend/internal/http"
	"challan-backend/internal/middleware"
	"challan-backend/internal/notify"
	"challan-backend/internal/repositories"
	"challan-backend/internal/services"
	"challan-backend/internal/storage"
	"challan-backend/internal/timeutil"
	"challan-backend/migrations"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func main() {
	cfg := config.Load()

	if err := timeutil.SetLocation(cfg.Timezone); err != nil {
		log.Printf("[Config] Unknown timezone %q, keeping %s: %v", cfg.Timezone, timeutil.Local, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Folder handle cache: Redis when reachable, memory otherwise
	var folderCache cache.Store = cache.NewMemoryStore()
	var redisStore *cache.RedisStore
	if cfg.Redis.Enabled {
		var err error
		redisStore, err = cache.Init(cache.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Printf("[Redis] Connection failed (%v), caching folder handles in memory", err)
		} else {
			log.Printf("[Redis] Connected to %s", cfg.RedisAddr())
		}
		folderCache = cache.NewFallback(redisStore, folderCache)
		defer redisStore.Close()
	}

	// Generation log (optional)
	var logStore services.LogStore
	var dbPinger health.Pinger
	if cfg.Database.Enabled {
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			log.Fatalf("[DB] %v", err)
		}
		defer pool.Close()

		log.Println("Running database migrations...")
		if err := database.NewMigrator(pool, migrations.FS).RunMigrations(ctx); err != nil {
			log.Fatalf("[DB] Migration failed: %v", err)
		}
		logStore = repositories.NewChallanLogRepository(pool)
		dbPinger = pool
	}

	// Storage
	var s3Client *s3.Client
	if cfg.R2Configured() {
		client, err := storage.NewS3Client(ctx, cfg)
		if err != nil {
			log.Fatalf("[Storage] %v", err)
		}
		s3Client = client
	}

	storageRoot := ""
	if cfg.Storage.Backend == config.BackendLocal && cfg.Storage.LocalRoot != "" {
		if err := os.MkdirAll(cfg.Storage.LocalRoot, 0o755); err != nil {
			log.Fatalf("[Storage] Cannot create %s: %v", cfg.Storage.LocalRoot, err)
		}
		storageRoot = cfg.Storage.LocalRoot
	}

	var treeAPI storage.S3API
	if s3Client != nil {
		treeAPI = s3Client
	}
	tree, err := storage.NewTree(ctx, cfg, treeAPI)
	if err != nil {
		log.Fatalf("[Storage] %v", err)
	}

	var share storage.ShareSurface
	if s3Client != nil {
		share = storage.NewBucketShare(s3Client, s3.NewPresignClient(s3Client), cfg.R2.Bucket, cfg.R2.Prefix, cfg.Storage.PresignTTL)
	}

	persister, err := storage.New(cfg, storage.Deps{Tree: tree, Store: folderCache, Share: share})
	if err != nil {
		log.Fatalf("[Storage] %v", err)
	}
	log.Printf("[Storage] Persisting challans with the %s strategy", persister.Strategy())

	fetcher := assets.NewFetcher(assets.Options{
		Timeout:   cfg.Assets.Timeout,
		TempDir:   cfg.Assets.TempDir,
		MaxBytes:  cfg.Assets.MaxBytes,
		MaxPixels: cfg.Assets.MaxPixels,
	})

	hub := notify.NewHub()
	go hub.Run(ctx)

	challanService := services.NewChallanService(fetcher, persister, logStore, hub)

	var cacheProbe health.CacheProbe
	if redisStore != nil {
		cacheProbe = redisStore
	}
	healthChecker := health.NewHealthChecker(dbPinger, cacheProbe, storageRoot)

	jwtManager := auth.NewJWTManager(cfg)
	router := h.NewRouter(
		handlers.NewChallanHandler(challanService, hub),
		handlers.NewHealthHandler(healthChecker),
		middleware.NewAuthMiddleware(jwtManager),
	)

	corsMiddleware := middleware.NewCORS(cfg)
	handler := middleware.PanicRecovery(corsMiddleware(router))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
