package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"studentdesk/internal/attendance"
	"studentdesk/internal/auth"
	"studentdesk/internal/cache"
	"studentdesk/internal/cloudinary"
	"studentdesk/internal/config"
	"studentdesk/internal/feedback"
	"studentdesk/internal/handler"
	"studentdesk/internal/httpmiddleware"
	"studentdesk/internal/live"
	"studentdesk/internal/profile"
	"studentdesk/internal/queue"
	"studentdesk/internal/quiz"
	"studentdesk/internal/store"
	"studentdesk/internal/worker"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(ctx, store.Driver(cfg.DBDriver), cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := store.NewRepository(db)

	rdb := store.NewRedis(cfg.RedisAddr)
	defer rdb.Close()
	var redisClient *redis.Client
	if rdb != nil {
		redisClient = rdb.Client
	}

	var q queue.Queue
	if cfg.QueueBackend == "memory" || redisClient == nil {
		q = queue.NewInMemory(256)
	} else {
		q = queue.NewRedisQueue(redisClient, queue.DefaultKey)
	}

	hub := live.NewHub(originChecker(cfg.CORSOrigins))
	go hub.Run(ctx)

	var photos profile.Uploader
	if cfg.CloudinaryConfigured() {
		photos = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		log.Println("Cloudinary configured:", cfg.CloudinaryCloudName)
	} else {
		log.Println("Cloudinary not configured (CLOUDINARY_CLOUD_NAME / API_KEY / API_SECRET not set)")
	}

	att := attendance.NewService(repo, attendance.Options{Location: cfg.Location, QRTTL: cfg.QRCodeTTL, Events: q, Feed: hub})
	quizzes := quiz.NewService(repo, quiz.Options{StrictBatchRef: cfg.StrictBatchRef, Events: q})
	fb := feedback.NewService(repo, q)
	keys := auth.Keys{SigningKey: cfg.JWTSigningKey, Issuer: cfg.JWTIssuer, AccessTTL: cfg.AccessTTL, RefreshTTL: cfg.RefreshTTL}
	authSvc := auth.NewService(repo, keys)
	stats := cache.NewAnalytics(cache.New(redisClient, cfg.AnalyticsCacheTTL), att, quizzes, fb)

	if err := authSvc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		log.Printf("warning: admin bootstrap failed: %v", err)
	}

	// Nothing else drains an in-process queue.
	if _, ok := q.(*queue.InMemory); ok {
		go func() {
			if err := worker.Run(ctx, q, stats); err != nil {
				log.Printf("in-process worker: %v", err)
			}
		}()
	}

	health := map[string]handler.Checker{"db": db}
	if rdb != nil {
		health["redis"] = rdb
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.RateLimit(httpmiddleware.NewRedisWindow(redisClient, cfg.RateLimitPerMin,
		httpmiddleware.NewTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin))))

	handler.New(handler.Deps{
		Auth:       authSvc,
		Profiles:   profile.NewService(repo, photos),
		Attendance: att,
		Quizzes:    quizzes,
		Feedback:   fb,
		Analytics:  stats,
		Live:       hub,
		Keys:       keys,
		Health:     health,
	}).Register(r)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        24 * time.Hour,
	}
	if slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cfg
}

// originChecker applies the CORS allow list to websocket upgrades.
func originChecker(origins []string) func(*http.Request) bool {
	if slices.Contains(origins, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin)
	}
}
