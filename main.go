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

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"vmxio.com/itpec-quiz/config"
	"vmxio.com/itpec-quiz/internal/auth"
	"vmxio.com/itpec-quiz/internal/catalog"
	"vmxio.com/itpec-quiz/internal/events"
	"vmxio.com/itpec-quiz/internal/handlers"
	"vmxio.com/itpec-quiz/internal/jobs"
	"vmxio.com/itpec-quiz/internal/quiz"
	"vmxio.com/itpec-quiz/internal/store"
	"vmxio.com/itpec-quiz/pkg/cache"
	"vmxio.com/itpec-quiz/pkg/messaging"
)

func main() {
	cfg := config.Load()
	if cfg.Server.GinMode != "" {
		gin.SetMode(cfg.Server.GinMode)
	}

	// 1) DB
	db, err := store.Open(cfg.DB.Driver, cfg.DB.DSN(), cfg.DB.SlowThreshold)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	if err := store.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	users := store.NewUserRepository(db)
	sessions := store.NewSessionRepository(db)
	logs := store.NewLogRepository(db)
	visitors := store.NewVisitorRepository(db)
	tokens := store.NewTokenRepository(db)

	// 2) Bootstrap admin (if configured)
	if cfg.Auth.AdminUsername != "" && cfg.Auth.AdminPassword != "" {
		hash, err := auth.HashPassword(cfg.Auth.AdminPassword)
		if err != nil {
			log.Fatalf("hash admin password: %v", err)
		}
		created, err := users.EnsureAdmin(context.Background(), cfg.Auth.AdminUsername, hash)
		if err != nil {
			log.Fatalf("ensure admin: %v", err)
		}
		if created {
			log.Printf("[INFO] created admin account %q", cfg.Auth.AdminUsername)
		}
	}

	// 3) Catalog
	cat, err := catalog.Load(os.DirFS(cfg.Catalog.DataDir))
	if err != nil {
		log.Fatalf("load catalog from %s: %v", cfg.Catalog.DataDir, err)
	}
	log.Printf("[INFO] catalog: %d tracks from %s", len(cat.Tracks()), cfg.Catalog.DataDir)

	// 4) Optional redis (token revocations) and rabbitmq (event fan-out)
	var revoker auth.Revoker = tokens
	purger := jobs.TokenPurger(tokens)
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Printf("[WARN] redis unavailable, revocations stay in the database: %v", err)
		} else {
			defer rdb.Close()
			revoker = auth.NewRedisRevoker(rdb)
			purger = nil
		}
	}

	sinks := []events.Sink{logs}
	if cfg.RabbitMQ.Enabled() {
		mq, err := messaging.NewRabbitMQClient(&cfg.RabbitMQ)
		if err != nil {
			log.Printf("[WARN] rabbitmq unavailable, events stay local: %v", err)
		} else {
			defer mq.Close()
			if _, err := mq.DeclareQueue(cfg.Events.Queue); err != nil {
				log.Printf("[WARN] declare queue %s: %v", cfg.Events.Queue, err)
			}
			sinks = append(sinks, events.NewBrokerSink(mq, cfg.Events.Queue))
		}
	}
	emitter := events.NewEmitter(cfg.Events.Buffer, sinks...)

	// 5) Quiz workflow + cleanup jobs
	svc := quiz.NewService(cat, sessions, emitter)
	cleaner := &jobs.Cleaner{Tokens: purger, Plays: svc, PlayTTL: cfg.Quiz.PlayTTL}
	scheduler, err := cleaner.Start()
	if err != nil {
		log.Fatalf("start jobs: %v", err)
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		log.Println("[WARN] JWT_SECRET not set; using an ephemeral secret, tokens will not survive a restart")
	}

	// 6) Router
	r := handlers.NewRouter(handlers.Deps{
		Catalog:           cat,
		Quiz:              svc,
		Sessions:          sessions,
		Users:             users,
		Logs:              logs,
		Visitors:          visitors,
		Issuer:            auth.NewIssuer(secret, cfg.Auth.TokenTTL),
		Revoker:           revoker,
		Events:            emitter,
		CORSOrigins:       cfg.Server.CORSOrigins,
		SecureCookies:     cfg.Server.SecureCookies,
		AllowRegistration: cfg.Auth.AllowRegistration,
	})

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Listening on :%s (SecureCookies=%v, Origins=%v)", cfg.Server.Port, cfg.Server.SecureCookies, cfg.Server.CORSOrigins)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("run: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("[INFO] shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[ERROR] server shutdown: %v", err)
	}
	<-scheduler.Stop().Done()
	if err := emitter.Close(ctx); err != nil {
		log.Printf("[WARN] %v", err)
	}
	st := emitter.Stats()
	log.Printf("[INFO] events: emitted=%d delivered=%d dropped=%d failed=%d", st.Emitted, st.Delivered, st.Dropped, st.Failed)
}
