package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"preflight/internal/cache"
	"preflight/internal/config"
	"preflight/internal/jobs"
	"preflight/internal/logger"
	"preflight/internal/metrics"
	"preflight/internal/repository"
	"preflight/internal/service"
	"preflight/internal/transport/rest"
	"preflight/internal/transport/ws"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()

	// MongoDB connection
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("failed to connect to MongoDB", "error", err)
	}
	defer mongoClient.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := mongoClient.Ping(pingCtx, nil); err != nil {
		log.Fatal("failed to ping MongoDB", "error", err)
	}
	log.Info("connected to MongoDB", "db", cfg.MongoDB)
	db := mongoClient.Database(cfg.MongoDB)

	// Redis connection
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to ping Redis", "error", err)
	}
	log.Info("connected to Redis", "addr", cfg.RedisAddr)

	m := metrics.New()
	wsHub := ws.NewHub(log)

	// Repositories
	questionRepo := repository.NewQuestionRepo(db)
	questionnaireRepo := repository.NewQuestionnaireRepo(db, log)
	answerRepo := repository.NewAnswerRepo(db, log)
	userRepo := repository.NewUserRepo(db, log)

	// Caches
	catalogCache := cache.NewCatalogCache(rdb, cfg.CatalogCacheTTL)
	sessionCache := cache.NewSessionCache(rdb, cfg.WizardSessionTTL)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL, log)
	catalogSvc := service.NewCatalogService(questionRepo, catalogCache, log)
	questionnaireSvc := service.NewQuestionnaireService(questionnaireRepo, answerRepo, catalogSvc, sessionCache, m, log)
	wizardSvc := service.NewWizardService(catalogSvc, questionnaireRepo, answerRepo, sessionCache, m, log)

	var provider service.PaymentProvider
	if cfg.Stripe.Enabled() {
		provider = service.NewStripeCheckout(cfg.Stripe)
	} else {
		log.Warn("STRIPE_SECRET_KEY not set, checkout disabled")
	}
	paymentSvc := service.NewPaymentService(userRepo, provider, m, log)

	// Hub implements service.Broadcaster
	questionnaireSvc.SetBroadcaster(wsHub)
	wizardSvc.SetBroadcaster(wsHub)
	paymentSvc.SetBroadcaster(wsHub)

	reaper := jobs.NewReaperJob(questionnaireSvc, cfg.ReaperSchedule, cfg.ReaperMaxAge, log)
	if err := reaper.Start(); err != nil {
		log.Fatal("failed to start reaper", "error", err)
	}

	router := rest.NewRouter(&rest.Container{
		Auth:           authSvc,
		Catalog:        catalogSvc,
		Wizard:         wizardSvc,
		Questionnaires: questionnaireSvc,
		Payments:       paymentSvc,
		Metrics:        m,
		WSHub:          wsHub,
		CORS:           cfg.CORS,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("ListenAndServe failed", "error", err)
		}
	}()

	// Wait for interrupt
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}
	reaper.Stop()
	wsHub.Stop()

	log.Info("server exited")
}
