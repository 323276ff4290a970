package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carebridge-health/platform/pkg/common/config"
	"github.com/carebridge-health/platform/pkg/common/database"
	"github.com/carebridge-health/platform/pkg/common/kafka"
	"github.com/carebridge-health/platform/pkg/common/logger"
	"github.com/carebridge-health/platform/pkg/gateway/middleware"
	"github.com/carebridge-health/platform/pkg/match"
	"github.com/carebridge-health/platform/pkg/observability/metrics"
	"github.com/carebridge-health/platform/pkg/patients"
	"github.com/carebridge-health/platform/pkg/providers"
	"github.com/carebridge-health/platform/pkg/referral"
	"github.com/carebridge-health/platform/pkg/risk"
	"github.com/gorilla/mux"
)

func main() {
	logger.Init()
	metrics.Init()
	cfg := config.Load()

	db, err := database.GetPostgres()
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to connect to postgres")
	}

	patientRepo := patients.NewRepository(db)
	if err := patientRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate patient tables")
	}
	providerRepo := providers.NewRepository(db)
	if err := providerRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate provider tables")
	}
	referralRepo := referral.NewRepository(db)
	if err := referralRepo.AutoMigrate(); err != nil {
		logger.Log.WithError(err).Fatal("failed to migrate referral tables")
	}

	riskWeights, err := risk.LoadWeights(cfg.RiskWeightsPath)
	if err != nil {
		logger.Log.WithError(err).Warn("falling back to default risk weights")
	}
	catalog, err := risk.LoadCatalog(cfg.DiagnosisCatalogPath)
	if err != nil {
		logger.Log.WithError(err).Warn("falling back to default diagnosis catalog")
	}
	scorer, err := risk.NewScorer(riskWeights, catalog)
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid risk scoring configuration")
	}

	matchWeights, err := match.LoadWeights(cfg.MatchWeightsPath)
	if err != nil {
		logger.Log.WithError(err).Warn("falling back to default match weights")
	}
	matcher, err := match.NewMatcher(matchWeights, cfg.MatchIncludeUnlocated)
	if err != nil {
		logger.Log.WithError(err).Fatal("invalid match configuration")
	}

	providerCache := providers.NewCache(database.GetRedis(), cfg.ProviderCacheTTL)
	providerService := providers.NewService(providerRepo, providerCache)

	producer := kafka.NewProducer(cfg.ReferralEventTopic)
	defer producer.Close()

	var dlq *kafka.Producer
	if cfg.ReferralDLQTopic != "" {
		dlq = kafka.NewProducer(cfg.ReferralDLQTopic)
		defer dlq.Close()
	}

	referralService := referral.NewService(referralRepo, producer, eventPublisherOrNil(dlq))

	router := mux.NewRouter()
	router.Use(middleware.Logging, middleware.Recovery)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.BodyLimit(cfg.MaxRequestBody))
	patients.NewHandler(patients.NewNormalizer(), patientRepo, scorer).Register(api)
	providers.NewHandler(providerService, matcher, patientRepo, cfg.DefaultRankLimit).Register(api)
	referral.NewHandler(referralService).Register(api)

	address := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Log.WithField("addr", address).Info("Referral service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start referral service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down referral service...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Log.WithError(err).Error("referral service forced to shutdown")
	}
	logger.Log.Info("Referral service stopped")
}

// eventPublisherOrNil keeps a typed-nil *kafka.Producer from ending up
// as a non-nil interface inside the service.
func eventPublisherOrNil(p *kafka.Producer) referral.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}
