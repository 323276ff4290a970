package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carebridge-health/platform/pkg/common/config"
	"github.com/carebridge-health/platform/pkg/common/kafka"
	"github.com/carebridge-health/platform/pkg/common/logger"
	"github.com/carebridge-health/platform/pkg/common/models"
	"github.com/gorilla/mux"
)

// The notifier subscribes to referral lifecycle events and turns them
// into care-team notifications. Keeping it outside the lifecycle core
// means business logic never reaches into delivery machinery.
func main() {
	logger.Init()
	cfg := config.Load()

	consumer := kafka.NewConsumer(cfg.ReferralEventTopic, "notifier-service")
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := consumer.Consume(ctx, handleReferralEvent); err != nil && err != context.Canceled {
			logger.Log.WithError(err).Fatal("consumer error")
		}
	}()

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.ServerHost, "8086"),
		Handler: router,
	}

	go func() {
		logger.Log.Info("Notifier service started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start notifier service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down notifier service...")
	cancel()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Log.WithError(err).Error("notifier forced to shutdown")
	}
	logger.Log.Info("Notifier service stopped")
}

func handleReferralEvent(ctx context.Context, event models.Event) error {
	referralEvent, err := parseReferralEvent(event.Data)
	if err != nil {
		return err
	}

	logger.Log.WithFields(map[string]interface{}{
		"referral_id": referralEvent.Referral.ID,
		"patient_id":  referralEvent.Referral.PatientID,
		"transition":  referralEvent.Transition,
		"actor":       referralEvent.Actor,
	}).Info("Referral notification dispatched")
	return nil
}

func parseReferralEvent(data map[string]interface{}) (*models.ReferralEvent, error) {
	bytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var event models.ReferralEvent
	if err := json.Unmarshal(bytes, &event); err != nil {
		return nil, err
	}
	if event.Transition == "" {
		return nil, fmt.Errorf("referral event transition missing")
	}
	return &event, nil
}
