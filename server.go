package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/invoicing_backend/config"
	"bitbucket.org/mmdatafocus/invoicing_backend/models"
	"bitbucket.org/mmdatafocus/invoicing_backend/routes"
	"bitbucket.org/mmdatafocus/invoicing_backend/workflow"
	"github.com/robfig/cron/v3"
)

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = "8080"
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	router := routes.SetupRouter()

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Start listening BEFORE connecting dependencies. Cloud Run requires the
	// container to accept connections on $PORT quickly; the router returns 503
	// for app endpoints until the database is up.
	serverErrCh := make(chan error, 1)
	go func() {
		log.Printf("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	logger := config.GetLogger()

	if !strings.EqualFold(os.Getenv("SKIP_MIGRATIONS"), "true") {
		models.MigrateTable()
	}

	dispatcherCtx, cancelDispatcher := context.WithCancel(context.Background())
	defer cancelDispatcher()
	go workflow.NewOutboxDispatcher(db, logger).Run(dispatcherCtx)

	scheduler := cron.New()
	if !config.DisableSweeps() {
		if _, err := scheduler.AddFunc("0 2 * * *", workflow.NewReminderSweep(db, logger).Run); err != nil {
			logger.Errorf("failed to schedule reminder sweep: %v", err)
		}
		if _, err := scheduler.AddFunc("30 2 * * *", workflow.NewDraftRetentionSweep(db, logger).Run); err != nil {
			logger.Errorf("failed to schedule draft retention sweep: %v", err)
		}
		scheduler.Start()
	}

	select {
	case <-sigCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErrCh:
		logger.Errorf("http server error: %v", err)
	}

	cancelDispatcher()
	cronCtx := scheduler.Stop()
	<-cronCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http server shutdown: %v", err)
	}

	if rdb := config.GetRedisDB(); rdb != nil {
		if err := rdb.Close(); err != nil {
			logger.Warnf("redis close: %v", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Warnf("db close: %v", err)
		}
	}
	logger.Info("server stopped")
}
