// Command tablesrv hosts Bid Whist tables over plain websockets for local
// play and testing without a Nakama deployment.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bidwhist/internal/app"
	"bidwhist/internal/config"
	"bidwhist/internal/ports/ws"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(getenv("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}
	if log.GetLevel() < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	if path := os.Getenv("TABLE_CONFIG"); path != "" {
		if err := config.LoadTableConfig(path); err != nil {
			log.WithError(err).Fatal("failed to load table config")
		}
	}
	cfg := config.Get().WithEnv(environ())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := ws.NewServer(cfg, app.NewService(nil), log)
	go server.Run(ctx, time.Second)

	srv := &http.Server{
		Addr:              getenv("ADDR", ":8080"),
		Handler:           server.Router(),
		ReadHeaderTimeout: 15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", srv.Addr).Info("table server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("table server stopped")
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func environ() map[string]string {
	env := make(map[string]string)
	for _, key := range []string{config.EnvTurnDuration, config.EnvEmptyTableTimeout, config.EnvVivoxSecret} {
		if v, ok := os.LookupEnv(key); ok {
			env[key] = v
		}
	}
	return env
}
