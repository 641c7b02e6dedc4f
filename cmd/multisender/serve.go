package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"multisender/internal/infrastructure/restapi"
	"multisender/internal/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Connect the wallet and serve the REST API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), c)
		},
	}
}

func runServe(ctx context.Context, c *cli) error {
	app, err := newApplication(c.cfg, c.log)
	if err != nil {
		return err
	}
	defer app.close()

	if c.cfg.Metrics.Enabled {
		metrics.MustRegisterMetrics()
	}

	// The API stays up without a session; session endpoints report it inactive.
	if _, err := app.connect(ctx); err != nil {
		c.log.Warn("Starting without an active session", zap.Error(err))
	}

	if !c.cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	handler := restapi.NewHandler(app.session, app.watcher, app.translator, app.form)
	router := restapi.SetupRouter(handler, restapi.RouterOptions{
		AllowedOrigins: c.cfg.Server.AllowedOrigins,
		MetricsEnabled: c.cfg.Metrics.Enabled,
		MetricsPath:    c.cfg.Metrics.Path,
		Logger:         c.log,
	})

	srv := &http.Server{
		Addr:         c.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(c.cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(c.cfg.Server.WriteTimeoutSeconds) * time.Second,
	}

	go func() {
		c.log.Info("Starting server", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	c.log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		c.log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	c.log.Info("Server exiting")
	return nil
}
