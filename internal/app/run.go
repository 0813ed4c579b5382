package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"climate-server/internal/config"
	db "climate-server/internal/db"
	httpapi "climate-server/internal/httpapi"
	"climate-server/internal/migrate"
	climate "climate-server/internal/modules/climate"
	"climate-server/internal/modules/climate/service"
	climateviews "climate-server/internal/modules/climate/views"
)

const (
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func Run(ctx context.Context, cfg config.Config) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.Path,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"dbAutoMigrate", cfg.AutoMigrate,
		"metricsEnabled", cfg.MetricsEnabled,
		"rateLimitRequests", cfg.RateLimitRequests,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)
	// The server only reads; a read-write handle is needed just to migrate.
	open := db.OpenReadOnly
	if cfg.AutoMigrate {
		open = db.Open
	}
	dbConn, err := open(ctx, cfg, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	if cfg.AutoMigrate {
		applied, err := migrate.Run(ctx, dbConn)
		if err != nil {
			return err
		}
		slog.Info("migrations applied", "count", applied)
	}

	var ok int
	err = dbConn.QueryRowContext(ctx, `SELECT 1`).Scan(&ok)
	if err != nil {
		return err
	}
	if ok != 1 {
		return errors.New("database connection failed")
	}
	if err := db.RequireTables(ctx, dbConn, "measurement", "station"); err != nil {
		return err
	}
	slog.Info("database connection successful", "readOnly", !cfg.AutoMigrate)

	if err := climateviews.LoadTemplates(); err != nil {
		return err
	}
	router, climateService := newRouter(cfg, dbConn)

	publisher, publisherDone, err := startPublisher(ctx, cfg, climateService)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		publisher.Disconnect()
		<-publisherDone
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}
	srv := httpapi.NewServer(cfg, router)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		publisher.Disconnect()
		<-publisherDone
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	slog.Info("mqtt disconnecting")
	publisher.Disconnect()
	<-publisherDone

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

func newRouter(cfg config.Config, dbConn *sql.DB) (chi.Router, *service.Service) {
	r := httpapi.NewRouter(cfg, dbConn)
	svc := climate.RegisterFeature(r, dbConn)
	return r, svc
}
