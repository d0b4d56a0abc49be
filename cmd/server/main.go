// Package main initializes and starts the user registration server,
// setting up configuration, logging, storage, the breach checker,
// services, handlers, and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/GateKeeper/internal/breach"
	"github.com/atinyakov/GateKeeper/internal/certgen"
	"github.com/atinyakov/GateKeeper/internal/config"
	"github.com/atinyakov/GateKeeper/internal/db"
	"github.com/atinyakov/GateKeeper/internal/logger"
	"github.com/atinyakov/GateKeeper/internal/metrics"
	"github.com/atinyakov/GateKeeper/internal/repository"
	"github.com/atinyakov/GateKeeper/internal/server/handler/http"
	"github.com/atinyakov/GateKeeper/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, file and environment configuration.
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(2)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Choose the user store.
	var repo service.UserRepository
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(ctx, options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer postgresDB.Close()
		repo = repository.NewPostgresUserRepository(postgresDB)
		zapLogger.Info("using postgres user store")
	} else {
		repo = repository.NewMemoryUserRepository()
		zapLogger.Warn("no database configured, users are kept in memory")
	}

	// Choose the breach checker.
	var checker breach.Checker
	if options.Breach.Offline {
		checker = breach.NewStatic(options.Breach.Leaked...)
		zapLogger.Warn("breach checks use the offline list", zap.Int("passwords", len(options.Breach.Leaked)))
	} else {
		checker = breach.NewPwnedClient(nil, options.Breach.URL, options.Breach.Timeout)
	}

	// Metrics registry with runtime collectors.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	userService := service.NewUserService(repo, checker, zapLogger, metrics.New(reg))
	userHandler := &http.UserHandler{UserService: userService, Log: zapLogger}
	router := http.NewRouter(userHandler, reg, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Generate a throwaway certificate when asked to.
	if options.TLS.SelfSigned {
		host, _, err := net.SplitHostPort(options.Port)
		if err != nil || host == "" {
			host = "localhost"
		}
		tlsConfig, err := certgen.ServerTLSConfig([]string{host})
		if err != nil {
			zapLogger.Fatal("failed to generate self-signed certificate", zap.Error(err))
		}
		server.TLSConfig = tlsConfig
		zapLogger.Warn("serving with a self-signed certificate", zap.String("host", host))
	}

	errCh := make(chan error, 1)
	go func() {
		zapLogger.Info("starting server", zap.String("addr", options.Port), zap.Bool("tls", options.TLSEnabled()))
		if options.TLSEnabled() {
			// Empty paths make the server use TLSConfig.Certificates.
			errCh <- server.ListenAndServeTLS(options.TLS.CertFile, options.TLS.KeyFile)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zapLogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), options.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
