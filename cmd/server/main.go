package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/static"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"authgate/internal/baseurl"
	"authgate/internal/config"
	"authgate/internal/httpapi"
	"authgate/internal/metrics"
	"authgate/internal/oidcclient"
	"authgate/internal/session"
	"authgate/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.Data.Path)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	defer st.Close()

	var oidcClient *oidcclient.Client
	if cfg.OIDC != nil {
		oidcClient, err = oidcclient.New(ctx, cfg.OIDC)
		if err != nil {
			return fmt.Errorf("initializing OIDC client: %w", err)
		}
	}

	var sb *httpapi.SandboxScript
	if cfg.OIDC != nil && cfg.OIDC.ClaimsCheckScript != "" {
		sb, err = loadSandboxScript(cfg.OIDC.ClaimsCheckScript)
		if err != nil {
			return fmt.Errorf("loading claims check script: %w", err)
		}
	}

	metrics.Init()

	bindPort := cfg.Server.Port
	baseURLCfg := baseurl.ParseExternalBaseURL(cfg.Server.ExternalBaseURL)
	// Secure is only set when the operator pinned a fixed https external
	// base URL; in "auto" mode the scheme is resolved per-request and may
	// vary across proxy hops, so we default to non-Secure (see DESIGN.md).
	secureCookie := strings.HasPrefix(baseURLCfg.Fixed, "https://")
	app := httpapi.NewApp(
		st,
		session.NewTable(0),
		oidcclient.NewPendingSet(),
		oidcClient,
		sb,
		baseURLCfg,
		cfg.Server.Host,
		bindPort,
		secureCookie,
	)

	fiberApp := fiber.New(fiber.Config{
		ErrorHandler: func(c fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "internal error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			return c.Status(code).JSON(fiber.Map{"status": "error", "error": message})
		},
	})
	fiberApp.Use(recover.New())
	fiberApp.Use(logger.New())

	httpapi.RegisterRoutes(fiberApp, app)
	fiberApp.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if cfg.Server.WebUIDir != "" {
		fiberApp.Get("/*", static.New(cfg.Server.WebUIDir))
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(bindPort))

	serveErr := make(chan error, 1)
	go func() {
		if err := fiberApp.Listen(addr); err != nil {
			serveErr <- err
		}
	}()
	slog.Info("authgate listening", "addr", addr, "oidc_enabled", oidcClient != nil)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-serveErr:
		return fmt.Errorf("server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func loadSandboxScript(path string) (*httpapi.SandboxScript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	isTS := false
	for _, ext := range []string{".ts", ".mts"} {
		if len(path) > len(ext) && path[len(path)-len(ext):] == ext {
			isTS = true
			break
		}
	}
	return &httpapi.SandboxScript{Source: string(data), IsTypeScript: isTS}, nil
}
