package main

import (
	"context"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/padraicbc/wagergenie/app"
	"github.com/padraicbc/wagergenie/assistant"
	"github.com/padraicbc/wagergenie/config"
	"github.com/padraicbc/wagergenie/db"
	"github.com/padraicbc/wagergenie/handlers"
	"github.com/padraicbc/wagergenie/llm"
	applog "github.com/padraicbc/wagergenie/logger"
	mw "github.com/padraicbc/wagergenie/middleware"
	"github.com/padraicbc/wagergenie/realtime"
	"github.com/padraicbc/wagergenie/scheduler"
)

//go:embed all:build/*
var embeddedFiles embed.FS

func main() {
	cfg := config.Load()
	logger, err := applog.New(cfg.Debug, "server")
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("startup failed", zap.Error(err))
	}
	defer a.Close()

	if err := db.CreateTables(ctx, a.DB); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	// Chat streams are fed by the local hub, or through Redis so that every
	// instance sees every message.
	hub := realtime.NewHub()
	var pub realtime.Publisher = hub
	if a.Redis != nil {
		bus := realtime.NewRedisBus(a.Redis, cfg.RedisChannel, hub, logger.Named("chatbus"))
		bus.Start(ctx)
		pub = bus
	}

	completer, err := llm.New(cfg)
	if err != nil {
		logger.Fatal("llm setup failed", zap.Error(err))
	}
	genie := assistant.New(a.Store, completer, logger.Named("assistant"),
		assistant.WithStructuredOutput(cfg.LLMStructured),
		assistant.WithCache(a.Cache),
		assistant.WithPublisher(pub),
		assistant.WithContextLimits(cfg.ContextOddsLimit, cfg.ContextPicksLimit),
	)

	h := handlers.New(a.Store, cfg.JWTKey(), logger.Named("http"))
	h.SessionTTL = cfg.SessionTTL
	h.Secure = !cfg.Debug
	h.Assistant = genie
	h.OddsJob = a.OddsJob
	h.ScrapeJob = a.ScrapeJob
	h.Stream = hub

	if cfg.SchedulerEnabled {
		sched := scheduler.New(logger.Named("scheduler"), 10*time.Minute)
		if err := sched.Add("odds", cfg.OddsCron, a.OddsJob); err != nil {
			logger.Fatal("scheduler setup failed", zap.Error(err))
		}
		if err := sched.Add("scrape", cfg.ScrapeCron, a.ScrapeJob); err != nil {
			logger.Fatal("scheduler setup failed", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowHeaders:     []string{"*", "Authorization"},
		AllowCredentials: true,
	}))

	// Public
	e.POST("/api/signin", h.Signin)
	e.POST("/api/signout", h.Signout)
	e.GET("/healthz", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Scheduler entry points, shared secret in the Authorization header
	cron := e.Group("/api/cron", mw.CronSecret(cfg.CronSecret))
	cron.GET("/odds", h.CronOdds)
	cron.GET("/scrape", h.CronScrape)

	// Protected, session cookie or bearer token
	api := e.Group("/api", mw.RequireSession(cfg.JWTKey(), a.Store))
	api.GET("/me", h.Me)
	api.POST("/chat", h.Chat)
	api.GET("/chat/messages", h.ChatMessages)
	api.GET("/chat/stream", h.ChatStream)
	api.GET("/picks", h.Picks)
	api.PATCH("/picks/:id/result", h.UpdatePickResult)

	// Strip the "build/" prefix so URLs work correctly
	subFS, err := fs.Sub(embeddedFiles, "build")
	if err != nil {
		logger.Fatal("open embedded build fs failed", zap.Error(err))
	}
	fileServer := http.FileServer(http.FS(subFS))
	e.GET("/*", func(c echo.Context) error {
		path := c.Request().URL.Path

		if mw.IsAsset(path) {
			http.StripPrefix("/", fileServer).ServeHTTP(c.Response(), c.Request())
			return nil
		}
		// Client-side routing: every page path gets index.html.
		indexFile, err := subFS.Open("index.html")
		if err != nil {
			return c.NoContent(http.StatusNotFound)
		}
		defer indexFile.Close()

		return c.Stream(http.StatusOK, "text/html", indexFile)
	}, mw.Gate(cfg.JWTKey(), a.Store, logger.Named("gate")))

	if cfg.Debug {
		logger.Info("starting server", zap.String("mode", "debug"), zap.String("addr", cfg.Port))
		go func() {
			<-ctx.Done()
			shutdown(e.Shutdown, logger)
		}()
		if err := e.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			logger.Error("server exited", zap.Error(err))
		}
		return
	}

	autoTLS := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Cache:      autocert.DirCache(".cache"),
		HostPolicy: autocert.HostWhitelist(cfg.TLSDomains...),
	}

	s := &http.Server{
		Addr:         ":443",
		Handler:      e,
		TLSConfig:    autoTLS.TLSConfig(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown(s.Shutdown, logger)
	}()

	logger.Info("starting server", zap.String("mode", "tls"), zap.Strings("domains", cfg.TLSDomains))
	if err := s.ListenAndServeTLS("", ""); err != http.ErrServerClosed {
		logger.Error("tls server exited", zap.Error(err))
	}
}

func shutdown(fn func(context.Context) error, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}
