package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appconfig "github.com/felemax/felia/config"
	"github.com/felemax/felia/internal/catalog"
	"github.com/felemax/felia/internal/dialogue"
	"github.com/felemax/felia/internal/enrich"
	"github.com/felemax/felia/internal/oracle"
	"github.com/felemax/felia/internal/session"
)

// Run wires the whole engine and serves it until the listener fails.
func Run(cfg *appconfig.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	// Unified HTTP error handler with structured JSON and logging
	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, HTTPError{Error: msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Cookie"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(200, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	logger := log.New(log.Writer(), "[FELIA] ", log.LstdFlags)

	cat, reindex, err := BuildCatalog(cfg, logger)
	if err != nil {
		return err
	}

	orc := oracle.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Timeout).
		WithBaseURL(cfg.LLM.BaseURL).
		WithTuning(cfg.LLM.PlanTemp, cfg.LLM.ClassifyTemp, cfg.LLM.MaxRetries)

	var hydrator enrich.Hydrator
	if cfg.Enrichment.Endpoint != "" {
		hydrator = enrich.NewHTTP(cfg.Enrichment.Endpoint, cfg.Enrichment.Timeout, logger)
	}

	sessions := session.NewStore()
	orch := dialogue.New(orc, cat, hydrator, sessions, dialogue.Config{
		ShowPrices: cfg.Display.ShowPrices,
		Currency:   cfg.Display.Currency,
	}, logger)

	api := e.Group("/api")
	ch := &ChatHandler{Orch: orch, Sessions: sessions}
	ch.Register(api)

	if cfg.Server.JWTSecret == "" {
		logger.Printf("server.jwt_secret not set, admin endpoints disabled")
	} else {
		admin := api.Group("/admin")
		admin.Use(withAuth([]byte(cfg.Server.JWTSecret)))
		ah := &AdminHandler{Sessions: sessions, Reindex: reindex, Logger: logger}
		ah.Register(admin)
	}

	// A dedicated metrics listener keeps scrapers off the public port.
	if cfg.Telemetry.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort)
		go func() {
			logger.Printf("metrics listening on %s", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, promhttp.Handler()); err != nil {
				logger.Printf("metrics listener failed: %v", err)
			}
		}()
	}

	addr := cfg.Server.Address
	log.Printf("listening on %s", addr)
	return e.Start(addr)
}

// BuildCatalog constructs the configured catalog backend. The second return
// is the reindex hook, nil when the backend has no source to reload.
func BuildCatalog(cfg *appconfig.Config, logger *log.Logger) (catalog.Searcher, func() (int, error), error) {
	switch cfg.Catalog.Backend {
	case "mock":
		logger.Printf("catalog backend: mock (target %d)", cfg.Catalog.MockTarget)
		return catalog.Mock{Target: cfg.Catalog.MockTarget}, nil, nil

	case "csv":
		entries, err := catalog.LoadCSV(cfg.Catalog.CSVPath, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Printf("catalog backend: csv (%d entries)", len(entries))
		return catalog.NewLocal(entries), nil, nil

	case "indexed":
		entries, err := catalog.LoadCSV(cfg.Catalog.CSVPath, logger)
		if err != nil {
			return nil, nil, err
		}
		idx, err := catalog.NewIndexed(entries)
		if err != nil {
			return nil, nil, err
		}
		logger.Printf("catalog backend: indexed (%d entries)", idx.Len())
		reindex := func() (int, error) {
			fresh, err := catalog.LoadCSV(cfg.Catalog.CSVPath, logger)
			if err != nil {
				return 0, err
			}
			if err := idx.Rebuild(fresh); err != nil {
				return 0, err
			}
			return len(fresh), nil
		}
		return idx, reindex, nil

	default:
		return nil, nil, fmt.Errorf("unknown catalog backend %q", cfg.Catalog.Backend)
	}
}
