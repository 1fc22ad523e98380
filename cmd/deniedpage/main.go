package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deniedpage/edge-service/internal/api"
	"deniedpage/edge-service/internal/cache"
	"deniedpage/edge-service/internal/config"
	"deniedpage/edge-service/internal/cors"
	"deniedpage/edge-service/internal/httputil"
	"deniedpage/edge-service/internal/metrics"
	"deniedpage/edge-service/internal/netinfo"
	"deniedpage/edge-service/internal/page"
	"deniedpage/edge-service/internal/upstream"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configFlag := flag.String("config", "", "path to config file (overrides DENIEDPAGE_CONFIG env var)")
	flag.Parse()

	// Config path: CLI flag > env var > default
	cfgPath := *configFlag
	if cfgPath == "" {
		cfgPath = os.Getenv("DENIEDPAGE_CONFIG")
	}
	if cfgPath == "" {
		cfgPath = "./config.yaml"
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			cfgPath = "./config.example.yaml"
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Logging.Level == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Logger.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().
		Str("config_path", cfgPath).
		Str("log_level", cfg.Logging.Level).
		Str("listen", cfg.Server.Listen).
		Msg("server configuration")
	log.Info().
		Str("organization", cfg.Org.Name).
		Str("identity_host", cfg.IdentityBaseURL()).
		Str("api_base_url", cfg.Upstream.APIBaseURL).
		Int("history_hours_back", cfg.History.HoursBack).
		Int("history_limit", cfg.History.Limit).
		Msg("upstream configuration")
	log.Info().
		Int("cache_capacity", cfg.Cache.Capacity).
		Dur("cache_ttl", cfg.CacheTTL()).
		Msg("response cache configuration")

	geo, err := netinfo.NewGeoResolver(cfg.GeoIP)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open geoip databases")
	}
	if geo != nil {
		defer geo.Close()
		log.Info().Str("city_db", cfg.GeoIP.CityDB).Str("asn_db", cfg.GeoIP.ASNDB).Msg("geoip fallback enabled")
	}

	renderer, err := page.NewRenderer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build denial page")
	}

	handler := api.NewHandler(cfg,
		cors.NewPolicy(cfg.CORS),
		upstream.NewAccessClient(cfg.IdentityBaseURL(), cfg.Auth.Cookie, cfg.UpstreamTimeout()),
		upstream.NewAPIClient(cfg.Upstream.APIBaseURL, cfg.Org.AccountID, cfg.Upstream.BearerToken, cfg.UpstreamTimeout()),
		cache.New(cfg.Cache.Capacity, cfg.CacheTTL()),
		netinfo.NewDeriver(geo),
	)

	mux := http.NewServeMux()
	mux.Handle("/healthz", http.HandlerFunc(handleHealth))
	mux.Handle("/readyz", http.HandlerFunc(handleHealth))
	metrics.MustRegister()
	metrics.BuildInfo.Set(1)
	mux.Handle("/metrics", promhttp.Handler())
	// Everything else, API paths and denial page alike, goes through the
	// catch-all router.
	mux.Handle("/", api.NewRouter(handler, renderer))

	root := Chain(
		httputil.RequestIDMiddleware(log.Logger),
	)(mux)

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           root,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadTimeoutMs) * time.Millisecond,
		WriteTimeout:      time.Duration(cfg.Server.WriteTimeoutMs) * time.Millisecond,
		IdleTimeout:       90 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.Server.Listen).Msg("denial page service listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Fatal().Err(err).Msg("server error")
	case sig := <-shutdown:
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("graceful shutdown failed, forcing close")
			srv.Close()
		}
		log.Info().Msg("shutdown complete")
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Middleware wraps an http.Handler and returns a new handler.
type Middleware func(http.Handler) http.Handler

// Chain composes middlewares outermost-first:
// Chain(mw1, mw2)(handler) => mw1(mw2(handler)).
func Chain(middlewares ...Middleware) Middleware {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}
