// README: Entry point; loads config, wires the routing, itinerary and chat services, and runs the HTTP server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"navsmart/internal/ai"
	"navsmart/internal/config"
	httptransport "navsmart/internal/http"
	"navsmart/internal/infra"
	"navsmart/internal/maps"
	"navsmart/internal/modules/chat"
	"navsmart/internal/modules/extract"
	"navsmart/internal/modules/itinerary"
	"navsmart/internal/modules/speech"
	"navsmart/internal/observability"
	"navsmart/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("navsmart-api stopped", "error", err)
		os.Exit(1)
	}
}

// run wires every dependency and serves until SIGINT/SIGTERM. Resources are released by
// its defers before main exits.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := observability.NewLogger(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	mapsClient, err := maps.NewClient(cfg.Maps.APIKey)
	if err != nil {
		return fmt.Errorf("maps init: %w", err)
	}

	var cache maps.GeocodeCache = maps.NewMemoryCache(cfg.Cache.TTL)
	if cfg.Cache.RedisAddr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		defer redisClient.Close()
		cache = maps.NewRedisCache(redisClient, cfg.Cache.TTL)
	}

	geocoder := maps.NewGeocoder(mapsClient, cache, metrics)
	routes := maps.NewRouteService(mapsClient, cfg.Maps.DirectionsTimeout, metrics)

	var nerExtractor extract.Extractor
	if cfg.NER.APIKey != "" {
		nerExtractor = extract.NewEntityExtractor(extract.NewHFTagger(cfg.NER.APIKey, cfg.NER.Model, cfg.NER.BaseURL, nil))
	}
	var textExtractor extract.Extractor = extract.KeywordExtractor{}
	if cfg.Extractor == config.ExtractorNER {
		textExtractor = nerExtractor
	}

	deps := service.RoutePlannerDeps{
		Extractor:      textExtractor,
		AudioExtractor: nerExtractor,
		Geocoder:       geocoder,
		Directions:     routes,
		GeocodeTimeout: cfg.Maps.GeocodeTimeout,
		Metrics:        metrics,
	}
	if cfg.Speech.APIKey != "" {
		deps.Transcriber = speech.NewTranscriber(cfg.Speech.APIKey, cfg.Speech.Model, cfg.Speech.BaseURL, nil)
	} else {
		logger.Warn("speech API key not set; audio routing disabled")
	}
	planner := service.NewRoutePlanner(deps)

	provider, err := ai.New(ctx, cfg.LLM, metrics)
	if err != nil {
		return fmt.Errorf("generative backend init: %w", err)
	}
	if closer, ok := provider.(io.Closer); ok {
		defer closer.Close()
	}
	logger.Info("generative backend ready", "provider", provider.Name(), "extractor", textExtractor.Name())

	server := httptransport.NewServer(httptransport.ServerDeps{
		Planner:     planner,
		Itinerary:   itinerary.NewGenerator(provider, cfg.LLM.Timeout),
		Chat:        chat.NewRelay(provider, cfg.HTTP.CORSOrigins, metrics),
		Gatherer:    reg,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		Logger:      logger,
	})

	if err := server.Run(ctx, cfg.HTTP.Addr); err != nil {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
