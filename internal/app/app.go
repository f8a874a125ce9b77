package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jaennil/slippymap/internal/geo"
	v1 "github.com/jaennil/slippymap/internal/infrastructure/http/v1"
	"github.com/jaennil/slippymap/internal/infrastructure/http/v1/handler"
	"github.com/jaennil/slippymap/internal/layer"
	"github.com/jaennil/slippymap/internal/mapview"
	"github.com/jaennil/slippymap/internal/repository/store"
	"github.com/jaennil/slippymap/internal/retriever"
	"github.com/jaennil/slippymap/pkg/config"
	"github.com/jaennil/slippymap/pkg/http_server"
	"github.com/jaennil/slippymap/pkg/logger"
	"github.com/jaennil/slippymap/pkg/telemetry"
)

func Run(cfg *config.Config) {
	zl := logger.NewZapLogger(cfg.Logger.Level)
	defer zl.Sync()

	l := zl.With("service", cfg.Telemetry.ServiceName)

	l.Info("app config", "cfg", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = logger.WithLogger(ctx, l)

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:    cfg.Telemetry.ServiceName,
			ServiceVersion: cfg.Telemetry.ServiceVersion,
			Environment:    cfg.Telemetry.Environment,
			OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		}, l)
		if err != nil {
			l.Fatal("failed to initialize telemetry", "error", err)
		}
		defer func() {
			if err := shutdownTelemetry(context.Background()); err != nil {
				l.Error("failed to shutdown telemetry", "error", err)
			}
		}()
		l.Info("telemetry initialized", "service", cfg.Telemetry.ServiceName)
	}

	tileStore, err := store.New(store.Config{
		Driver:     cfg.Store.Driver,
		SQLitePath: cfg.Store.SQLitePath,
		Redis: store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		},
	}, logger.Component(l, "store"))
	if err != nil {
		l.Fatal("failed to initialize tile store", "error", err)
	}
	defer func() {
		if err := tileStore.Close(); err != nil {
			l.Error("failed to close tile store", "error", err)
		}
	}()

	// the retriever dispatches onto the loop, which only exists once the map
	// view does
	var loop *mapview.Loop
	tileRetriever := retriever.NewHTTPRetriever(retriever.Options{
		BaseURL:   cfg.Upstream.TileServerURL,
		UserAgent: cfg.Upstream.UserAgent,
		Timeout:   cfg.Upstream.Timeout,
		Workers:   cfg.Upstream.Workers,
	}, tileStore, retriever.DispatchFunc(func(fn func()) error {
		return loop.Dispatch(fn)
	}), logger.Component(l, "retriever"))

	view, err := mapview.New(mapview.Options{
		TileSize:         cfg.Map.TileSize,
		MaxZoom:          cfg.Map.MaxZoom,
		Tipping:          cfg.Map.Tipping,
		Padding:          cfg.Map.Padding,
		CacheSize:        cfg.Map.CacheSize,
		EvictAfterPasses: cfg.Map.EvictAfterPasses,
		Width:            cfg.Map.Width,
		Height:           cfg.Map.Height,
	}, geo.Point{Lat: cfg.Map.Latitude, Lon: cfg.Map.Longitude}, cfg.Map.Zoom, tileRetriever, logger.Component(l, "mapview"))
	if err != nil {
		l.Fatal("failed to initialize map view", "error", err)
	}

	markers := layer.NewPointLayer("markers", view.MarkDirty)
	view.AddLayer(markers)
	view.OnRedraw(func(f mapview.Frame) {
		l.Debug("frame rendered",
			"zoom", f.Viewport.Zoom,
			"sprites", len(f.Sprites),
			"elements", len(f.Elements),
			"loading", f.Loading,
		)
	})

	loop = mapview.NewLoop(view, cfg.Map.FrameInterval, cfg.Map.QueueSize, logger.Component(l, "loop"))
	go func() {
		if err := loop.Run(ctx); err != nil {
			l.Error("map loop failed", "error", err)
		}
	}()

	var httpServer *http.Server
	if cfg.HTTP.Enabled {
		h := handler.NewHandler(loop, markers, validator.New())
		router := v1.NewRouter(h, logger.Component(l, "http"), cfg.Telemetry.Enabled, cfg.Telemetry.ServiceName)
		httpServer = http_server.NewServer(ctx, cfg.HTTP.Server, router)

		go func() {
			l.Info("starting http server...", "address", httpServer.Addr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				l.Fatal("http server failed", "error", err)
			}
		}()
	}

	<-ctx.Done()
	l.Info("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if httpServer != nil {
		l.Info("shutting down http server...", "address", httpServer.Addr)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			l.Error("http server shutdown failed", "error", err)
		} else {
			l.Info("http server shutdown completed")
		}
	}

	select {
	case <-loop.Done():
	case <-shutdownCtx.Done():
		l.Warn("timeout waiting for map loop to stop")
	}

	tileRetriever.Close()
	// the loop has stopped, so this goroutine owns the map view now
	view.Close()
	markers.Close()

	l.Info("application shutdown completed")
}
