package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jengzang/visits-backend-go/internal/api"
	"github.com/jengzang/visits-backend-go/internal/broadcast"
	"github.com/jengzang/visits-backend-go/internal/database"
	"github.com/jengzang/visits-backend-go/internal/handler"
	"github.com/jengzang/visits-backend-go/internal/repository"
	"github.com/jengzang/visits-backend-go/internal/service"
	"github.com/jengzang/visits-backend-go/internal/visits"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		db, err := database.Open(database.Config{Path: cfg.Store.Path, MaxOpenConns: cfg.Store.MaxOpenConns})
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(ctx, db); err != nil {
			return err
		}

		places := repository.NewPlaceRepository(db)
		visitRepo := repository.NewVisitRepository(db)
		settingsRepo := repository.NewSettingsRepository(db, cfg.Visits)

		resolver, indexer, closeResolver, err := newResolver(ctx, places)
		if err != nil {
			return err
		}
		defer closeResolver()

		hub := broadcast.NewHub(cfg.Broadcast.BufferSize)
		engine := visits.NewEngine(visitRepo, resolver, settingsRepo, hub, visits.WithLogger(zap.L()))

		visitService := service.NewVisitService(engine, visitRepo)
		router := api.SetupRouter(cfg, api.Handlers{
			Ping:     handler.NewPingHandler(visitService),
			Visit:    handler.NewVisitHandler(visitService, hub),
			Place:    handler.NewPlaceHandler(service.NewPlaceService(places, indexer)),
			Settings: handler.NewSettingsHandler(service.NewSettingsService(settingsRepo)),
		})

		addr := servePort
		if addr == "" {
			addr = cfg.Server.Port
		}
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.String("addr", addr), zap.String("resolver", cfg.Resolver.Driver))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
			defer cancel()
			return eris.Wrap(srv.Shutdown(shutdownCtx), "server shutdown")
		})

		return g.Wait()
	},
}

// newResolver builds the nearest-place resolver selected by configuration.
// The returned indexer is nil unless places must be mirrored elsewhere.
func newResolver(ctx context.Context, places *repository.PlaceRepository) (visits.Resolver, service.PlaceIndexer, func(), error) {
	if cfg.Resolver.Driver != "postgis" {
		return places, nil, func() {}, nil
	}

	pool, err := repository.ConnectPostGIS(ctx, cfg.Resolver.DatabaseURL)
	if err != nil {
		return nil, nil, nil, err
	}
	index := repository.NewPostGISIndex(pool)
	if err := index.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	n, err := index.Rebuild(ctx, places)
	if err != nil {
		pool.Close()
		return nil, nil, nil, err
	}
	zap.L().Info("postgis index loaded", zap.Int("places", n))
	return index, index, pool.Close, nil
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
