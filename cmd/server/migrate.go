package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jengzang/visits-backend-go/internal/database"
	"github.com/jengzang/visits-backend-go/internal/repository"
)

var migrateReindex bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		db, err := database.Open(database.Config{Path: cfg.Store.Path, MaxOpenConns: cfg.Store.MaxOpenConns})
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(ctx, db); err != nil {
			return err
		}

		if !migrateReindex || cfg.Resolver.Driver != "postgis" {
			return nil
		}

		pool, err := repository.ConnectPostGIS(ctx, cfg.Resolver.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		index := repository.NewPostGISIndex(pool)
		if err := index.EnsureSchema(ctx); err != nil {
			return err
		}
		n, err := index.Rebuild(ctx, repository.NewPlaceRepository(db))
		if err != nil {
			return err
		}
		zap.L().Info("postgis index rebuilt", zap.Int("places", n))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateReindex, "reindex", false, "rebuild the postgis place index after migrating")
	rootCmd.AddCommand(migrateCmd)
}
