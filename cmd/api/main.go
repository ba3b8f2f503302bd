package main

import (
	"context"
	"net"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"

	"github.com/inkleafbooks/inkleaf/pkg/config"
	"github.com/inkleafbooks/inkleaf/pkg/database"
	"github.com/inkleafbooks/inkleaf/pkg/extract"
	"github.com/inkleafbooks/inkleaf/pkg/migrations"
	"github.com/inkleafbooks/inkleaf/pkg/server"
	"github.com/inkleafbooks/inkleaf/pkg/storage"
	"github.com/inkleafbooks/inkleaf/pkg/termmine"
	"github.com/inkleafbooks/inkleaf/pkg/version"
	"github.com/inkleafbooks/inkleaf/pkg/worker"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting inkleaf", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	store := storage.NewLocal(
		filepath.Join(cfg.DataDir, "objects"),
		cfg.BaseURL,
		[]byte(cfg.StorageSecret),
		cfg.SignedURLTTL,
	)

	var miner *termmine.Client
	if cfg.AIEnabled() {
		miner = termmine.New(termmine.Config{
			BaseURL:       cfg.AIBaseURL,
			APIKey:        cfg.AIAPIKey,
			Model:         cfg.AIModel,
			MinTextChars:  cfg.AIMinTextChars,
			MaxInputChars: cfg.AIMaxInputChars,
			Timeout:       cfg.AITimeout,
		})
		log.Info("term mining enabled", logger.Data{"model": cfg.AIModel})
	} else {
		log.Info("term mining disabled")
	}

	extractor := extract.NewCommandExtractor(cfg.ExtractorCommand)

	wrkr := worker.New(cfg, db, store, extractor, miner)

	srv, err := server.New(cfg, db, store)
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := srv.Addr
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		actualPort := listener.Addr().(*net.TCPAddr).Port
		log.Info("server started", logger.Data{"port": strconv.Itoa(actualPort)})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	wrkr.Start()
	log.Info("worker started")

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	wrkr.Shutdown()
	log.Info("worker shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}
