package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/kasunvimarshana/TrackVault-sub000/config"
	"github.com/kasunvimarshana/TrackVault-sub000/store"
	"github.com/kasunvimarshana/TrackVault-sub000/store/postgres"
	"github.com/kasunvimarshana/TrackVault-sub000/store/sqlite"
)

func main() {
	config, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	recordStore, err := openStore(config)
	if err != nil {
		log.Fatalf("failed to open record store: %v", err)
	}
	defer recordStore.Close()

	quitChan := make(chan struct{})
	syncServer := NewSyncServer(config, recordStore, logger)
	syncServer.Start(quitChan)

	httpServer := &http.Server{
		Addr:              config.ListenAddress,
		Handler:           syncServer.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info("server listening", "address", config.ListenAddress)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("failed to serve: %v", err)
	}
}

func openStore(config *config.Config) (store.RecordStore, error) {
	if config.PgDatabaseUrl != "" {
		return postgres.NewPgRecordStore(config.PgDatabaseUrl)
	}
	if err := os.MkdirAll(config.SQLiteDirPath, 0o700); err != nil {
		return nil, err
	}
	return sqlite.NewSQLiteRecordStore(filepath.Join(config.SQLiteDirPath, "records.db"))
}
