// Command sync runs a single synchronization cycle and exits. It is useful
// for cron-driven setups and for debugging a device's queue without starting
// the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"paisa/internal/config"
	"paisa/internal/database"
	"paisa/internal/logger"
	"paisa/internal/remote"
	"paisa/internal/store"
	"paisa/internal/syncer"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	log := logger.Get()

	dbManager, err := database.NewManager(cfg.DBPath)
	if err != nil {
		log.Errorw("failed to open local store", "error", err)
		os.Exit(1)
	}
	if err := dbManager.Migrate(); err != nil {
		log.Errorw("failed to run local store migrations", "error", err)
		os.Exit(1)
	}

	localStore := store.NewStore(dbManager.DB())
	peer := remote.NewHTTPPeer(cfg.RemoteURL, cfg.RemoteAPIKey,
		&http.Client{Timeout: cfg.RequestTimeout})
	worker := syncer.NewWorker(localStore, peer, log,
		cfg.SyncInterval, cfg.UploadBatchSize,
		syncer.Backoff{Base: cfg.BackoffBase, Cap: cfg.BackoffCap})

	result, err := worker.RunCycle(context.Background())
	if err != nil {
		log.Errorw("sync cycle failed", "error", err)
		os.Exit(2)
	}
	if result == nil {
		log.Infow("remote peer unreachable, nothing synced")
		return
	}

	log.Infow("sync cycle completed",
		"uploaded", result.Uploaded,
		"acked", result.Acked,
		"downloaded", result.Downloaded,
		"reconciled", result.Reconciled,
		"quarantined", result.Quarantined,
		"skipped", result.Skipped,
		"rejected", result.Rejected,
	)
}
