package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"paisa/internal/store"
	"paisa/internal/syncer"
)

// SyncHandler surfaces synchronization state and lets the UI nudge the worker.
type SyncHandler struct {
	store  *store.Store
	worker *syncer.Worker
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(s *store.Store, worker *syncer.Worker) *SyncHandler {
	return &SyncHandler{store: s, worker: worker}
}

// GetStatus reports the worker state, pending/conflict counts, queue depth,
// and the last successful sync time for the UI's background indicator.
func (h *SyncHandler) GetStatus(c *gin.Context) {
	status, err := h.store.SyncStatus()
	if err != nil {
		respondWithError(c, err)
		return
	}

	checkpoint, err := h.store.Checkpoint()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":          h.worker.State(),
		"pending":        status.Pending,
		"conflict":       status.Conflict,
		"queue_depth":    status.QueueDepth,
		"last_synced_at": checkpoint.LastSyncedAt,
	})
}

// TriggerSync signals the worker to run a cycle immediately instead of
// waiting for the next tick. The cycle runs in the background.
func (h *SyncHandler) TriggerSync(c *gin.Context) {
	h.worker.Notify()
	c.JSON(http.StatusAccepted, gin.H{"message": "Sync triggered"})
}
