package syncer

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "paisa/internal/errors"
	"paisa/internal/models"
	"paisa/internal/remote"
	"paisa/internal/store"
)

// State names the worker's position in its cycle.
type State string

const (
	StateIdle        State = "idle"
	StateChecking    State = "checking-connectivity"
	StateUploading   State = "uploading"
	StateDownloading State = "downloading"
	StateReconciling State = "reconciling"
	StateBackoff     State = "backoff"
)

// CycleResult summarizes one sync pass.
type CycleResult struct {
	Uploaded    int
	Acked       int
	Downloaded  int
	Reconciled  int
	Quarantined int
	Skipped     int // malformed remote payloads logged and skipped
	Rejected    int // push entries the peer rejected
}

// Worker drives the sync queue against the remote peer and applies
// remote-origin changes back into the local store. It runs as a background
// task: it snapshots what it needs from the store, suspends at network
// boundaries without holding the store, and re-acquires it only to apply
// acknowledgements or reconciled writes.
type Worker struct {
	store     *store.Store
	peer      remote.Peer
	log       *zap.SugaredLogger
	interval  time.Duration
	batchSize int
	backoff   Backoff

	mu     sync.Mutex
	state  State
	signal chan struct{}
}

// NewWorker creates a Worker. backoff carries the bounded exponential retry
// parameters used after transport failures.
func NewWorker(s *store.Store, peer remote.Peer, log *zap.SugaredLogger, interval time.Duration, batchSize int, backoff Backoff) *Worker {
	return &Worker{
		store:     s,
		peer:      peer,
		log:       log,
		interval:  interval,
		batchSize: batchSize,
		backoff:   backoff,
		state:     StateIdle,
		signal:    make(chan struct{}, 1),
	}
}

// State reports the worker's current state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) setState(s State) {
	w.mu.Lock()
	prev := w.state
	w.state = s
	w.mu.Unlock()
	if prev != s {
		w.log.Debugw("sync worker state", "from", prev, "to", s)
	}
}

// Notify signals connectivity was restored, waking the worker immediately
// instead of waiting for the next periodic tick. Never blocks.
func (w *Worker) Notify() {
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

// Run loops until the context is cancelled, starting a cycle every interval
// or when Notify fires. Transport failures move the worker into backoff with
// a bounded, jittered delay; they are never fatal.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.setState(StateIdle)
			return
		case <-ticker.C:
		case <-w.signal:
		}

		for {
			result, err := w.RunCycle(ctx)
			if err == nil {
				w.backoff.Reset()
				if result != nil && (result.Uploaded > 0 || result.Reconciled > 0) {
					w.log.Infow("sync cycle completed",
						"uploaded", result.Uploaded,
						"acked", result.Acked,
						"reconciled", result.Reconciled,
						"quarantined", result.Quarantined,
						"skipped", result.Skipped,
					)
				}
				break
			}
			if ctx.Err() != nil {
				return
			}

			delay := w.backoff.Next()
			w.log.Warnw("sync cycle failed, backing off", "error", err, "delay", delay.String())
			w.setState(StateBackoff)
			select {
			case <-ctx.Done():
				w.setState(StateIdle)
				return
			case <-time.After(delay):
			}
		}
	}
}

// RunCycle executes a single pass: connectivity check, upload, download,
// reconcile. Returns nil, nil when offline. A returned error is a transport
// failure; queued data is untouched and the caller decides the retry policy.
func (w *Worker) RunCycle(ctx context.Context) (*CycleResult, error) {
	w.setState(StateChecking)
	if err := w.peer.Check(ctx); err != nil {
		w.setState(StateIdle)
		return nil, nil // offline: stay quiet, keep queueing
	}

	result := &CycleResult{}

	if err := w.upload(ctx, result); err != nil {
		w.setState(StateIdle)
		return result, err
	}
	if err := w.download(ctx, result); err != nil {
		w.setState(StateIdle)
		return result, err
	}

	w.setState(StateIdle)
	return result, nil
}

// upload drains the sync queue in batches, in queue order. The batch is
// snapshotted before the network call; acknowledgements are applied after.
func (w *Worker) upload(ctx context.Context, result *CycleResult) error {
	w.setState(StateUploading)

	for {
		entries, err := w.store.PeekBatch(w.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}

		batch, err := w.buildPushBatch(entries)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}

		results, err := w.peer.Push(ctx, batch)
		if err != nil {
			return err // transport failure: batch stays queued
		}
		result.Uploaded += len(batch)

		ackedThisBatch := 0
		for _, r := range results {
			if r.Rejected {
				result.Rejected++
				w.log.Warnw("push entry rejected by peer",
					"transaction_id", r.TransactionID, "reason", r.Reason)
				continue
			}
			acked, err := w.store.Acknowledge(r.TransactionID, r.AcceptedVersion)
			if err != nil {
				return err
			}
			if acked {
				ackedThisBatch++
				result.Acked++
			}
			if _, err := w.store.MarkSynced(r.TransactionID, r.AcceptedVersion); err != nil &&
				!stderrors.Is(err, apperrors.ErrTransactionNotFound) {
				return err
			}
		}

		if len(entries) < w.batchSize {
			return nil
		}
		if ackedThisBatch == 0 {
			// Nothing left the queue (rejections or stale acks); stop rather
			// than spin on the same batch within one cycle.
			return nil
		}
	}
}

// buildPushBatch collapses queue entries to one record per transaction,
// carrying the transaction's current state and version. Entries whose
// transaction has vanished (purged tombstones) are acknowledged away.
func (w *Worker) buildPushBatch(entries []models.SyncEntry) ([]remote.PushEntry, error) {
	seen := make(map[string]bool)
	batch := make([]remote.PushEntry, 0, len(entries))

	for _, entry := range entries {
		if seen[entry.TransactionID] {
			continue
		}
		seen[entry.TransactionID] = true

		t, err := w.store.GetByID(entry.TransactionID)
		if err != nil {
			if stderrors.Is(err, apperrors.ErrTransactionNotFound) {
				if _, ackErr := w.store.Acknowledge(entry.TransactionID, entry.Version); ackErr != nil {
					return nil, ackErr
				}
				continue
			}
			return nil, err
		}

		batch = append(batch, remote.PushEntry{
			Op:     string(entry.Op),
			Record: toRecord(t),
		})
	}
	return batch, nil
}

// download pulls remote-origin changes since the durable cursor, plus any
// quarantined rows flagged for re-fetch, and reconciles each into the store.
// The cursor advances only after the whole page has been applied.
func (w *Worker) download(ctx context.Context, result *CycleResult) error {
	w.setState(StateDownloading)

	refetchIDs, err := w.store.RefetchIDs()
	if err != nil {
		return err
	}
	if len(refetchIDs) > 0 {
		records, err := w.peer.Fetch(ctx, refetchIDs)
		if err != nil {
			return err
		}
		w.setState(StateReconciling)
		for _, record := range records {
			w.reconcile(record, result)
		}
		w.setState(StateDownloading)
	}

	checkpoint, err := w.store.Checkpoint()
	if err != nil {
		return err
	}
	cursor := checkpoint.Cursor

	for {
		page, err := w.peer.Pull(ctx, cursor)
		if err != nil {
			return err
		}
		if len(page.Changes) == 0 {
			return nil
		}
		result.Downloaded += len(page.Changes)

		w.setState(StateReconciling)
		for _, record := range page.Changes {
			w.reconcile(record, result)
		}

		cursor = page.NextCursor
		if err := w.store.AdvanceCheckpoint(cursor); err != nil {
			return err
		}
		w.setState(StateDownloading)
	}
}

// reconcile applies one remote change. A malformed payload is logged and
// skipped without blocking the rest of the batch; an integrity mismatch
// quarantines the transaction; everything else flows through the resolver.
func (w *Worker) reconcile(record remote.Record, result *CycleResult) {
	incoming, err := fromRecord(record)
	if err != nil {
		result.Skipped++
		w.log.Warnw("skipping malformed remote payload",
			"transaction_id", record.TransactionID, "error", err)
		return
	}

	if err := Verify(incoming, record.Fingerprint); err != nil {
		result.Quarantined++
		w.log.Warnw("integrity violation, quarantining",
			"transaction_id", incoming.ID, "error", err)
		w.quarantine(incoming)
		return
	}

	local, err := w.store.GetByID(incoming.ID)
	if err != nil {
		if stderrors.Is(err, apperrors.ErrTransactionNotFound) {
			incoming.SyncStatus = models.SyncStatusSynced
			if err := w.store.ApplyRemote(incoming); err != nil {
				w.log.Errorw("failed to apply remote create", "transaction_id", incoming.ID, "error", err)
				return
			}
			result.Reconciled++
			return
		}
		w.log.Errorw("failed to load local transaction", "transaction_id", incoming.ID, "error", err)
		return
	}

	merged, _ := Resolve(local, incoming)

	// Resolution matching the peer's copy is recorded as synced and never
	// re-queued. This also restores quarantined rows once a clean copy
	// arrives.
	if merged.Version == incoming.Version && merged.Snapshot() == incoming.Snapshot() {
		if merged.Version == local.Version && merged.Snapshot() == local.Snapshot() &&
			local.SyncStatus == models.SyncStatusSynced {
			return // peer echoed a row already in sync
		}
		merged.SyncStatus = models.SyncStatusSynced
		if err := w.store.ApplyRemote(merged); err != nil {
			w.log.Errorw("failed to apply reconciled write", "transaction_id", merged.ID, "error", err)
			return
		}
		result.Reconciled++
		return
	}

	// The resolved content is ahead of the peer's copy and must travel back.
	if merged.Version == local.Version && merged.Snapshot() == local.Snapshot() &&
		local.SyncStatus == models.SyncStatusPending {
		return // the local edit is already queued, the pull changed nothing
	}
	if err := w.store.ApplyMerged(merged, incoming.Snapshot()); err != nil {
		w.log.Errorw("failed to apply merged write", "transaction_id", merged.ID, "error", err)
		return
	}
	result.Reconciled++
}

// quarantine stores or marks the affected transaction as conflicted so it is
// excluded from aggregates until a clean copy is re-fetched.
func (w *Worker) quarantine(incoming *models.Transaction) {
	if _, err := w.store.GetByID(incoming.ID); err != nil {
		if stderrors.Is(err, apperrors.ErrTransactionNotFound) {
			incoming.SyncStatus = models.SyncStatusConflict
			incoming.NeedsRefetch = true
			if applyErr := w.store.ApplyRemote(incoming); applyErr != nil {
				w.log.Errorw("failed to store quarantined transaction", "transaction_id", incoming.ID, "error", applyErr)
			}
		}
		return
	}
	if err := w.store.Quarantine(incoming.ID); err != nil {
		w.log.Errorw("failed to quarantine transaction", "transaction_id", incoming.ID, "error", err)
	}
}

// toRecord converts a stored transaction to its wire form.
func toRecord(t *models.Transaction) remote.Record {
	return remote.Record{
		TransactionID:  t.ID,
		Type:           string(t.Type),
		Amount:         t.Amount.String(),
		Category:       t.Category,
		Description:    t.Description,
		Date:           t.Date,
		Time:           t.Time,
		Channel:        string(t.Channel),
		Version:        t.Version,
		Deleted:        t.Deleted,
		LastModifiedAt: t.LastModifiedAt,
		Fingerprint:    t.Fingerprint,
	}
}

// fromRecord converts a wire record to a transaction, rejecting structurally
// malformed payloads.
func fromRecord(r remote.Record) (*models.Transaction, error) {
	if r.TransactionID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "remote record has no transaction_id")
	}
	transactionType := models.TransactionType(r.Type)
	switch transactionType {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "remote record has an unknown transaction_type")
	}
	channel := models.SourceChannel(r.Channel)
	switch channel {
	case models.ChannelVoice, models.ChannelText, models.ChannelPhoto, models.ChannelAutoSync:
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "remote record has an unknown source_channel")
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrMalformedAmount, err)
	}
	if r.Version < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "remote record has a non-positive version")
	}

	return &models.Transaction{
		ID:             r.TransactionID,
		Type:           transactionType,
		Amount:         amount,
		Category:       r.Category,
		Description:    r.Description,
		Date:           r.Date,
		Time:           r.Time,
		Channel:        channel,
		Version:        r.Version,
		Deleted:        r.Deleted,
		LastModifiedAt: r.LastModifiedAt,
	}, nil
}
