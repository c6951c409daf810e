package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"gambit/application/domain"
)

// ErrVersionGap is returned when a broadcast skips ahead of the local
// version. The replica cannot apply it and needs a full snapshot.
var ErrVersionGap = errors.New("client: version gap detected, resync required")

// SnapshotRequester asks the server for a full board snapshot.
type SnapshotRequester interface {
	RequestSnapshot(ctx context.Context) error
}

// Reconciler maintains the local board replica by applying the server's
// broadcast stream. Broadcasts at or below the local version are
// duplicates and are discarded. Exactly version+1 is applied as a delta.
// Anything further ahead triggers a resync.
type Reconciler struct {
	mu        sync.RWMutex
	positions map[string]domain.Cell
	status    domain.GameStatus
	version   uint64

	requester SnapshotRequester
}

func NewReconciler(requester SnapshotRequester) *Reconciler {
	return &Reconciler{
		positions: make(map[string]domain.Cell),
		status:    domain.StatusActive,
		requester: requester,
	}
}

// Reconcile applies one broadcast result. It returns true when the delta
// was applied, false when it was discarded as stale.
func (r *Reconciler) Reconcile(ctx context.Context, result domain.ExecutionResult) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case result.Version <= r.version:
		// 再送や順序入れ替えによる古い差分。適用済みなので捨てる。
		slog.DebugContext(ctx, "stale broadcast discarded",
			"local", r.version, "got", result.Version)
		return false, nil
	case result.Version == r.version+1:
		r.apply(result)
		r.version = result.Version
		return true, nil
	default:
		slog.WarnContext(ctx, "version gap detected",
			"local", r.version, "got", result.Version)
		if r.requester != nil {
			if err := r.requester.RequestSnapshot(ctx); err != nil {
				return false, errors.Join(ErrVersionGap, err)
			}
		}
		return false, ErrVersionGap
	}
}

// apply mutates the replica from the result fields alone, so new command
// kinds that reuse the same fields need no client change. To moves the
// acting piece; Target is informational only, removals arrive as Captured.
func (r *Reconciler) apply(result domain.ExecutionResult) {
	if result.Captured != "" {
		delete(r.positions, result.Captured)
	}
	if result.To != nil {
		r.positions[result.PieceID] = *result.To
	}
	if result.RookID != "" && result.RookTo != nil {
		r.positions[result.RookID] = *result.RookTo
	}
	if result.Status != "" {
		r.status = result.Status
	}
}

// ApplySnapshot adopts a full snapshot if it is newer than the replica.
func (r *Reconciler) ApplySnapshot(snap domain.BoardSnapshot) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if snap.Version < r.version {
		return false
	}
	positions := make(map[string]domain.Cell, len(snap.Positions))
	for id, cell := range snap.Positions {
		positions[id] = cell
	}
	r.positions = positions
	r.status = snap.Status
	r.version = snap.Version
	return true
}

func (r *Reconciler) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

func (r *Reconciler) Status() domain.GameStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// PiecePosition returns the replica position of a piece.
func (r *Reconciler) PiecePosition(pieceID string) (domain.Cell, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cell, ok := r.positions[pieceID]
	return cell, ok
}

// Positions returns a copy of all replica positions.
func (r *Reconciler) Positions() map[string]domain.Cell {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]domain.Cell, len(r.positions))
	for id, cell := range r.positions {
		out[id] = cell
	}
	return out
}
