package client

import (
	"context"
	"errors"
	"testing"

	"gambit/application/domain"
)

type recordingRequester struct {
	calls int
	err   error
}

func (r *recordingRequester) RequestSnapshot(context.Context) error {
	r.calls++
	return r.err
}

func seededReconciler(t *testing.T, requester SnapshotRequester) *Reconciler {
	t.Helper()
	r := NewReconciler(requester)
	ok := r.ApplySnapshot(domain.BoardSnapshot{
		Positions: map[string]domain.Cell{
			"p1": {Row: 0, Col: 0},
			"p2": {Row: 7, Col: 7},
		},
		Bounds:  domain.Bounds{Width: 8, Height: 8},
		Status:  domain.StatusActive,
		Version: 10,
	})
	if !ok {
		t.Fatal("initial snapshot not applied")
	}
	return r
}

func moveResult(version uint64, pieceID string, to domain.Cell) domain.ExecutionResult {
	return domain.ExecutionResult{Kind: "move_executed", PieceID: pieceID, To: &to, Version: version}
}

func TestReconcileAppliesNextVersion(t *testing.T) {
	r := seededReconciler(t, nil)

	applied, err := r.Reconcile(context.Background(), moveResult(11, "p1", domain.Cell{Row: 0, Col: 1}))
	if err != nil || !applied {
		t.Fatalf("applied=%v err=%v", applied, err)
	}
	if r.Version() != 11 {
		t.Errorf("Version = %d, want 11", r.Version())
	}
	if cell, _ := r.PiecePosition("p1"); cell != (domain.Cell{Row: 0, Col: 1}) {
		t.Errorf("position = %v", cell)
	}
}

func TestReconcileDiscardsStaleBroadcast(t *testing.T) {
	r := seededReconciler(t, nil)

	// ちょうどローカルと同じバージョン（重複配信）は無視
	applied, err := r.Reconcile(context.Background(), moveResult(10, "p1", domain.Cell{Row: 5, Col: 5}))
	if err != nil || applied {
		t.Fatalf("applied=%v err=%v, want discard", applied, err)
	}
	if cell, _ := r.PiecePosition("p1"); cell != (domain.Cell{Row: 0, Col: 0}) {
		t.Errorf("stale broadcast mutated replica: %v", cell)
	}

	// 再適用もべき等に捨てられる
	if applied, _ := r.Reconcile(context.Background(), moveResult(9, "p1", domain.Cell{Row: 3, Col: 3})); applied {
		t.Error("older broadcast applied")
	}
}

func TestReconcileGapTriggersResync(t *testing.T) {
	requester := &recordingRequester{}
	r := seededReconciler(t, requester)

	applied, err := r.Reconcile(context.Background(), moveResult(13, "p1", domain.Cell{Row: 1, Col: 0}))
	if applied {
		t.Error("gapped broadcast applied")
	}
	if !errors.Is(err, ErrVersionGap) {
		t.Fatalf("err = %v, want ErrVersionGap", err)
	}
	if requester.calls != 1 {
		t.Errorf("RequestSnapshot calls = %d, want 1", requester.calls)
	}
	// レプリカはスナップショット到着まで旧バージョンのまま
	if r.Version() != 10 {
		t.Errorf("Version = %d, want 10", r.Version())
	}

	// サーバーからフルスナップショットが届いて回復する
	ok := r.ApplySnapshot(domain.BoardSnapshot{
		Positions: map[string]domain.Cell{"p1": {Row: 1, Col: 0}},
		Status:    domain.StatusActive,
		Version:   13,
	})
	if !ok || r.Version() != 13 {
		t.Errorf("recovery failed: ok=%v version=%d", ok, r.Version())
	}
}

func TestReconcileAppliesCaptureAndStatus(t *testing.T) {
	r := seededReconciler(t, nil)
	to := domain.Cell{Row: 7, Col: 7}

	applied, err := r.Reconcile(context.Background(), domain.ExecutionResult{
		Kind:     "capture_executed",
		PieceID:  "p1",
		To:       &to,
		Captured: "p2",
		Version:  11,
	})
	if err != nil || !applied {
		t.Fatalf("applied=%v err=%v", applied, err)
	}
	if _, ok := r.PiecePosition("p2"); ok {
		t.Error("captured piece still present")
	}
	if cell, _ := r.PiecePosition("p1"); cell != to {
		t.Errorf("capturer position = %v", cell)
	}

	applied, err = r.Reconcile(context.Background(), domain.ExecutionResult{
		Kind:    "resign_executed",
		PieceID: "p1",
		Status:  domain.StatusResigned,
		Version: 12,
	})
	if err != nil || !applied {
		t.Fatalf("applied=%v err=%v", applied, err)
	}
	if r.Status() != domain.StatusResigned {
		t.Errorf("Status = %q", r.Status())
	}
}

func TestReconcileAttackKeepsAttackerInPlace(t *testing.T) {
	r := seededReconciler(t, nil)

	target := domain.Cell{Row: 7, Col: 7}
	ok, err := r.Reconcile(context.Background(), domain.ExecutionResult{
		Kind:     "attack_executed",
		PieceID:  "p1",
		Target:   &target,
		Captured: "p2",
		Version:  11,
	})
	if err != nil || !ok {
		t.Fatalf("Reconcile = %v, %v", ok, err)
	}
	if cell, found := r.PiecePosition("p1"); !found || cell != (domain.Cell{Row: 0, Col: 0}) {
		t.Errorf("attacker at %v, want (0,0)", cell)
	}
	if _, found := r.PiecePosition("p2"); found {
		t.Error("captured target still on replica")
	}
}

func TestReconcileAppliesCastleRookMove(t *testing.T) {
	r := seededReconciler(t, nil)
	kingTo := domain.Cell{Row: 0, Col: 6}
	rookTo := domain.Cell{Row: 0, Col: 5}

	applied, err := r.Reconcile(context.Background(), domain.ExecutionResult{
		Kind:    "castle_executed",
		PieceID: "p1",
		To:      &kingTo,
		RookID:  "p2",
		RookTo:  &rookTo,
		Version: 11,
	})
	if err != nil || !applied {
		t.Fatalf("applied=%v err=%v", applied, err)
	}
	if cell, _ := r.PiecePosition("p1"); cell != kingTo {
		t.Errorf("king position = %v", cell)
	}
	if cell, _ := r.PiecePosition("p2"); cell != rookTo {
		t.Errorf("rook position = %v", cell)
	}
}

func TestApplySnapshotIgnoresOlder(t *testing.T) {
	r := seededReconciler(t, nil)

	if r.ApplySnapshot(domain.BoardSnapshot{Version: 5}) {
		t.Error("older snapshot adopted")
	}
	if r.Version() != 10 {
		t.Errorf("Version = %d, want 10", r.Version())
	}
}
