package memory

import (
	"errors"
	"testing"

	"pgregory.net/rapid"

	"gambit/application/domain"
)

func newTestBoard(t *testing.T) *Board {
	t.Helper()
	b, err := NewBoard(domain.Bounds{Width: 8, Height: 8}, map[string]domain.Cell{
		"pawn_w_4": {Row: 1, Col: 4},
		"rook_w_0": {Row: 0, Col: 0},
	})
	if err != nil {
		t.Fatalf("NewBoard failed: %v", err)
	}
	return b
}

func TestNewBoardRejectsBadInput(t *testing.T) {
	if _, err := NewBoard(domain.Bounds{Width: 0, Height: 8}, nil); !errors.Is(err, ErrInvalidBounds) {
		t.Errorf("zero width: err = %v, want ErrInvalidBounds", err)
	}
	_, err := NewBoard(domain.Bounds{Width: 4, Height: 4}, map[string]domain.Cell{
		"p1": {Row: 9, Col: 0},
	})
	if !errors.Is(err, ErrCellOutside) {
		t.Errorf("outside piece: err = %v, want ErrCellOutside", err)
	}
}

func TestCommitBumpsVersionByOne(t *testing.T) {
	b := newTestBoard(t)
	if b.Version() != 0 {
		t.Fatalf("initial version = %d, want 0", b.Version())
	}

	txn := b.Begin()
	txn.Set("pawn_w_4", domain.Cell{Row: 3, Col: 4})
	version, err := txn.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if version != 1 || b.Version() != 1 {
		t.Errorf("version = %d / %d, want 1", version, b.Version())
	}

	cell, ok := b.PiecePosition("pawn_w_4")
	if !ok || cell != (domain.Cell{Row: 3, Col: 4}) {
		t.Errorf("position = %v ok=%v", cell, ok)
	}
}

func TestCommitIsAllOrNothing(t *testing.T) {
	b := newTestBoard(t)

	txn := b.Begin()
	txn.Set("pawn_w_4", domain.Cell{Row: 2, Col: 4})
	txn.Set("rook_w_0", domain.Cell{Row: 99, Col: 0}) // 範囲外
	if _, err := txn.Commit(); !errors.Is(err, ErrCellOutside) {
		t.Fatalf("err = %v, want ErrCellOutside", err)
	}

	// 失敗したコミットは盤面にもバージョンにも触れない
	if b.Version() != 0 {
		t.Errorf("version = %d, want 0", b.Version())
	}
	if cell, _ := b.PiecePosition("pawn_w_4"); cell != (domain.Cell{Row: 1, Col: 4}) {
		t.Errorf("pawn moved despite failed commit: %v", cell)
	}
}

func TestCommitRejectsMissingPieceRemoval(t *testing.T) {
	b := newTestBoard(t)
	txn := b.Begin()
	txn.Remove("ghost")
	if _, err := txn.Commit(); !errors.Is(err, ErrPieceMissing) {
		t.Errorf("err = %v, want ErrPieceMissing", err)
	}
}

func TestTxnCannotCommitTwice(t *testing.T) {
	b := newTestBoard(t)
	txn := b.Begin()
	txn.Set("pawn_w_4", domain.Cell{Row: 2, Col: 4})
	if _, err := txn.Commit(); err != nil {
		t.Fatalf("first Commit failed: %v", err)
	}
	if _, err := txn.Commit(); !errors.Is(err, ErrTxnDone) {
		t.Errorf("second Commit err = %v, want ErrTxnDone", err)
	}
	if b.Version() != 1 {
		t.Errorf("version = %d, want 1", b.Version())
	}
}

func TestStatusChangeConsumesVersion(t *testing.T) {
	b := newTestBoard(t)
	txn := b.Begin()
	txn.SetStatus(domain.StatusResigned)
	version, err := txn.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if version != 1 {
		t.Errorf("version = %d, want 1", version)
	}
	if b.Status() != domain.StatusResigned {
		t.Errorf("status = %q, want resigned", b.Status())
	}
}

func TestSnapshotIsIsolated(t *testing.T) {
	b := newTestBoard(t)
	snap := b.Snapshot()

	txn := b.Begin()
	txn.Set("pawn_w_4", domain.Cell{Row: 5, Col: 4})
	if _, err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	if snap.Positions["pawn_w_4"] != (domain.Cell{Row: 1, Col: 4}) {
		t.Errorf("snapshot mutated by later commit: %v", snap.Positions["pawn_w_4"])
	}
	if snap.Version != 0 {
		t.Errorf("snapshot version = %d, want 0", snap.Version)
	}
}

func TestCheckInvariantsDetectsSharedCell(t *testing.T) {
	b := newTestBoard(t)
	if err := b.CheckInvariants(); err != nil {
		t.Fatalf("fresh board: %v", err)
	}

	txn := b.Begin()
	txn.Set("rook_w_0", domain.Cell{Row: 1, Col: 4}) // pawn_w_4 と同じセル
	if _, err := txn.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if err := b.CheckInvariants(); !errors.Is(err, ErrCorruptState) {
		t.Errorf("err = %v, want ErrCorruptState", err)
	}
}

func TestVersionMonotonicityProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b, err := NewBoard(domain.Bounds{Width: 16, Height: 16}, map[string]domain.Cell{
			"p0": {Row: 0, Col: 0},
		})
		if err != nil {
			t.Fatalf("NewBoard failed: %v", err)
		}

		steps := rapid.IntRange(1, 32).Draw(t, "steps")
		var last uint64
		for i := 0; i < steps; i++ {
			txn := b.Begin()
			txn.Set("p0", domain.Cell{
				Row: rapid.IntRange(0, 15).Draw(t, "row"),
				Col: rapid.IntRange(0, 15).Draw(t, "col"),
			})
			version, err := txn.Commit()
			if err != nil {
				t.Fatalf("Commit failed: %v", err)
			}
			if version != last+1 {
				t.Fatalf("version jumped: %d -> %d", last, version)
			}
			last = version
		}
		if b.Version() != uint64(steps) {
			t.Fatalf("final version = %d, want %d", b.Version(), steps)
		}
	})
}

func TestSerializedBoardDelegates(t *testing.T) {
	base := newTestBoard(t)
	sb := NewSerializedBoard(base)

	if sb.Version() != 0 {
		t.Fatalf("version = %d, want 0", sb.Version())
	}
	txn := sb.Begin()
	txn.Set("pawn_w_4", domain.Cell{Row: 2, Col: 4})
	version, err := txn.Commit()
	if err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if version != 1 || sb.Version() != 1 {
		t.Errorf("version = %d / %d, want 1", version, sb.Version())
	}
	if err := sb.CheckInvariants(); err != nil {
		t.Errorf("CheckInvariants: %v", err)
	}
}
