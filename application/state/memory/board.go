package memory

import (
	"errors"
	"fmt"

	"gambit/application/domain"
	"gambit/application/state"
)

var (
	ErrTxnDone       = errors.New("memory: transaction already finished")
	ErrPieceMissing  = errors.New("memory: piece not on board")
	ErrCellOutside   = errors.New("memory: cell outside board bounds")
	ErrCorruptState  = errors.New("memory: board state corrupted")
	ErrInvalidBounds = errors.New("memory: bounds must be positive")
)

// Board はセッション1つ分の権威的盤面。piece_id → セル位置のマップと
// 単調増加するバージョンカウンタを持つ。ミューテーションはトランザクション
// 経由のみで、コミット1回につきバージョンはちょうど1増える。
type Board struct {
	positions map[string]domain.Cell
	bounds    domain.Bounds
	status    domain.GameStatus
	version   uint64
}

// NewBoard は初期配置をコピーして盤面を生成する。バージョンは0から始まる。
func NewBoard(bounds domain.Bounds, initial map[string]domain.Cell) (*Board, error) {
	if bounds.Width <= 0 || bounds.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidBounds, bounds.Width, bounds.Height)
	}
	b := &Board{
		positions: make(map[string]domain.Cell, len(initial)),
		bounds:    bounds,
		status:    domain.StatusActive,
	}
	for id, cell := range initial {
		if !bounds.Contains(cell) {
			return nil, fmt.Errorf("%w: %s at %s", ErrCellOutside, id, cell)
		}
		b.positions[id] = cell
	}
	return b, nil
}

func (b *Board) PiecePosition(pieceID string) (domain.Cell, bool) {
	cell, ok := b.positions[pieceID]
	return cell, ok
}

func (b *Board) Bounds() domain.Bounds     { return b.bounds }
func (b *Board) Status() domain.GameStatus { return b.status }
func (b *Board) Version() uint64           { return b.version }

// Snapshot は位置マップをディープコピーして返す。
func (b *Board) Snapshot() domain.BoardSnapshot {
	positions := make(map[string]domain.Cell, len(b.positions))
	for id, cell := range b.positions {
		positions[id] = cell
	}
	return domain.BoardSnapshot{
		Positions: positions,
		Bounds:    b.bounds,
		Status:    b.status,
		Version:   b.version,
	}
}

// Begin は新しいトランザクションを開始する。
func (b *Board) Begin() state.BoardTxn {
	return &Txn{board: b}
}

// CheckInvariants は盤面不変条件の破壊を検出する。
// 同一セルに2駒、または範囲外の駒があればセッションは継続不能。
func (b *Board) CheckInvariants() error {
	occupied := make(map[domain.Cell]string, len(b.positions))
	for id, cell := range b.positions {
		if !b.bounds.Contains(cell) {
			return fmt.Errorf("%w: piece %s at %s outside %dx%d",
				ErrCorruptState, id, cell, b.bounds.Width, b.bounds.Height)
		}
		if other, ok := occupied[cell]; ok {
			return fmt.Errorf("%w: pieces %s and %s share cell %s",
				ErrCorruptState, other, id, cell)
		}
		occupied[cell] = id
	}
	return nil
}

type opKind uint8

const (
	opSet opKind = iota + 1
	opRemove
	opStatus
)

type boardOp struct {
	kind    opKind
	pieceID string
	cell    domain.Cell
	status  domain.GameStatus
}

// Txn はステージされた変更の集合。Commit までは盤面に一切触れない。
type Txn struct {
	board *Board
	ops   []boardOp
	done  bool
}

func (t *Txn) Set(pieceID string, to domain.Cell) {
	t.ops = append(t.ops, boardOp{kind: opSet, pieceID: pieceID, cell: to})
}

func (t *Txn) Remove(pieceID string) {
	t.ops = append(t.ops, boardOp{kind: opRemove, pieceID: pieceID})
}

func (t *Txn) SetStatus(status domain.GameStatus) {
	t.ops = append(t.ops, boardOp{kind: opStatus, status: status})
}

// Commit は全オペレーションを検証してから一括適用し、バージョンを1進める。
// 検証に失敗した場合は何も適用されない（all-or-nothing）。
func (t *Txn) Commit() (uint64, error) {
	if t.done {
		return 0, ErrTxnDone
	}
	t.done = true

	// 適用前検証。ここで失敗すれば盤面は無傷のまま。
	removed := make(map[string]bool)
	for _, op := range t.ops {
		switch op.kind {
		case opSet:
			if !t.board.bounds.Contains(op.cell) {
				return 0, fmt.Errorf("%w: %s to %s", ErrCellOutside, op.pieceID, op.cell)
			}
		case opRemove:
			if _, ok := t.board.positions[op.pieceID]; !ok || removed[op.pieceID] {
				return 0, fmt.Errorf("%w: %s", ErrPieceMissing, op.pieceID)
			}
			removed[op.pieceID] = true
		case opStatus:
		}
	}

	for _, op := range t.ops {
		switch op.kind {
		case opSet:
			t.board.positions[op.pieceID] = op.cell
		case opRemove:
			delete(t.board.positions, op.pieceID)
		case opStatus:
			t.board.status = op.status
		}
	}
	t.board.version++
	return t.board.version, nil
}

var _ state.BoardState = (*Board)(nil)
