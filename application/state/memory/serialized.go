package memory

import (
	"sync"

	"gambit/application/domain"
	"gambit/application/state"
)

// SerializedBoard は Board をラップし、排他制御付きで BoardState を実装する。
// セッションのコマンドループが唯一のライターだが、ブロードキャスト用の
// スナップショット読み出しは別ゴルーチンから来るため読み書きを分離する。
type SerializedBoard struct {
	base *Board
	mu   sync.RWMutex
}

// NewSerializedBoard は新しい SerializedBoard を生成する。
func NewSerializedBoard(base *Board) *SerializedBoard {
	return &SerializedBoard{base: base}
}

func (s *SerializedBoard) PiecePosition(pieceID string) (domain.Cell, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.PiecePosition(pieceID)
}

func (s *SerializedBoard) Bounds() domain.Bounds {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.Bounds()
}

func (s *SerializedBoard) Status() domain.GameStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.Status()
}

func (s *SerializedBoard) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.Version()
}

func (s *SerializedBoard) Snapshot() domain.BoardSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.Snapshot()
}

func (s *SerializedBoard) CheckInvariants() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base.CheckInvariants()
}

// Begin はコミット時にロックを取るトランザクションを返す。
func (s *SerializedBoard) Begin() state.BoardTxn {
	return &serializedTxn{owner: s, inner: s.base.Begin()}
}

type serializedTxn struct {
	owner *SerializedBoard
	inner state.BoardTxn
}

func (t *serializedTxn) Set(pieceID string, to domain.Cell) { t.inner.Set(pieceID, to) }
func (t *serializedTxn) Remove(pieceID string)              { t.inner.Remove(pieceID) }
func (t *serializedTxn) SetStatus(status domain.GameStatus) { t.inner.SetStatus(status) }

func (t *serializedTxn) Commit() (uint64, error) {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	return t.inner.Commit()
}

var _ state.BoardState = (*SerializedBoard)(nil)
