package state

import (
	"context"
	"time"

	"gambit/application/domain"
)

// BoardView is a read-only view of the authoritative board state.
// Validation works against this view and never mutates anything.
type BoardView interface {
	PiecePosition(pieceID string) (domain.Cell, bool)
	Bounds() domain.Bounds
	Status() domain.GameStatus
	Version() uint64
	Snapshot() domain.BoardSnapshot
}

// BoardTxn stages a set of position/status changes. Commit applies all
// staged operations atomically and bumps the version by exactly one;
// a failed Commit leaves the board untouched.
type BoardTxn interface {
	Set(pieceID string, to domain.Cell)
	Remove(pieceID string)
	SetStatus(status domain.GameStatus)
	Commit() (version uint64, err error)
}

// BoardState is the single writable copy of game truth for one session.
type BoardState interface {
	BoardView
	Begin() BoardTxn
	CheckInvariants() error
}

// MetricsRecorder receives latency and counter measurements from the
// command pipeline.
type MetricsRecorder interface {
	RecordLatency(ctx context.Context, endpoint string, duration time.Duration)
	IncrementCounter(ctx context.Context, name string, delta int)
}
