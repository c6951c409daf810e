// Package journal persists the commit history of game sessions.
//
// Each committed command produces one Record. The journal is append-only
// and ordered by (session_id, version), mirroring the order the session
// loop committed the commands in.
package journal

import "context"

// Record is one committed command.
type Record struct {
	SessionID   string `json:"session_id"`
	Version     uint64 `json:"version"`
	PieceID     string `json:"piece_id"`
	Kind        string `json:"kind"`
	Result      string `json:"result"`
	CommittedAt int64  `json:"committed_at"`
}

// Journal stores commit records.
type Journal interface {
	Append(ctx context.Context, rec Record) error
	// Tail returns up to n most recent records for a session, oldest first.
	Tail(ctx context.Context, sessionID string, n int) ([]Record, error)
	Len(ctx context.Context, sessionID string) (int, error)
	Close() error
}
