package client

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"gambit/protocol"
)

var (
	ErrUnknownResponse   = errors.New("client: response matches no pending command")
	ErrDuplicateKey      = errors.New("client: pending command with same key exists")
	ErrMalformedResponse = errors.New("client: success response without execution result")
)

// Sender pushes encoded envelopes to the server.
type Sender interface {
	Send(ctx context.Context, data []byte) error
}

// commandKey correlates responses with pending commands.
// The server echoes the original timestamp and piece ID back.
type commandKey struct {
	timestamp int64
	pieceID   string
}

// Tracker owns the pending-command table. Send marks a command sent and
// HandleResponse finalizes it when the matching response arrives.
type Tracker struct {
	mu      sync.Mutex
	sender  Sender
	history *History
	pending map[commandKey]*Command

	clientID  string
	sessionID string
}

func NewTracker(sender Sender, history *History, clientID, sessionID string) *Tracker {
	return &Tracker{
		sender:    sender,
		history:   history,
		pending:   make(map[commandKey]*Command),
		clientID:  clientID,
		sessionID: sessionID,
	}
}

// Send encodes and transmits a command, then tracks it as pending.
// The command stays in created state if transmission fails.
func (t *Tracker) Send(ctx context.Context, cmd *Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := commandKey{timestamp: cmd.data.Timestamp, pieceID: cmd.data.PieceID}
	if _, exists := t.pending[key]; exists {
		return ErrDuplicateKey
	}

	data, err := protocol.EncodeMessage(protocol.NewCommandMessage(cmd.data, t.clientID, t.sessionID))
	if err != nil {
		return err
	}
	if err := t.sender.Send(ctx, data); err != nil {
		return err
	}
	if err := cmd.markSent(); err != nil {
		return err
	}
	t.pending[key] = cmd
	return nil
}

// HandleResponse matches a response envelope against the pending table and
// finalizes the command. Unmatched responses are dropped with a warning.
// A response for an already finalized command is ignored.
func (t *Tracker) HandleResponse(ctx context.Context, msg *protocol.Message) error {
	payload, err := protocol.ResponseFromMessage(msg)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := commandKey{timestamp: msg.Command.Timestamp, pieceID: msg.Command.PieceID}
	cmd, ok := t.pending[key]
	if !ok {
		slog.WarnContext(ctx, "unmatched response dropped",
			"timestamp", key.timestamp, "pieceID", key.pieceID)
		return ErrUnknownResponse
	}

	if payload.Success && payload.ExecutionResult == nil {
		// 成功なのに結果が無い応答はプロトコル違反。コマンドは保留のまま残す。
		slog.WarnContext(ctx, "malformed response dropped",
			"timestamp", key.timestamp, "pieceID", key.pieceID)
		return ErrMalformedResponse
	}
	if payload.Success {
		err = cmd.confirm(*payload.ExecutionResult)
	} else {
		err = cmd.reject(payload.ErrorMessage)
	}
	if errors.Is(err, ErrTerminalState) {
		// 二重応答は無害なので握りつぶす
		delete(t.pending, key)
		return nil
	}
	if err != nil {
		return err
	}

	delete(t.pending, key)
	if t.history != nil {
		t.history.Record(cmd)
	}
	return nil
}

// PendingCount returns the number of commands awaiting a response.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}
