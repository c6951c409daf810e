package domain

import (
	"context"
	"errors"
	"log/slog"

	appdomain "gambit/application/domain"
	"gambit/journal"
	"gambit/protocol"
)

var (
	// ErrSessionBusy は受信キューが満杯の場合に返されるエラーです。
	ErrSessionBusy = errors.New("session inbox is full, apply backpressure")
	// ErrSessionClosed は終了済みセッションへの投入で返されるエラーです。
	ErrSessionClosed = errors.New("session is closed")
)

// CommandPipeline はセッションがコマンドを流し込む先の実行パイプラインです。
type CommandPipeline interface {
	Submit(ctx context.Context, cmd protocol.CommandData) (appdomain.ExecutionResult, error)
	Snapshot() appdomain.BoardSnapshot
	CheckInvariants() error
}

type sessionEventKind uint8

const (
	sessJoin sessionEventKind = iota + 1
	sessLeave
	sessCommand
	sessSnapshotReq
)

type sessionEvent struct {
	kind     sessionEventKind
	clientID ClientID
	msg      protocol.Message
}

// GameSession は1対局のコマンド実行を直列化するループです。
// 全クライアントのコマンドは単一のinboxを通過するため、
// コミット順はここでの取り出し順と一致します。
type GameSession struct {
	ID SessionID

	pipeline CommandPipeline
	pubsub   PubSub
	journal  journal.Journal

	inbox   chan sessionEvent
	members map[ClientID]struct{}

	closed chan struct{}
}

func NewGameSession(id SessionID, pipeline CommandPipeline, pubsub PubSub, jnl journal.Journal) *GameSession {
	return &GameSession{
		ID:       id,
		pipeline: pipeline,
		pubsub:   pubsub,
		journal:  jnl,
		inbox:    make(chan sessionEvent, 1024),
		members:  make(map[ClientID]struct{}),
		closed:   make(chan struct{}),
	}
}

// Enqueue はコマンドメッセージを受信キューに積みます。
// キューが満杯の場合はErrSessionBusyを返し、呼び出し側がbackpressureを適用します。
func (gs *GameSession) Enqueue(clientID ClientID, msg protocol.Message) error {
	kind := sessCommand
	if msg.Type == protocol.MessageSnapshotRequest {
		kind = sessSnapshotReq
	}
	return gs.enqueue(sessionEvent{kind: kind, clientID: clientID, msg: msg})
}

// Join はクライアントをセッションに参加させ、参加時点のスナップショットを送ります。
func (gs *GameSession) Join(clientID ClientID) error {
	return gs.enqueue(sessionEvent{kind: sessJoin, clientID: clientID})
}

func (gs *GameSession) Leave(clientID ClientID) error {
	return gs.enqueue(sessionEvent{kind: sessLeave, clientID: clientID})
}

func (gs *GameSession) enqueue(ev sessionEvent) error {
	select {
	case <-gs.closed:
		return ErrSessionClosed
	default:
	}
	select {
	case gs.inbox <- ev:
		return nil
	default:
		return ErrSessionBusy
	}
}

// Run はイベントループを回します。ctxキャンセルか盤面不変条件の破壊で終了します。
func (gs *GameSession) Run(ctx context.Context) error {
	defer close(gs.closed)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-gs.inbox:
			if err := gs.handleEvent(ctx, ev); err != nil {
				slog.ErrorContext(ctx, "game session terminating", "sessionID", gs.ID, "err", err)
				return err
			}
		}
	}
}

func (gs *GameSession) handleEvent(ctx context.Context, ev sessionEvent) error {
	switch ev.kind {
	case sessJoin:
		gs.members[ev.clientID] = struct{}{}
		gs.sendSnapshot(ctx, ev.clientID)
		slog.InfoContext(ctx, "client joined session", "sessionID", gs.ID, "clientID", ev.clientID)
	case sessLeave:
		delete(gs.members, ev.clientID)
		slog.InfoContext(ctx, "client left session", "sessionID", gs.ID, "clientID", ev.clientID)
	case sessCommand:
		return gs.handleCommand(ctx, ev)
	case sessSnapshotReq:
		gs.sendSnapshot(ctx, ev.clientID)
	default:
		slog.WarnContext(ctx, "unknown session event kind", "kind", ev.kind)
	}
	return nil
}

// handleCommand はコマンドを実行し、結果を送信元に応答します。
// コミットに成功した場合のみ全メンバーにブロードキャストします。
// 拒否されたコマンドは決してブロードキャストされません。
func (gs *GameSession) handleCommand(ctx context.Context, ev sessionEvent) error {
	result, err := gs.pipeline.Submit(ctx, ev.msg.Command)

	respMsg, encErr := buildResponse(ev.clientID, gs.ID, ev.msg.Command, result, err)
	if encErr != nil {
		slog.ErrorContext(ctx, "failed to encode response", "err", encErr)
	} else {
		gs.sendTo(ctx, ev.clientID, respMsg)
	}

	if err != nil {
		slog.WarnContext(ctx, "command rejected",
			"sessionID", gs.ID, "clientID", ev.clientID,
			"kind", ev.msg.Command.Kind, "pieceID", ev.msg.Command.PieceID, "err", err)
		return nil
	}

	if gs.journal != nil {
		rec := journal.Record{
			SessionID:   string(gs.ID),
			Version:     result.Version,
			PieceID:     result.PieceID,
			Kind:        string(ev.msg.Command.Kind),
			Result:      result.Kind,
			CommittedAt: result.CommittedAt,
		}
		if jerr := gs.journal.Append(ctx, rec); jerr != nil {
			slog.WarnContext(ctx, "journal append failed", "sessionID", gs.ID, "err", jerr)
		}
	}

	bcast, encErr := protocol.EncodeMessage(protocol.NewBroadcastMessage(ev.msg.Command, result, string(gs.ID)))
	if encErr != nil {
		slog.ErrorContext(ctx, "failed to encode broadcast", "err", encErr)
		return nil
	}
	for member := range gs.members {
		gs.pubsub.Publish(ctx, ClientTopic(member), Message{Data: bcast})
	}

	if invErr := gs.pipeline.CheckInvariants(); invErr != nil {
		return invErr
	}
	return nil
}

func (gs *GameSession) sendSnapshot(ctx context.Context, clientID ClientID) {
	snap := gs.pipeline.Snapshot()
	data, err := protocol.EncodeMessage(protocol.NewSnapshotMessage(snap, string(clientID), string(gs.ID)))
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode snapshot", "err", err)
		return
	}
	gs.sendTo(ctx, clientID, data)
}

func (gs *GameSession) sendTo(ctx context.Context, clientID ClientID, data []byte) {
	gs.pubsub.Publish(ctx, ClientTopic(clientID), Message{ClientID: clientID, Data: data})
}

func buildResponse(clientID ClientID, sessionID SessionID, cmd protocol.CommandData, result appdomain.ExecutionResult, execErr error) ([]byte, error) {
	payload := protocol.ResponsePayload{Success: execErr == nil}
	if execErr != nil {
		payload.ErrorMessage = execErr.Error()
	} else {
		payload.ExecutionResult = &result
	}
	msg := protocol.NewResponseMessage(cmd, payload, string(clientID), string(sessionID))
	return protocol.EncodeMessage(msg)
}
