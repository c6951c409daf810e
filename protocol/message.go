// Package protocol はクライアント・サーバー間のJSONワイヤエンベロープを定義する。
// トランスポートには依存しない。エンベロープの構造検証までが責務で、
// コマンドの合法性はアプリケーション層が判断する。
package protocol

import (
	"errors"
	"time"
)

// MessageType はエンベロープの種別。
type MessageType string

const (
	MessageCommand         MessageType = "command"
	MessageResponse        MessageType = "response"
	MessageBroadcast       MessageType = "broadcast"
	MessageSnapshot        MessageType = "snapshot"
	MessageSnapshotRequest MessageType = "snapshot_request"
)

// KnownMessageType は既知のエンベロープ種別かを返す。
func KnownMessageType(t MessageType) bool {
	switch t {
	case MessageCommand, MessageResponse, MessageBroadcast, MessageSnapshot, MessageSnapshotRequest:
		return true
	default:
		return false
	}
}

// CommandKind はコマンド種別のタグ。クローズドな名前付き集合だが、
// ハンドラレジストリ経由で新しい種別を追加できる（open tagged union）。
type CommandKind string

const (
	KindMove        CommandKind = "move"
	KindJump        CommandKind = "jump"
	KindAttack      CommandKind = "attack"
	KindCapture     CommandKind = "capture"
	KindCastle      CommandKind = "castle"
	KindPromote     CommandKind = "promote"
	KindResign      CommandKind = "resign"
	KindDrawOffer   CommandKind = "draw_offer"
	KindDrawAccept  CommandKind = "draw_accept"
	KindDrawDecline CommandKind = "draw_decline"
)

// CommandData は1つの提案されたアクション。
//
//	timestamp はクライアント採番 (ms since epoch) でクライアント内の相関キーを兼ねる。
//	params の形は kind ごとに決まり、コーデックは中身を解釈しない。
type CommandData struct {
	Timestamp int64       `json:"timestamp"`
	PieceID   string      `json:"piece_id"`
	Kind      CommandKind `json:"type"`
	Params    []any       `json:"params"`
}

// IsValidFormat は構造的な妥当性のみを検証する。
func (c CommandData) IsValidFormat() bool {
	return c.Timestamp >= 0 && c.PieceID != "" && c.Kind != ""
}

// Message はトランスポートに載る外側のエンベロープ。
// BROADCAST では client_id は空文字列になる。
type Message struct {
	Type      MessageType `json:"message_type"`
	Command   CommandData `json:"command_data"`
	ClientID  string      `json:"client_id"`
	SessionID string      `json:"session_id"`
}

var (
	ErrEmptyMessage       = errors.New("protocol: empty message")
	ErrInvalidEnvelope    = errors.New("protocol: invalid envelope")
	ErrUnknownMessageType = errors.New("protocol: unknown message type")
	ErrInvalidFormat      = errors.New("protocol: invalid command format")
	ErrNotResponse        = errors.New("protocol: message is not a response")
	ErrNotBroadcast       = errors.New("protocol: message is not a broadcast")
	ErrNotSnapshot        = errors.New("protocol: message is not a snapshot")
	ErrEmptyParams        = errors.New("protocol: params payload is missing")
)

// NewCommandMessage はクライアント→サーバーのコマンドエンベロープを作る。
func NewCommandMessage(cmd CommandData, clientID, sessionID string) Message {
	return Message{
		Type:      MessageCommand,
		Command:   cmd,
		ClientID:  clientID,
		SessionID: sessionID,
	}
}

// NewSnapshotRequestMessage はフル再同期要求のエンベロープを作る。
func NewSnapshotRequestMessage(clientID, sessionID string) Message {
	return Message{
		Type: MessageSnapshotRequest,
		Command: CommandData{
			Timestamp: time.Now().UnixMilli(),
			PieceID:   "board",
			Kind:      "snapshot_request",
		},
		ClientID:  clientID,
		SessionID: sessionID,
	}
}
