package protocol

import (
	"encoding/json"
	"fmt"
	"math"

	"gambit/application/domain"
)

// EncodeMessage はエンベロープをJSONバイト列にエンコードする。
func EncodeMessage(m Message) ([]byte, error) {
	if !KnownMessageType(m.Type) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return data, nil
}

// DecodeMessage はJSONバイト列からエンベロープをデコードし、構造を検証する。
func DecodeMessage(data []byte) (*Message, error) {
	if len(data) == 0 {
		return nil, ErrEmptyMessage
	}
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if !KnownMessageType(m.Type) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, m.Type)
	}
	if !m.Command.IsValidFormat() {
		return nil, fmt.Errorf("%w: timestamp=%d piece_id=%q kind=%q",
			ErrInvalidFormat, m.Command.Timestamp, m.Command.PieceID, m.Command.Kind)
	}
	return &m, nil
}

// ResponsePayload はRESPONSEエンベロープの params[0] に載る実行報告。
// ExecutionResult と ErrorMessage は排他。
type ResponsePayload struct {
	Success         bool                    `json:"success"`
	ExecutionResult *domain.ExecutionResult `json:"execution_result"`
	ErrorMessage    string                  `json:"error_message,omitempty"`
}

// NewResponseMessage は送信元クライアント宛のRESPONSEを作る。
// command_data は元コマンドの timestamp / piece_id / kind をそのまま返す。
// クライアントは (timestamp, piece_id) で保留中コマンドと突き合わせる。
func NewResponseMessage(orig CommandData, payload ResponsePayload, clientID, sessionID string) Message {
	return Message{
		Type: MessageResponse,
		Command: CommandData{
			Timestamp: orig.Timestamp,
			PieceID:   orig.PieceID,
			Kind:      orig.Kind,
			Params:    []any{payload},
		},
		ClientID:  clientID,
		SessionID: sessionID,
	}
}

// NewBroadcastMessage はセッション全員宛のBROADCASTを作る。
// 公開情報のみを運ぶため client_id は常に空。
func NewBroadcastMessage(orig CommandData, result domain.ExecutionResult, sessionID string) Message {
	return Message{
		Type: MessageBroadcast,
		Command: CommandData{
			Timestamp: result.CommittedAt,
			PieceID:   orig.PieceID,
			Kind:      orig.Kind,
			Params:    []any{result},
		},
		SessionID: sessionID,
	}
}

// NewSnapshotMessage は盤面フルスナップショットのエンベロープを作る。
func NewSnapshotMessage(snap domain.BoardSnapshot, clientID, sessionID string) Message {
	return Message{
		Type: MessageSnapshot,
		Command: CommandData{
			Timestamp: int64(snap.Version),
			PieceID:   "board",
			Kind:      "snapshot",
			Params:    []any{snap},
		},
		ClientID:  clientID,
		SessionID: sessionID,
	}
}

// ResponseFromMessage はRESPONSEエンベロープから実行報告を取り出す。
func ResponseFromMessage(m *Message) (ResponsePayload, error) {
	var payload ResponsePayload
	if m.Type != MessageResponse {
		return payload, fmt.Errorf("%w: got %q", ErrNotResponse, m.Type)
	}
	if err := firstParam(m.Command.Params, &payload); err != nil {
		return payload, err
	}
	return payload, nil
}

// ResultFromBroadcast はBROADCASTエンベロープから実行結果を取り出す。
func ResultFromBroadcast(m *Message) (domain.ExecutionResult, error) {
	var result domain.ExecutionResult
	if m.Type != MessageBroadcast {
		return result, fmt.Errorf("%w: got %q", ErrNotBroadcast, m.Type)
	}
	if err := firstParam(m.Command.Params, &result); err != nil {
		return result, err
	}
	return result, nil
}

// SnapshotFromMessage はSNAPSHOTエンベロープから盤面状態を取り出す。
func SnapshotFromMessage(m *Message) (domain.BoardSnapshot, error) {
	var snap domain.BoardSnapshot
	if m.Type != MessageSnapshot {
		return snap, fmt.Errorf("%w: got %q", ErrNotSnapshot, m.Type)
	}
	if err := firstParam(m.Command.Params, &snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// firstParam は params[0] を再マーシャルして構造体に詰め替える。
// デコード直後は map[string]any、プロセス内生成なら元の構造体のままなので
// どちらも JSON 経由で吸収する。
func firstParam(params []any, out any) error {
	if len(params) == 0 {
		return ErrEmptyParams
	}
	raw, err := json.Marshal(params[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return nil
}

// CellFromParam はparams内の1要素をセル座標として解釈する。
// JSONデコード後の []any{float64, float64} と、プロセス内で組み立てた
// domain.Cell の両方を受け付ける。
func CellFromParam(v any) (domain.Cell, error) {
	switch p := v.(type) {
	case domain.Cell:
		return p, nil
	case *domain.Cell:
		return *p, nil
	case []any:
		if len(p) != 2 {
			return domain.Cell{}, fmt.Errorf("%w: cell wants 2 elements, got %d", ErrInvalidFormat, len(p))
		}
		row, ok1 := asInt(p[0])
		col, ok2 := asInt(p[1])
		if !ok1 || !ok2 {
			return domain.Cell{}, fmt.Errorf("%w: cell elements must be integers", ErrInvalidFormat)
		}
		return domain.Cell{Row: row, Col: col}, nil
	default:
		return domain.Cell{}, fmt.Errorf("%w: cannot interpret %T as cell", ErrInvalidFormat, v)
	}
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		// JSON経由の数値。1.5のような非整数は座標として不正
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
