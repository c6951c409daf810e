package domain

// GameStatus はセッション単位のゲーム進行状態。
// RESIGN / DRAW系コマンドはこのフィールドへの変更として盤面バージョンを消費する。
type GameStatus string

const (
	StatusActive      GameStatus = "active"
	StatusDrawOffered GameStatus = "draw_offered"
	StatusDrawn       GameStatus = "drawn"
	StatusResigned    GameStatus = "resigned"
)

// ExecutionResult はコミット済みコマンドの権威的な実行結果。
// Version はコミット時に採番された盤面バージョン。
type ExecutionResult struct {
	Kind        string     `json:"type"`
	PieceID     string     `json:"piece_id"`
	From        *Cell      `json:"from,omitempty"`
	To          *Cell      `json:"to,omitempty"` // 実行駒の移動先。動かないコマンドではnil
	Target      *Cell      `json:"target,omitempty"`
	Captured    string     `json:"captured,omitempty"`
	Promotion   string     `json:"promotion,omitempty"`
	RookID      string     `json:"rook_id,omitempty"`
	RookTo      *Cell      `json:"rook_to,omitempty"`
	Status      GameStatus `json:"status,omitempty"`
	Version     uint64     `json:"version"`
	CommittedAt int64      `json:"committed_at"` // ms since epoch
}

// BoardSnapshot は盤面全体のフルスナップショット。再同期用。
type BoardSnapshot struct {
	Positions map[string]Cell `json:"pieces_positions"`
	Bounds    Bounds          `json:"bounds"`
	Status    GameStatus      `json:"status"`
	Version   uint64          `json:"state_version"`
}
