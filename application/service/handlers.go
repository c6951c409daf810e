package service

import (
	"fmt"

	"gambit/application/domain"
	"gambit/application/state"
	"gambit/protocol"
)

// relocateHandler covers MOVE and JUMP: params are [from, to] and the acting
// piece ends up on the destination cell.
type relocateHandler struct {
	result string
}

func (h relocateHandler) ValidateParams(cmd protocol.CommandData) ([]domain.Cell, error) {
	from, to, err := fromToParams(cmd.Params)
	if err != nil {
		return nil, err
	}
	return []domain.Cell{from, to}, nil
}

func (h relocateHandler) CheckState(cmd protocol.CommandData, view state.BoardView) error {
	from, to, _ := fromToParams(cmd.Params)
	if err := checkSourceCell(cmd.PieceID, from, view); err != nil {
		return err
	}
	if occupant, ok := pieceAt(view, to); ok && occupant != cmd.PieceID {
		return fmt.Errorf("%w: %s is occupied by %s", ErrConflict, to, occupant)
	}
	return nil
}

func (h relocateHandler) Execute(cmd protocol.CommandData, view state.BoardView, txn state.BoardTxn) (domain.ExecutionResult, error) {
	from, to, err := fromToParams(cmd.Params)
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	txn.Set(cmd.PieceID, to)
	return domain.ExecutionResult{
		Kind:    h.result,
		PieceID: cmd.PieceID,
		From:    &from,
		To:      &to,
	}, nil
}

// attackHandler: params are [target]. The occupant of the target cell, if
// any, is removed; the attacker does not move.
type attackHandler struct{}

func (attackHandler) ValidateParams(cmd protocol.CommandData) ([]domain.Cell, error) {
	if len(cmd.Params) != 1 {
		return nil, fmt.Errorf("%w: attack wants [target], got %d params", ErrInvalidFormat, len(cmd.Params))
	}
	target, err := protocol.CellFromParam(cmd.Params[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	return []domain.Cell{target}, nil
}

func (attackHandler) Execute(cmd protocol.CommandData, view state.BoardView, txn state.BoardTxn) (domain.ExecutionResult, error) {
	target, err := protocol.CellFromParam(cmd.Params[0])
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	// 攻撃駒は動かないので To は付けない。対象セルは Target で伝える。
	result := domain.ExecutionResult{
		Kind:    "attack_executed",
		PieceID: cmd.PieceID,
		Target:  &target,
	}
	if occupant, ok := pieceAt(view, target); ok && occupant != cmd.PieceID {
		txn.Remove(occupant)
		result.Captured = occupant
	}
	return result, nil
}

// captureHandler: params are [from, to]. The occupant of the destination is
// removed before the acting piece moves there.
type captureHandler struct{}

func (captureHandler) ValidateParams(cmd protocol.CommandData) ([]domain.Cell, error) {
	from, to, err := fromToParams(cmd.Params)
	if err != nil {
		return nil, err
	}
	return []domain.Cell{from, to}, nil
}

func (captureHandler) CheckState(cmd protocol.CommandData, view state.BoardView) error {
	from, to, _ := fromToParams(cmd.Params)
	if err := checkSourceCell(cmd.PieceID, from, view); err != nil {
		return err
	}
	if occupant, ok := pieceAt(view, to); !ok || occupant == cmd.PieceID {
		return fmt.Errorf("%w: nothing to capture at %s", ErrConflict, to)
	}
	return nil
}

func (captureHandler) Execute(cmd protocol.CommandData, view state.BoardView, txn state.BoardTxn) (domain.ExecutionResult, error) {
	from, to, err := fromToParams(cmd.Params)
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	occupant, ok := pieceAt(view, to)
	if !ok {
		return domain.ExecutionResult{}, fmt.Errorf("%w: nothing to capture at %s", ErrConflict, to)
	}
	txn.Remove(occupant)
	txn.Set(cmd.PieceID, to)
	return domain.ExecutionResult{
		Kind:     "capture_executed",
		PieceID:  cmd.PieceID,
		From:     &from,
		To:       &to,
		Captured: occupant,
	}, nil
}

// castleHandler: params are [king_to, rook_id, rook_to]. Both pieces move in
// one transaction; a failure applies neither.
type castleHandler struct{}

func (castleHandler) ValidateParams(cmd protocol.CommandData) ([]domain.Cell, error) {
	kingTo, _, rookTo, err := castleParams(cmd.Params)
	if err != nil {
		return nil, err
	}
	return []domain.Cell{kingTo, rookTo}, nil
}

func (castleHandler) CheckState(cmd protocol.CommandData, view state.BoardView) error {
	kingTo, rookID, rookTo, _ := castleParams(cmd.Params)
	if _, ok := view.PiecePosition(rookID); !ok {
		return fmt.Errorf("%w: rook %s", ErrPieceNotFound, rookID)
	}
	for _, target := range []domain.Cell{kingTo, rookTo} {
		if occupant, ok := pieceAt(view, target); ok && occupant != cmd.PieceID && occupant != rookID {
			return fmt.Errorf("%w: %s is occupied by %s", ErrConflict, target, occupant)
		}
	}
	return nil
}

func (castleHandler) Execute(cmd protocol.CommandData, view state.BoardView, txn state.BoardTxn) (domain.ExecutionResult, error) {
	kingTo, rookID, rookTo, err := castleParams(cmd.Params)
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	from, _ := view.PiecePosition(cmd.PieceID)
	txn.Set(cmd.PieceID, kingTo)
	txn.Set(rookID, rookTo)
	return domain.ExecutionResult{
		Kind:    "castle_executed",
		PieceID: cmd.PieceID,
		From:    &from,
		To:      &kingTo,
		RookID:  rookID,
		RookTo:  &rookTo,
	}, nil
}

// promoteHandler: params are [new_kind]. The piece keeps its cell; the
// promotion is carried in the result for the clients and the rule resolver.
type promoteHandler struct{}

func (promoteHandler) ValidateParams(cmd protocol.CommandData) ([]domain.Cell, error) {
	if len(cmd.Params) != 1 {
		return nil, fmt.Errorf("%w: promote wants [new_kind], got %d params", ErrInvalidFormat, len(cmd.Params))
	}
	if _, ok := cmd.Params[0].(string); !ok {
		return nil, fmt.Errorf("%w: promote new_kind must be a string", ErrInvalidFormat)
	}
	return nil, nil
}

func (promoteHandler) Execute(cmd protocol.CommandData, view state.BoardView, txn state.BoardTxn) (domain.ExecutionResult, error) {
	newKind := cmd.Params[0].(string)
	cell, _ := view.PiecePosition(cmd.PieceID)
	return domain.ExecutionResult{
		Kind:      "promote_executed",
		PieceID:   cmd.PieceID,
		To:        &cell,
		Promotion: newKind,
	}, nil
}

// statusHandler covers RESIGN and the DRAW family: a session-status
// transition that consumes a version like any other mutation.
type statusHandler struct {
	result   string
	next     domain.GameStatus
	requires domain.GameStatus // zero value means any status is acceptable
}

func (h statusHandler) ValidateParams(cmd protocol.CommandData) ([]domain.Cell, error) {
	if len(cmd.Params) != 0 {
		return nil, fmt.Errorf("%w: %s takes no params", ErrInvalidFormat, cmd.Kind)
	}
	return nil, nil
}

func (h statusHandler) CheckState(cmd protocol.CommandData, view state.BoardView) error {
	if h.requires != "" && view.Status() != h.requires {
		return fmt.Errorf("%w: %s requires status %q, session is %q",
			ErrConflict, cmd.Kind, h.requires, view.Status())
	}
	return nil
}

func (h statusHandler) Execute(cmd protocol.CommandData, view state.BoardView, txn state.BoardTxn) (domain.ExecutionResult, error) {
	txn.SetStatus(h.next)
	return domain.ExecutionResult{
		Kind:    h.result,
		PieceID: cmd.PieceID,
		Status:  h.next,
	}, nil
}

func fromToParams(params []any) (domain.Cell, domain.Cell, error) {
	if len(params) != 2 {
		return domain.Cell{}, domain.Cell{}, fmt.Errorf("%w: wants [from, to], got %d params", ErrInvalidFormat, len(params))
	}
	from, err := protocol.CellFromParam(params[0])
	if err != nil {
		return domain.Cell{}, domain.Cell{}, fmt.Errorf("%w: from: %v", ErrInvalidFormat, err)
	}
	to, err := protocol.CellFromParam(params[1])
	if err != nil {
		return domain.Cell{}, domain.Cell{}, fmt.Errorf("%w: to: %v", ErrInvalidFormat, err)
	}
	if from == to {
		return domain.Cell{}, domain.Cell{}, fmt.Errorf("%w: source equals destination %s", ErrInvalidFormat, from)
	}
	return from, to, nil
}

// checkSourceCell rejects commands whose declared source no longer matches
// the authoritative position. This is how a command serialized after a
// conflicting one gets refused.
func checkSourceCell(pieceID string, from domain.Cell, view state.BoardView) error {
	current, ok := view.PiecePosition(pieceID)
	if !ok {
		// The existence check in the pipeline reports missing pieces.
		return nil
	}
	if current != from {
		return fmt.Errorf("%w: %s is at %s, not %s", ErrConflict, pieceID, current, from)
	}
	return nil
}

func pieceAt(view state.BoardView, cell domain.Cell) (string, bool) {
	for id, pos := range view.Snapshot().Positions {
		if pos == cell {
			return id, true
		}
	}
	return "", false
}

func castleParams(params []any) (domain.Cell, string, domain.Cell, error) {
	if len(params) != 3 {
		return domain.Cell{}, "", domain.Cell{}, fmt.Errorf("%w: castle wants [king_to, rook_id, rook_to], got %d params", ErrInvalidFormat, len(params))
	}
	kingTo, err := protocol.CellFromParam(params[0])
	if err != nil {
		return domain.Cell{}, "", domain.Cell{}, fmt.Errorf("%w: king_to: %v", ErrInvalidFormat, err)
	}
	rookID, ok := params[1].(string)
	if !ok || rookID == "" {
		return domain.Cell{}, "", domain.Cell{}, fmt.Errorf("%w: rook_id must be a non-empty string", ErrInvalidFormat)
	}
	rookTo, err := protocol.CellFromParam(params[2])
	if err != nil {
		return domain.Cell{}, "", domain.Cell{}, fmt.Errorf("%w: rook_to: %v", ErrInvalidFormat, err)
	}
	return kingTo, rookID, rookTo, nil
}
