package service

import (
	"errors"
	"fmt"

	"gambit/application/domain"
	"gambit/application/state"
	"gambit/protocol"
)

var ErrDuplicateKind = errors.New("service: kind already registered")

// KindHandler validates the params shape of one command kind and executes it
// against a board transaction. New kinds are added through Registry.Register
// without touching existing handlers.
type KindHandler interface {
	// ValidateParams checks arity and value types of cmd.Params and returns
	// every cell the command references, for the bounds check. It sees only
	// the command itself; board reads belong in StateChecker so the pipeline
	// keeps its stage order.
	ValidateParams(cmd protocol.CommandData) ([]domain.Cell, error)

	// Execute stages the position changes implied by cmd on txn and builds
	// the execution result. Called only after validation accepted. Version
	// and commit timestamp are filled in by the pipeline after Commit.
	Execute(cmd protocol.CommandData, view state.BoardView, txn state.BoardTxn) (domain.ExecutionResult, error)
}

// StateChecker is implemented by handlers whose commands depend on the
// current board (source cell still matches, destination occupancy, session
// status). The pipeline runs it after the existence and bounds stages and
// before the rule resolver. It must not mutate anything.
type StateChecker interface {
	CheckState(cmd protocol.CommandData, view state.BoardView) error
}

// Registry maps command kinds to their handlers (open tagged union).
type Registry struct {
	handlers map[protocol.CommandKind]KindHandler
}

// NewRegistry returns a registry preloaded with the built-in handlers for
// all core command kinds.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[protocol.CommandKind]KindHandler)}
	builtins := map[protocol.CommandKind]KindHandler{
		protocol.KindMove:        relocateHandler{result: "move_executed"},
		protocol.KindJump:        relocateHandler{result: "jump_executed"},
		protocol.KindAttack:      attackHandler{},
		protocol.KindCapture:     captureHandler{},
		protocol.KindCastle:      castleHandler{},
		protocol.KindPromote:     promoteHandler{},
		protocol.KindResign:      statusHandler{result: "resign_executed", next: domain.StatusResigned},
		protocol.KindDrawOffer:   statusHandler{result: "draw_offer_executed", next: domain.StatusDrawOffered, requires: domain.StatusActive},
		protocol.KindDrawAccept:  statusHandler{result: "draw_accept_executed", next: domain.StatusDrawn, requires: domain.StatusDrawOffered},
		protocol.KindDrawDecline: statusHandler{result: "draw_decline_executed", next: domain.StatusActive, requires: domain.StatusDrawOffered},
	}
	for kind, h := range builtins {
		r.handlers[kind] = h
	}
	return r
}

// Register adds a handler for a new command kind.
func (r *Registry) Register(kind protocol.CommandKind, h KindHandler) error {
	if _, ok := r.handlers[kind]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKind, kind)
	}
	r.handlers[kind] = h
	return nil
}

// Lookup returns the handler for kind.
func (r *Registry) Lookup(kind protocol.CommandKind) (KindHandler, bool) {
	h, ok := r.handlers[kind]
	return h, ok
}
