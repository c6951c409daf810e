// Package client implements the player-side half of the sync protocol:
// local command lifecycle tracking, response matching, and a board
// replica that follows the server's version stream.
package client

import (
	"errors"
	"fmt"
	"time"

	"gambit/application/domain"
	"gambit/protocol"
)

// CommandStatus is the local lifecycle state of a command.
// Transitions are created -> sent -> confirmed | rejected.
// Confirmed and rejected are terminal.
type CommandStatus string

const (
	StatusCreated   CommandStatus = "created"
	StatusSent      CommandStatus = "sent"
	StatusConfirmed CommandStatus = "confirmed"
	StatusRejected  CommandStatus = "rejected"
)

var (
	ErrAlreadySent   = errors.New("client: command already sent")
	ErrNotSent       = errors.New("client: command has not been sent")
	ErrTerminalState = errors.New("client: command already finalized")
)

// Command is one locally issued command and its lifecycle.
// A terminal command never changes again.
type Command struct {
	data   protocol.CommandData
	status CommandStatus

	result *domain.ExecutionResult
	err    error
}

func newCommand(pieceID string, kind protocol.CommandKind, params []any) *Command {
	return &Command{
		data: protocol.CommandData{
			Timestamp: time.Now().UnixMilli(),
			PieceID:   pieceID,
			Kind:      kind,
			Params:    params,
		},
		status: StatusCreated,
	}
}

func NewMoveCommand(pieceID string, from, to domain.Cell) *Command {
	return newCommand(pieceID, protocol.KindMove, []any{from, to})
}

func NewJumpCommand(pieceID string, from, to domain.Cell) *Command {
	return newCommand(pieceID, protocol.KindJump, []any{from, to})
}

func NewAttackCommand(pieceID string, target domain.Cell) *Command {
	return newCommand(pieceID, protocol.KindAttack, []any{target})
}

func NewCaptureCommand(pieceID string, from, to domain.Cell) *Command {
	return newCommand(pieceID, protocol.KindCapture, []any{from, to})
}

func NewCastleCommand(kingID string, kingTo domain.Cell, rookID string, rookTo domain.Cell) *Command {
	return newCommand(kingID, protocol.KindCastle, []any{kingTo, rookID, rookTo})
}

func NewPromoteCommand(pieceID, newKind string) *Command {
	return newCommand(pieceID, protocol.KindPromote, []any{newKind})
}

func NewResignCommand(pieceID string) *Command {
	return newCommand(pieceID, protocol.KindResign, nil)
}

func NewDrawOfferCommand(pieceID string) *Command {
	return newCommand(pieceID, protocol.KindDrawOffer, nil)
}

func NewDrawAcceptCommand(pieceID string) *Command {
	return newCommand(pieceID, protocol.KindDrawAccept, nil)
}

func NewDrawDeclineCommand(pieceID string) *Command {
	return newCommand(pieceID, protocol.KindDrawDecline, nil)
}

func (c *Command) Data() protocol.CommandData { return c.data }
func (c *Command) Status() CommandStatus      { return c.status }
func (c *Command) IsConfirmed() bool          { return c.status == StatusConfirmed }
func (c *Command) IsRejected() bool           { return c.status == StatusRejected }

func (c *Command) isTerminal() bool {
	return c.status == StatusConfirmed || c.status == StatusRejected
}

// ExecutionResult returns the authoritative result for a confirmed command.
func (c *Command) ExecutionResult() *domain.ExecutionResult { return c.result }

// Err returns the rejection reason for a rejected command.
func (c *Command) Err() error { return c.err }

func (c *Command) markSent() error {
	if c.status != StatusCreated {
		return fmt.Errorf("%w: %s", ErrAlreadySent, c.status)
	}
	c.status = StatusSent
	return nil
}

func (c *Command) confirm(result domain.ExecutionResult) error {
	if c.isTerminal() {
		return ErrTerminalState
	}
	if c.status != StatusSent {
		return ErrNotSent
	}
	c.status = StatusConfirmed
	c.result = &result
	return nil
}

func (c *Command) reject(reason string) error {
	if c.isTerminal() {
		return ErrTerminalState
	}
	if c.status != StatusSent {
		return ErrNotSent
	}
	c.status = StatusRejected
	c.err = errors.New(reason)
	return nil
}
