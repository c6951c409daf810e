package service

import (
	"context"
	"fmt"
	"time"

	"gambit/application/domain"
	"gambit/application/state"
	"gambit/protocol"
)

// Clock abstracts time for the pipeline so tests can pin commit timestamps.
type Clock interface {
	Now() time.Time
	Since(time.Time) time.Duration
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time                  { return time.Now() }
func (SystemClock) Since(t time.Time) time.Duration { return time.Since(t) }

// CommandService runs the validation/execution pipeline for one session's
// board. It is not safe for concurrent Submit calls by itself; the session
// loop is the serialization point and calls it from a single goroutine.
type CommandService struct {
	state    state.BoardState
	resolver RuleResolver
	registry *Registry
	metrics  state.MetricsRecorder
	clock    Clock
}

// NewCommandService wires the pipeline dependencies.
func NewCommandService(s state.BoardState, resolver RuleResolver, registry *Registry, metrics state.MetricsRecorder, clock Clock) (*CommandService, error) {
	if s == nil || resolver == nil || registry == nil || metrics == nil || clock == nil {
		return nil, fmt.Errorf("service: missing dependencies: state=%v resolver=%v registry=%v metrics=%v clock=%v",
			s, resolver, registry, metrics, clock)
	}
	return &CommandService{
		state:    s,
		resolver: resolver,
		registry: registry,
		metrics:  metrics,
		clock:    clock,
	}, nil
}

// Submit validates and executes one command. The pipeline is strictly
// ordered and short-circuits on the first failure:
//
//	structure -> existence -> bounds -> state consistency -> rule resolver -> execute+commit
//
// Validation never mutates the board. An execution failure after successful
// validation is retried once, then surfaced as ErrExecutionFailed.
func (s *CommandService) Submit(ctx context.Context, cmd protocol.CommandData) (domain.ExecutionResult, error) {
	start := s.clock.Now()
	defer s.record(ctx, "submit", start)

	if !cmd.IsValidFormat() {
		s.metrics.IncrementCounter(ctx, "commands.rejected", 1)
		return domain.ExecutionResult{}, fmt.Errorf("%w: timestamp=%d piece_id=%q", ErrInvalidFormat, cmd.Timestamp, cmd.PieceID)
	}
	handler, ok := s.registry.Lookup(cmd.Kind)
	if !ok {
		s.metrics.IncrementCounter(ctx, "commands.rejected", 1)
		return domain.ExecutionResult{}, fmt.Errorf("%w: %q", ErrUnknownKind, cmd.Kind)
	}
	cells, err := handler.ValidateParams(cmd)
	if err != nil {
		s.metrics.IncrementCounter(ctx, "commands.rejected", 1)
		return domain.ExecutionResult{}, err
	}
	if _, ok := s.state.PiecePosition(cmd.PieceID); !ok {
		s.metrics.IncrementCounter(ctx, "commands.rejected", 1)
		return domain.ExecutionResult{}, fmt.Errorf("%w: %s", ErrPieceNotFound, cmd.PieceID)
	}
	bounds := s.state.Bounds()
	for _, cell := range cells {
		if !bounds.Contains(cell) {
			s.metrics.IncrementCounter(ctx, "commands.rejected", 1)
			return domain.ExecutionResult{}, fmt.Errorf("%w: %s on %dx%d board", ErrOutOfBounds, cell, bounds.Width, bounds.Height)
		}
	}
	if checker, ok := handler.(StateChecker); ok {
		if err := checker.CheckState(cmd, s.state); err != nil {
			s.metrics.IncrementCounter(ctx, "commands.rejected", 1)
			return domain.ExecutionResult{}, err
		}
	}
	if legal, reason := s.resolver.IsLegal(ctx, cmd.Kind, cmd.PieceID, cmd.Params, s.state.Snapshot()); !legal {
		s.metrics.IncrementCounter(ctx, "commands.rejected", 1)
		if reason == "" {
			reason = "not legal"
		}
		return domain.ExecutionResult{}, fmt.Errorf("%w: %s", ErrIllegalCommand, reason)
	}

	result, err := s.executeOnce(cmd, handler)
	if err != nil {
		// One internal retry; a race may have invalidated a snapshot read.
		result, err = s.executeOnce(cmd, handler)
	}
	if err != nil {
		s.metrics.IncrementCounter(ctx, "commands.failed", 1)
		return domain.ExecutionResult{}, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	s.metrics.IncrementCounter(ctx, "commands.committed", 1)
	return result, nil
}

func (s *CommandService) executeOnce(cmd protocol.CommandData, handler KindHandler) (domain.ExecutionResult, error) {
	txn := s.state.Begin()
	result, err := handler.Execute(cmd, s.state, txn)
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	version, err := txn.Commit()
	if err != nil {
		return domain.ExecutionResult{}, err
	}
	result.Version = version
	result.CommittedAt = s.clock.Now().UnixMilli()
	return result, nil
}

// Snapshot exposes the board state for broadcast and resync construction.
// Reads happen only after a commit is fully applied.
func (s *CommandService) Snapshot() domain.BoardSnapshot {
	return s.state.Snapshot()
}

// CheckInvariants surfaces board corruption; a non-nil error is fatal for
// the session.
func (s *CommandService) CheckInvariants() error {
	return s.state.CheckInvariants()
}

func (s *CommandService) record(ctx context.Context, endpoint string, started time.Time) {
	s.metrics.RecordLatency(ctx, endpoint, s.clock.Since(started))
	s.metrics.IncrementCounter(ctx, "requests."+endpoint, 1)
}
