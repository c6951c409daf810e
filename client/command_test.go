package client

import (
	"context"
	"errors"
	"testing"

	"gambit/application/domain"
	"gambit/protocol"
)

type recordingSender struct {
	sent [][]byte
	err  error
}

func (s *recordingSender) Send(_ context.Context, data []byte) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, data)
	return nil
}

func TestCommandFactoriesSetKindAndParams(t *testing.T) {
	from := domain.Cell{Row: 1, Col: 4}
	to := domain.Cell{Row: 3, Col: 4}

	tests := []struct {
		name       string
		cmd        *Command
		wantKind   protocol.CommandKind
		wantParams int
	}{
		{"move", NewMoveCommand("p1", from, to), protocol.KindMove, 2},
		{"jump", NewJumpCommand("p1", from, to), protocol.KindJump, 2},
		{"attack", NewAttackCommand("p1", to), protocol.KindAttack, 1},
		{"capture", NewCaptureCommand("p1", from, to), protocol.KindCapture, 2},
		{"castle", NewCastleCommand("king", to, "rook", from), protocol.KindCastle, 3},
		{"promote", NewPromoteCommand("p1", "queen"), protocol.KindPromote, 1},
		{"resign", NewResignCommand("p1"), protocol.KindResign, 0},
		{"draw offer", NewDrawOfferCommand("p1"), protocol.KindDrawOffer, 0},
		{"draw accept", NewDrawAcceptCommand("p1"), protocol.KindDrawAccept, 0},
		{"draw decline", NewDrawDeclineCommand("p1"), protocol.KindDrawDecline, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.cmd.Data()
			if data.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", data.Kind, tt.wantKind)
			}
			if len(data.Params) != tt.wantParams {
				t.Errorf("params = %d, want %d", len(data.Params), tt.wantParams)
			}
			if tt.cmd.Status() != StatusCreated {
				t.Errorf("Status = %q, want created", tt.cmd.Status())
			}
			if !data.IsValidFormat() {
				t.Error("factory produced invalid format")
			}
		})
	}
}

func TestCommandLifecycleTerminalStates(t *testing.T) {
	cmd := NewMoveCommand("p1", domain.Cell{Row: 0, Col: 0}, domain.Cell{Row: 0, Col: 1})

	// created のまま confirm はできない
	if err := cmd.confirm(domain.ExecutionResult{}); !errors.Is(err, ErrNotSent) {
		t.Errorf("confirm before send: err = %v, want ErrNotSent", err)
	}

	if err := cmd.markSent(); err != nil {
		t.Fatalf("markSent failed: %v", err)
	}
	if err := cmd.markSent(); !errors.Is(err, ErrAlreadySent) {
		t.Errorf("double send: err = %v, want ErrAlreadySent", err)
	}

	result := domain.ExecutionResult{Kind: "move_executed", Version: 1}
	if err := cmd.confirm(result); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if !cmd.IsConfirmed() || cmd.ExecutionResult().Version != 1 {
		t.Errorf("confirmed state wrong: %q %+v", cmd.Status(), cmd.ExecutionResult())
	}

	// terminal後はどちらの遷移も拒否される
	if err := cmd.reject("too late"); !errors.Is(err, ErrTerminalState) {
		t.Errorf("reject after confirm: err = %v, want ErrTerminalState", err)
	}
	if err := cmd.confirm(result); !errors.Is(err, ErrTerminalState) {
		t.Errorf("double confirm: err = %v, want ErrTerminalState", err)
	}
}

func TestCommandRejectionKeepsReason(t *testing.T) {
	cmd := NewResignCommand("p1")
	if err := cmd.markSent(); err != nil {
		t.Fatalf("markSent failed: %v", err)
	}
	if err := cmd.reject("out of bounds"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if !cmd.IsRejected() {
		t.Error("IsRejected = false")
	}
	if cmd.Err() == nil || cmd.Err().Error() != "out of bounds" {
		t.Errorf("Err = %v", cmd.Err())
	}
	if cmd.ExecutionResult() != nil {
		t.Error("rejected command has a result")
	}
}

func TestTrackerSendAndMatchResponse(t *testing.T) {
	sender := &recordingSender{}
	history := NewHistory(16)
	tracker := NewTracker(sender, history, "client-1", "session-1")
	ctx := context.Background()

	cmd := NewMoveCommand("p1", domain.Cell{Row: 0, Col: 0}, domain.Cell{Row: 0, Col: 1})
	if err := tracker.Send(ctx, cmd); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if cmd.Status() != StatusSent {
		t.Fatalf("Status = %q, want sent", cmd.Status())
	}
	if tracker.PendingCount() != 1 {
		t.Fatalf("PendingCount = %d, want 1", tracker.PendingCount())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d messages, want 1", len(sender.sent))
	}

	to := domain.Cell{Row: 0, Col: 1}
	result := domain.ExecutionResult{Kind: "move_executed", PieceID: "p1", To: &to, Version: 1}
	resp := protocol.NewResponseMessage(cmd.Data(), protocol.ResponsePayload{Success: true, ExecutionResult: &result}, "client-1", "session-1")

	if err := tracker.HandleResponse(ctx, &resp); err != nil {
		t.Fatalf("HandleResponse failed: %v", err)
	}
	if !cmd.IsConfirmed() {
		t.Error("command not confirmed")
	}
	if tracker.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", tracker.PendingCount())
	}
	if history.Len() != 1 {
		t.Errorf("history = %d entries, want 1", history.Len())
	}
}

func TestTrackerRejectionResponse(t *testing.T) {
	sender := &recordingSender{}
	tracker := NewTracker(sender, nil, "client-1", "session-1")
	ctx := context.Background()

	cmd := NewMoveCommand("p1", domain.Cell{Row: 0, Col: 0}, domain.Cell{Row: 9, Col: 9})
	if err := tracker.Send(ctx, cmd); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	resp := protocol.NewResponseMessage(cmd.Data(), protocol.ResponsePayload{Success: false, ErrorMessage: "cell out of bounds"}, "client-1", "session-1")
	if err := tracker.HandleResponse(ctx, &resp); err != nil {
		t.Fatalf("HandleResponse failed: %v", err)
	}
	if !cmd.IsRejected() {
		t.Error("command not rejected")
	}
	if cmd.Err() == nil {
		t.Error("rejection reason missing")
	}
}

func TestTrackerDropsUnmatchedResponse(t *testing.T) {
	tracker := NewTracker(&recordingSender{}, nil, "client-1", "session-1")

	resp := protocol.NewResponseMessage(protocol.CommandData{
		Timestamp: 999, PieceID: "ghost", Kind: protocol.KindMove,
	}, protocol.ResponsePayload{Success: true, ExecutionResult: &domain.ExecutionResult{}}, "client-1", "session-1")

	err := tracker.HandleResponse(context.Background(), &resp)
	if !errors.Is(err, ErrUnknownResponse) {
		t.Errorf("err = %v, want ErrUnknownResponse", err)
	}
}

func TestTrackerDropsMalformedSuccessResponse(t *testing.T) {
	tracker := NewTracker(&recordingSender{}, nil, "client-1", "session-1")
	ctx := context.Background()

	cmd := NewMoveCommand("p1", domain.Cell{Row: 0, Col: 0}, domain.Cell{Row: 0, Col: 1})
	if err := tracker.Send(ctx, cmd); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// success=true but no execution result: a protocol violation, not a rejection
	resp := protocol.NewResponseMessage(cmd.Data(), protocol.ResponsePayload{Success: true}, "client-1", "session-1")
	if err := tracker.HandleResponse(ctx, &resp); !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("err = %v, want ErrMalformedResponse", err)
	}
	if cmd.Status() != StatusSent {
		t.Errorf("Status = %q, want sent", cmd.Status())
	}
	if tracker.PendingCount() != 1 {
		t.Errorf("PendingCount = %d, want 1", tracker.PendingCount())
	}
}

func TestTrackerSendFailureLeavesCommandCreated(t *testing.T) {
	sender := &recordingSender{err: errors.New("connection lost")}
	tracker := NewTracker(sender, nil, "client-1", "session-1")

	cmd := NewResignCommand("p1")
	if err := tracker.Send(context.Background(), cmd); err == nil {
		t.Fatal("Send succeeded with broken sender")
	}
	if cmd.Status() != StatusCreated {
		t.Errorf("Status = %q, want created", cmd.Status())
	}
	if tracker.PendingCount() != 0 {
		t.Errorf("PendingCount = %d, want 0", tracker.PendingCount())
	}
}

func TestHistoryBoundedAndQueryable(t *testing.T) {
	history := NewHistory(3)
	for i := 0; i < 5; i++ {
		pieceID := "a"
		if i%2 == 1 {
			pieceID = "b"
		}
		cmd := NewResignCommand(pieceID)
		history.Record(cmd)
	}

	if history.Len() != 3 {
		t.Fatalf("Len = %d, want 3", history.Len())
	}
	recent := history.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("Recent(2) = %d entries", len(recent))
	}
	byB := history.ByPiece("b")
	if len(byB) != 1 {
		t.Errorf("ByPiece(b) = %d entries, want 1", len(byB))
	}

	history.Clear()
	if history.Len() != 0 {
		t.Errorf("Len after Clear = %d", history.Len())
	}
}
