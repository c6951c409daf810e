package service

import (
	"context"

	"gambit/application/domain"
	"gambit/protocol"
)

//go:generate go tool mockgen -destination=./mocks/resolver_mock.go -package=mocks . RuleResolver

// RuleResolver decides game-specific legality (movement rules, turn order,
// check constraints) for a concrete game. The pipeline passes a read-only
// snapshot and only interprets the verdict as pass/fail plus an optional
// reason; it never inspects the domain meaning.
type RuleResolver interface {
	IsLegal(ctx context.Context, kind protocol.CommandKind, pieceID string, params []any, snapshot domain.BoardSnapshot) (bool, string)
}

// AllowAll accepts every command. Default resolver for servers that rely on
// structural validation only, and the stub used throughout the tests.
type AllowAll struct{}

func (AllowAll) IsLegal(context.Context, protocol.CommandKind, string, []any, domain.BoardSnapshot) (bool, string) {
	return true, ""
}

var _ RuleResolver = AllowAll{}
