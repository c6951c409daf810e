package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrSessionCreateFailed = errors.New("failed to create game session")

// SessionFactory はセッションIDから新しいGameSessionを構築します。
// 盤面やパイプラインの組み立ては呼び出し側（main）が注入します。
type SessionFactory func(id SessionID) (*GameSession, error)

type managedSession struct {
	session  *GameSession
	cancel   context.CancelFunc
	refCount int
}

// SessionManager はGameSessionの生成と寿命を管理します。
// 最初の参加者が現れたときにセッションを起動し、最後の参加者が
// 離脱したときに停止します。
type SessionManager struct {
	mu       sync.Mutex
	sessions map[SessionID]*managedSession
	factory  SessionFactory
}

func NewSessionManager(factory SessionFactory) *SessionManager {
	return &SessionManager{
		sessions: make(map[SessionID]*managedSession),
		factory:  factory,
	}
}

// Acquire はセッションを取得し参照カウントを増やします。無ければ生成して起動します。
func (m *SessionManager) Acquire(ctx context.Context, id SessionID) (*GameSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ms, ok := m.sessions[id]; ok {
		ms.refCount++
		return ms.session, nil
	}

	session, err := m.factory(id)
	if err != nil {
		return nil, errors.Join(ErrSessionCreateFailed, err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.sessions[id] = &managedSession{session: session, cancel: cancel, refCount: 1}

	go func() {
		if err := session.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("game session stopped", "sessionID", id, "err", err)
		}
		m.remove(id)
	}()

	slog.InfoContext(ctx, "game session started", "sessionID", id)
	return session, nil
}

// Release は参照カウントを減らし、0になったらセッションを停止します。
func (m *SessionManager) Release(id SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ms, ok := m.sessions[id]
	if !ok {
		return
	}
	ms.refCount--
	if ms.refCount > 0 {
		return
	}
	ms.cancel()
	delete(m.sessions, id)
	slog.Info("game session stopped, no clients remain", "sessionID", id)
}

func (m *SessionManager) remove(id SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms, ok := m.sessions[id]; ok {
		ms.cancel()
		delete(m.sessions, id)
	}
}

// Shutdown は全セッションを停止します。
func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, ms := range m.sessions {
		ms.cancel()
		delete(m.sessions, id)
	}
}
