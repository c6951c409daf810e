package domain_test

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	domain "gambit/server/domain"
	"gambit/server/domain/mocks"
)

// 初期化時にリソースが正しくセットアップされることを確認
func TestNewClientEndpoint_InitializesDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := domain.NewClient("session-1")
	tr := mocks.NewMockTransport(ctrl)
	conn := domain.NewConnection(c.ID, tr)
	ps := mocks.NewMockPubSub(ctrl)
	manager := domain.NewSessionManager(func(id domain.SessionID) (*domain.GameSession, error) {
		return domain.NewGameSession(id, newTestPipeline(t), domain.NewSimplePubSub(), nil), nil
	})

	ce, err := domain.NewClientEndpoint(c, conn, ps, manager)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ce == nil {
		t.Fatal("endpoint is nil")
	}
}

// 切断されたクライアントはアイドルタイムアウトを待たずに解放される
func TestClientEndpoint_ClosesOnReadError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := domain.NewClient("session-1")
	tr := mocks.NewMockTransport(ctrl)
	tr.EXPECT().Read(gomock.Any()).Return(nil, errors.New("connection reset")).AnyTimes()
	tr.EXPECT().Write(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	tr.EXPECT().Ping(gomock.Any()).Return(nil).AnyTimes()
	tr.EXPECT().Close(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	conn := domain.NewConnection(c.ID, tr)
	manager := domain.NewSessionManager(func(id domain.SessionID) (*domain.GameSession, error) {
		return domain.NewGameSession(id, newTestPipeline(t), domain.NewSimplePubSub(), nil), nil
	})
	defer manager.Shutdown()

	ce, err := domain.NewClientEndpoint(c, conn, domain.NewSimplePubSub(), manager)
	if err != nil {
		t.Fatalf("NewClientEndpoint failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		_ = ce.Run()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("endpoint still running after persistent read error")
	}
}

func TestNewClientEndpoint_RejectsMissingDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	c := domain.NewClient("session-1")
	tr := mocks.NewMockTransport(ctrl)
	conn := domain.NewConnection(c.ID, tr)
	ps := mocks.NewMockPubSub(ctrl)
	manager := domain.NewSessionManager(func(id domain.SessionID) (*domain.GameSession, error) {
		return nil, nil
	})

	tests := []struct {
		name string
		fn   func() (*domain.ClientEndpoint, error)
	}{
		{"nil client", func() (*domain.ClientEndpoint, error) {
			return domain.NewClientEndpoint(nil, conn, ps, manager)
		}},
		{"nil connection", func() (*domain.ClientEndpoint, error) {
			return domain.NewClientEndpoint(c, nil, ps, manager)
		}},
		{"nil pubsub", func() (*domain.ClientEndpoint, error) {
			return domain.NewClientEndpoint(c, conn, nil, manager)
		}},
		{"nil manager", func() (*domain.ClientEndpoint, error) {
			return domain.NewClientEndpoint(c, conn, ps, nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.fn(); err != domain.ErrInitializationFailed {
				t.Errorf("err = %v, want ErrInitializationFailed", err)
			}
		})
	}
}
