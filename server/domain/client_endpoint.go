package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"gambit/protocol"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed はエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize client endpoint")
)

// ClientEndpoint は1クライアント接続のI/Oループを束ねます。
// 受信したコマンドはGameSessionのinboxに直列化され、
// 自分宛のpubsubメッセージは書き込みループ経由で接続に流れます。
type ClientEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	client     *Client
	connection *Connection
	pubsub     PubSub
	manager    *SessionManager
	session    *GameSession

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	idleTimeout  time.Duration
	pingInterval time.Duration

	// lifecycle
	closed atomic.Bool
}

func NewClientEndpoint(client *Client, connection *Connection, pubsub PubSub, manager *SessionManager) (*ClientEndpoint, error) {
	if client == nil {
		return nil, ErrInitializationFailed
	}
	if connection == nil {
		return nil, ErrInitializationFailed
	}
	if pubsub == nil {
		return nil, ErrInitializationFailed
	}
	if manager == nil {
		return nil, ErrInitializationFailed
	}
	ctx, cancel := context.WithCancel(context.Background())
	ce := &ClientEndpoint{
		ctx:          ctx,
		cancel:       cancel,
		client:       client,
		connection:   connection,
		pubsub:       pubsub,
		manager:      manager,
		ctrlCh:       make(chan endpointEvent, 16),
		writeCh:      make(chan []byte, 1024),
		idleTimeout:  30 * time.Second,
		pingInterval: 10 * time.Second,
	}
	return ce, nil
}

func (ce *ClientEndpoint) Run() error {
	session, err := ce.manager.Acquire(ce.ctx, ce.client.SessionID)
	if err != nil {
		ce.close()
		return err
	}
	ce.session = session

	// 自分宛のメッセージを購読
	topic := ClientTopic(ce.client.ID)
	msgCh := ce.pubsub.Subscribe(topic)
	defer ce.pubsub.Unsubscribe(topic, msgCh)

	// Joinで参加時スナップショットが届く
	if err := session.Join(ce.client.ID); err != nil {
		ce.close()
		return err
	}
	defer func() {
		_ = session.Leave(ce.client.ID)
		ce.manager.Release(ce.client.SessionID)
	}()

	heartbeat := NewHeartbeatService(ce.pingInterval, ce.client, ce.connection)

	eg, ctx := errgroup.WithContext(ce.ctx)
	eg.Go(func() error {
		ce.ownerLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		ce.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		ce.writeLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		ce.subscribeLoop(ctx, msgCh)
		return nil
	})
	eg.Go(func() error {
		heartbeat.Run(ctx)
		return nil
	})

	return eg.Wait()
}

func (ce *ClientEndpoint) Send(data []byte) error {
	select {
	case ce.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (ce *ClientEndpoint) Close(ctx context.Context) {
	ce.sendCtrlEvent(ctx, endpointEvent{kind: evClose, err: nil})
}

func (ce *ClientEndpoint) ForceClose() {
	ce.close()
}

// ownerLoop は論理クライアントの状態を監視し、必要に応じて接続を閉じます。
func (ce *ClientEndpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ce.ctrlCh:
			ce.handleControlEvent(ctx, ev)
		case <-ticker.C:
			ok, reason := ce.client.IsIdle(ce.idleTimeout)
			if ok {
				ce.handleControlEvent(ctx, endpointEvent{
					kind: evClose,
					err:  errors.New(reason.String()),
				})
			}
		}
	}
}

func (ce *ClientEndpoint) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			data, err := ce.connection.Read(ctx)
			if err != nil {
				ce.sendCtrlEvent(ctx, endpointEvent{kind: evReadError, err: err})
				continue
			}
			ce.client.TouchRead()
			ce.handleData(ctx, data)
		}
	}
}

func (ce *ClientEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-ce.writeCh:
			err := ce.connection.Write(ctx, data)
			if err != nil {
				ce.sendCtrlEvent(ctx, endpointEvent{kind: evWriteError, err: err})
				continue
			}
			ce.client.TouchWrite()
		}
	}
}

// subscribeLoop はpubsubからのメッセージをwriteChに転送します。
func (ce *ClientEndpoint) subscribeLoop(ctx context.Context, msgCh <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			if err := ce.Send(msg.Data); err != nil {
				slog.Warn("subscribeLoop: message dropped", "clientID", ce.client.ID, "err", err)
			}
		}
	}
}

func (ce *ClientEndpoint) close() {
	if !ce.closed.CompareAndSwap(false, true) {
		return
	}
	ce.cancel()
	ce.client.Close()
	ce.connection.Close()
}

// handleData は受信したエンベロープを検証し、セッションのinboxに積みます。
func (ce *ClientEndpoint) handleData(ctx context.Context, data []byte) {
	msg, err := protocol.DecodeMessage(data)
	if err != nil {
		slog.WarnContext(ctx, "failed to decode message", "clientID", ce.client.ID, "err", err)
		return
	}
	if msg.Type != protocol.MessageCommand && msg.Type != protocol.MessageSnapshotRequest {
		slog.WarnContext(ctx, "unexpected inbound message type", "clientID", ce.client.ID, "type", msg.Type)
		return
	}
	if msg.SessionID != "" && msg.SessionID != string(ce.client.SessionID) {
		slog.WarnContext(ctx, "session ID mismatch",
			"clientID", ce.client.ID, "expected", ce.client.SessionID, "got", msg.SessionID)
		return
	}
	if err := ce.session.Enqueue(ce.client.ID, *msg); err != nil {
		slog.WarnContext(ctx, "failed to enqueue command", "clientID", ce.client.ID, "err", err)
	}
}

// handleControlEvent は制御チャネルからのイベントを処理する唯一の関数です。
func (ce *ClientEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evClose:
		ce.close()
	case evPong:
		ce.client.TouchPong()
	case evReadError:
		// 切断後のReadは失敗し続けるので、アイドル判定を待たずに畳む
		slog.InfoContext(ctx, "closing endpoint on read error", "clientID", ce.client.ID, "err", ev.err)
		ce.close()
	case evWriteError, evPingFailed:
		return
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (ce *ClientEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case ce.ctrlCh <- ev:
	case <-ctx.Done():
	}
}
