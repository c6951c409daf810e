package domain

import (
	"context"
	"log/slog"
	"time"
)

// HeartbeatService は定期的にpingを送信する死活監視サービスです。
type HeartbeatService struct {
	pingInterval time.Duration
	client       *Client
	connection   *Connection
}

// NewHeartbeatService は新しいHeartbeatServiceを生成します。
func NewHeartbeatService(pingInterval time.Duration, client *Client, connection *Connection) *HeartbeatService {
	return &HeartbeatService{
		pingInterval: pingInterval,
		client:       client,
		connection:   connection,
	}
}

// Run はpingInterval間隔でpingを送信します。
// pingはpong受信まで待つため、成功すればlastPongを更新できます。
// ctxがキャンセルされると終了します。
func (h *HeartbeatService) Run(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, h.pingInterval)
			err := h.connection.Ping(pingCtx)
			cancel()
			if err != nil {
				slog.WarnContext(ctx, "heartbeat: ping failed", "clientID", h.client.ID, "err", err)
				continue
			}
			h.client.TouchPong()
			slog.DebugContext(ctx, "heartbeat: pong received", "clientID", h.client.ID)
		}
	}
}
