package handler

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"gambit/auth"
	adapterwebsocket "gambit/server/adapter/websocket"
	"gambit/server/domain"
)

type AcceptHandler struct {
	secret  []byte
	pubsub  domain.PubSub
	manager *domain.SessionManager
}

func NewAcceptHandler(secret []byte, pubsub domain.PubSub, manager *domain.SessionManager) *AcceptHandler {
	return &AcceptHandler{secret: secret, pubsub: pubsub, manager: manager}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	claims, err := auth.Verify(h.secret, r.URL.Query().Get("token"))
	if err != nil {
		slog.WarnContext(ctx, "rejected connection, bad token", "err", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // 開発用: Origin チェックをスキップ
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	client := domain.NewClientWithID(domain.ClientID(claims.ClientID), domain.SessionID(claims.SessionID))
	transport := adapterwebsocket.NewTransportFrom(conn)
	connection := domain.NewConnection(client.ID, transport)
	endpoint, err := domain.NewClientEndpoint(client, connection, h.pubsub, h.manager)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create client endpoint", "err", err)
		connection.Close()
		return
	}
	slog.DebugContext(ctx, "accepted new connection", "client_id", client.ID, "session_id", client.SessionID)
	if err := endpoint.Run(); err != nil {
		slog.ErrorContext(ctx, "client endpoint stopped", "client_id", client.ID, "err", err)
	}
}
