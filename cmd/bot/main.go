package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"gambit/application/domain"
	"gambit/auth"
	"gambit/client"
	"gambit/protocol"
	"gambit/utils"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	secret := utils.GetEnvDefault("AUTH_SECRET", "")
	sessionID := utils.GetEnvDefault("SESSION_ID", "default")
	botCount, err := utils.GetEnvIntDefault("BOT_COUNT", 2)
	if err != nil {
		slog.Error("invalid BOT_COUNT", "err", err)
		os.Exit(1)
	}
	if secret == "" {
		slog.Error("AUTH_SECRET is required")
		os.Exit(1)
	}

	serverURL := fmt.Sprintf("ws://%s:%s/ws", addr, port)
	slog.Info("starting bots", "count", botCount, "server", serverURL, "session", sessionID)

	var wg sync.WaitGroup
	for i := range botCount {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runBot(ctx, serverURL, []byte(secret), sessionID, id)
		}(i)
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, serverURL string, secret []byte, sessionID string, id int) {
	logger := slog.With("botID", id)

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, serverURL, secret, sessionID, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

// wsSender はトラッカーとスナップショット要求を1本の接続に流す。
type wsSender struct {
	conn      *websocket.Conn
	clientID  string
	sessionID string
}

func (s *wsSender) Send(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

func (s *wsSender) RequestSnapshot(ctx context.Context) error {
	data, err := protocol.EncodeMessage(protocol.NewSnapshotRequestMessage(s.clientID, s.sessionID))
	if err != nil {
		return err
	}
	return s.Send(ctx, data)
}

func botSession(ctx context.Context, serverURL string, secret []byte, sessionID string, logger *slog.Logger) error {
	clientID := uuid.NewString()
	token, err := auth.NewToken(secret, clientID, sessionID, time.Hour)
	if err != nil {
		return fmt.Errorf("mint token: %w", err)
	}

	conn, _, err := websocket.Dial(ctx, serverURL+"?token="+url.QueryEscape(token), nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	logger.Info("connected", "clientID", clientID)

	sender := &wsSender{conn: conn, clientID: clientID, sessionID: sessionID}
	history := client.NewHistory(256)
	tracker := client.NewTracker(sender, history, clientID, sessionID)
	board := client.NewReconciler(sender)

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// 受信ループ
	recvErr := make(chan error, 1)
	go func() {
		recvErr <- receiveLoop(sessionCtx, conn, tracker, board, logger)
	}()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sessionCtx.Done():
			return sessionCtx.Err()
		case err := <-recvErr:
			return err
		case <-ticker.C:
			if err := sendRandomMove(sessionCtx, tracker, board); err != nil {
				logger.Warn("failed to send command", "err", err)
			}
		}
	}
}

func receiveLoop(ctx context.Context, conn *websocket.Conn, tracker *client.Tracker, board *client.Reconciler, logger *slog.Logger) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		msg, err := protocol.DecodeMessage(data)
		if err != nil {
			logger.Warn("undecodable message", "err", err)
			continue
		}
		switch msg.Type {
		case protocol.MessageResponse:
			if err := tracker.HandleResponse(ctx, msg); err != nil {
				logger.Debug("response not applied", "err", err)
			}
		case protocol.MessageBroadcast:
			result, err := protocol.ResultFromBroadcast(msg)
			if err != nil {
				logger.Warn("bad broadcast", "err", err)
				continue
			}
			if _, err := board.Reconcile(ctx, result); err != nil {
				logger.Warn("reconcile failed, awaiting snapshot", "err", err)
			}
		case protocol.MessageSnapshot:
			snap, err := protocol.SnapshotFromMessage(msg)
			if err != nil {
				logger.Warn("bad snapshot", "err", err)
				continue
			}
			board.ApplySnapshot(snap)
			logger.Info("snapshot applied", "version", snap.Version)
		default:
			logger.Debug("ignoring message", "type", msg.Type)
		}
	}
}

// sendRandomMove は自盤面のレプリカから駒を1つ選び、隣接セルへのMOVEを送る。
func sendRandomMove(ctx context.Context, tracker *client.Tracker, board *client.Reconciler) error {
	positions := board.Positions()
	if len(positions) == 0 {
		return nil // スナップショット待ち
	}
	ids := make([]string, 0, len(positions))
	for id := range positions {
		ids = append(ids, id)
	}
	pieceID := ids[rand.Intn(len(ids))]
	from := positions[pieceID]

	deltas := []domain.Cell{{Row: 1}, {Row: -1}, {Col: 1}, {Col: -1}}
	d := deltas[rand.Intn(len(deltas))]
	to := domain.Cell{Row: from.Row + d.Row, Col: from.Col + d.Col}

	cmd := client.NewMoveCommand(pieceID, from, to)
	return tracker.Send(ctx, cmd)
}
