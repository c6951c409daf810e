package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	appdomain "gambit/application/domain"
	"gambit/application/service"
	"gambit/application/state/memory"
	"gambit/journal"
	"gambit/server"
	"gambit/server/domain"
	"gambit/telemetry"
	"gambit/utils"
)

// noopMetrics は計測基盤未接続時のプレースホルダ。
type noopMetrics struct{}

func (noopMetrics) RecordLatency(context.Context, string, time.Duration) {}
func (noopMetrics) IncrementCounter(context.Context, string, int)        {}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	secret := utils.GetEnvDefault("AUTH_SECRET", "")
	journalPath := utils.GetEnvDefault("JOURNAL_PATH", "")
	boardW := mustEnvInt("BOARD_W", 8)
	boardH := mustEnvInt("BOARD_H", 8)

	if secret == "" {
		slog.Error("AUTH_SECRET is required")
		os.Exit(1)
	}

	shutdownTelemetry, err := telemetry.Setup(ctx, "gambit-server")
	if err != nil {
		slog.ErrorContext(ctx, "telemetry setup failed", "err", err)
		os.Exit(1)
	}

	// Journal初期化
	var jnl journal.Journal
	if journalPath != "" {
		sj, err := journal.OpenSQLite(journalPath)
		if err != nil {
			slog.ErrorContext(ctx, "failed to open journal", "path", journalPath, "err", err)
			os.Exit(1)
		}
		jnl = sj
	} else {
		jnl = journal.NewMemoryJournal()
	}

	// PubSub初期化
	pubsub := domain.NewSimplePubSub()

	bounds := appdomain.Bounds{Width: boardW, Height: boardH}
	manager := domain.NewSessionManager(func(id domain.SessionID) (*domain.GameSession, error) {
		board, err := memory.NewBoard(bounds, seedPositions(bounds))
		if err != nil {
			return nil, err
		}
		pipeline, err := service.NewCommandService(
			memory.NewSerializedBoard(board),
			service.AllowAll{},
			service.NewRegistry(),
			noopMetrics{},
			service.SystemClock{},
		)
		if err != nil {
			return nil, err
		}
		return domain.NewGameSession(id, pipeline, pubsub, jnl), nil
	})

	handler := server.Route([]byte(secret), pubsub, manager)
	s := server.NewServer(fmt.Sprintf("%s:%s", addr, port), otelhttp.NewHandler(handler, "gambit"))

	go func() {
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()
	slog.InfoContext(ctx, "server listening", "addr", addr+":"+port)

	<-ctx.Done()
	slog.InfoContext(ctx, "shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
		if err := s.Close(); err != nil {
			slog.ErrorContext(ctx, "forced close failed", "error", err)
		}
	}
	manager.Shutdown()
	if err := jnl.Close(); err != nil {
		slog.ErrorContext(ctx, "journal close failed", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "telemetry shutdown failed", "error", err)
	}
	slog.InfoContext(ctx, "server shutdown complete")
}

func mustEnvInt(name string, def int) int {
	n, err := utils.GetEnvIntDefault(name, def)
	if err != nil || n <= 0 {
		slog.Error("invalid value", "name", name, "err", err, "value", n)
		os.Exit(1)
	}
	return n
}

// seedPositions は各クライアントが初期状態から合意できるよう、
// 両端の2行にポーンを並べた初期配置を作る。
func seedPositions(bounds appdomain.Bounds) map[string]appdomain.Cell {
	positions := make(map[string]appdomain.Cell)
	for col := 0; col < bounds.Width; col++ {
		positions[fmt.Sprintf("pawn_w_%d", col)] = appdomain.Cell{Row: 1, Col: col}
		positions[fmt.Sprintf("pawn_b_%d", col)] = appdomain.Cell{Row: bounds.Height - 2, Col: col}
	}
	return positions
}
