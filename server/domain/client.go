package domain

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type (
	// ClientID は接続クライアントの識別子。
	ClientID string
	// SessionID は対局セッションの識別子。
	SessionID string
)

// Client は1接続の論理的な接続状態を表す構造体です。
// 実際のI/OはConnectionが担当し、Clientは活動時刻とライフサイクルのみ追跡します。
type Client struct {
	ID        ClientID
	SessionID SessionID

	// activity
	lastRead  atomic.Int64
	lastWrite atomic.Int64
	lastPong  atomic.Int64

	// lifecycle
	closed atomic.Bool
}

func NewClient(sessionID SessionID) *Client {
	return NewClientWithID(ClientID(uuid.NewString()), sessionID)
}

func NewClientWithID(id ClientID, sessionID SessionID) *Client {
	c := &Client{
		ID:        id,
		SessionID: sessionID,
	}
	now := time.Now().UnixNano()
	c.lastRead.Store(now)
	c.lastWrite.Store(now)
	c.lastPong.Store(now)
	return c
}

func (c *Client) TouchRead() {
	c.lastRead.Store(time.Now().UnixNano())
}

func (c *Client) TouchWrite() {
	c.lastWrite.Store(time.Now().UnixNano())
}

func (c *Client) TouchPong() {
	c.lastPong.Store(time.Now().UnixNano())
}

func (c *Client) Close() bool {
	return c.closed.CompareAndSwap(false, true)
}

func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

func (c *Client) IsIdle(timeout time.Duration) (bool, IdleReason) {
	if timeout <= 0 {
		return false, IdleDisabled
	}
	var reason IdleReason
	if isIdleSince(unixNanoToTime(c.lastRead.Load()), timeout) {
		reason |= IdleRead
	}
	if isIdleSince(unixNanoToTime(c.lastWrite.Load()), timeout) {
		reason |= IdleWrite
	}
	if isIdleSince(unixNanoToTime(c.lastPong.Load()), timeout) {
		reason |= IdlePong
	}
	return reason != IdleNone, reason
}

func isIdleSince(last time.Time, timeout time.Duration) bool {
	return time.Since(last) > timeout
}

func unixNanoToTime(nano int64) time.Time {
	return time.Unix(0, nano)
}
