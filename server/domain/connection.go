package domain

import "context"

// Connection は物理的な接続を表します。
type Connection struct {
	ClientID  ClientID
	transport Transport
}

func NewConnection(clientID ClientID, transport Transport) *Connection {
	return &Connection{
		ClientID:  clientID,
		transport: transport,
	}
}

func (c *Connection) Write(ctx context.Context, data []byte) error {
	return c.transport.Write(ctx, data)
}

func (c *Connection) Read(ctx context.Context) ([]byte, error) {
	return c.transport.Read(ctx)
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.transport.Ping(ctx)
}

func (c *Connection) Close() {
	_ = c.transport.Close(1000, "")
}
