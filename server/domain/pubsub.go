package domain

import (
	"context"
	"log/slog"
	"sync"
)

//go:generate go tool mockgen -destination=./mocks/pubsub_mock.go -package=mocks . PubSub

// Topic はpubsub上の宛先。クライアント宛は "client:<id>"、
// セッション宛は "session:<id>" を使う。
type Topic string

// ClientTopic はクライアント個別配送用のトピックを返す。
func ClientTopic(id ClientID) Topic { return Topic("client:" + string(id)) }

// SessionTopic はセッション配送用のトピックを返す。
func SessionTopic(id SessionID) Topic { return Topic("session:" + string(id)) }

// Message はpubsubで運ぶ1件のペイロード。
type Message struct {
	ClientID ClientID
	Data     []byte
}

// PubSub はサーバー内のメッセージ配送を抽象化する。
type PubSub interface {
	Publish(ctx context.Context, topic Topic, msg Message)
	Subscribe(topic Topic) <-chan Message
	Unsubscribe(topic Topic, ch <-chan Message)
}

// SimplePubSub はインメモリのPubSub実装。
// 購読者のバッファが満杯の場合メッセージは破棄される（backpressure）。
type SimplePubSub struct {
	mu   sync.RWMutex
	subs map[Topic][]chan Message
}

func NewSimplePubSub() *SimplePubSub {
	return &SimplePubSub{subs: make(map[Topic][]chan Message)}
}

func (p *SimplePubSub) Publish(ctx context.Context, topic Topic, msg Message) {
	p.mu.RLock()
	channels := p.subs[topic]
	p.mu.RUnlock()

	for _, ch := range channels {
		select {
		case ch <- msg:
		default:
			slog.WarnContext(ctx, "pubsub: subscriber full, message dropped", "topic", topic)
		}
	}
}

func (p *SimplePubSub) Subscribe(topic Topic) <-chan Message {
	ch := make(chan Message, 256)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs[topic] = append(p.subs[topic], ch)
	return ch
}

func (p *SimplePubSub) Unsubscribe(topic Topic, ch <-chan Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	channels := p.subs[topic]
	for i, c := range channels {
		if c == ch {
			p.subs[topic] = append(channels[:i], channels[i+1:]...)
			close(c)
			break
		}
	}
	if len(p.subs[topic]) == 0 {
		delete(p.subs, topic)
	}
}

var _ PubSub = (*SimplePubSub)(nil)
