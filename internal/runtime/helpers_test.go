package runtime

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	configpkg "github.com/relayflow/relayflow/internal/runtime/config"
	loggingpkg "github.com/relayflow/relayflow/internal/runtime/logging"
	transportpkg "github.com/relayflow/relayflow/internal/runtime/transport"
)

func newTestSlogLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestLogger() loggingpkg.ServiceLogger {
	return loggingpkg.NewSlogServiceLogger(newTestSlogLogger())
}

// testPublisher records everything published to it.
type testPublisher struct {
	mu       sync.Mutex
	messages map[string][]*message.Message
	err      error
}

func (p *testPublisher) Publish(topic string, messages ...*message.Message) error {
	if p.err != nil {
		return p.err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.messages == nil {
		p.messages = make(map[string][]*message.Message)
	}
	p.messages[topic] = append(p.messages[topic], messages...)
	return nil
}

func (p *testPublisher) Close() error { return nil }

func (p *testPublisher) published(topic string) []*message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*message.Message(nil), p.messages[topic]...)
}

type testSubscriber struct{}

func (testSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	ch := make(chan *message.Message)
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func (testSubscriber) Close() error { return nil }

// fakeTransportFactory hands out fixed publisher/subscriber pairs.
type fakeTransportFactory struct {
	transport transportpkg.Transport
	err       error
}

func (f fakeTransportFactory) Build(ctx context.Context, conf *configpkg.Config, logger watermill.LoggerAdapter) (transportpkg.Transport, error) {
	if f.err != nil {
		return transportpkg.Transport{}, f.err
	}
	return f.transport, nil
}

// newChannelService builds a Service on the in-memory channel broker.
func newChannelService(t *testing.T, conf *configpkg.Config, deps ServiceDependencies) *Service {
	t.Helper()
	if conf == nil {
		conf = &configpkg.Config{}
	}
	svc, err := TryNewService(context.Background(), conf, newTestLogger(), deps)
	if err != nil {
		t.Fatalf("failed to build service: %v", err)
	}
	return svc
}
