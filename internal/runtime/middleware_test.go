package runtime

import (
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	configpkg "github.com/relayflow/relayflow/internal/runtime/config"
	errspkg "github.com/relayflow/relayflow/internal/runtime/errors"
	metadatapkg "github.com/relayflow/relayflow/internal/runtime/metadata"
)

func passthroughHandler(out []*message.Message, err error) message.HandlerFunc {
	return func(msg *message.Message) ([]*message.Message, error) {
		return out, err
	}
}

func TestProposalIDMiddlewareAddsID(t *testing.T) {
	svc := newChannelService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})

	mw := svc.proposalIDMiddleware()
	msg := message.NewMessage(watermill.NewUUID(), []byte("payload"))

	_, err := mw(passthroughHandler(nil, nil))(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Metadata[metadatapkg.KeyProposalID] == "" {
		t.Fatal("expected proposal ID to be injected")
	}
}

func TestProposalIDMiddlewareKeepsExistingID(t *testing.T) {
	svc := newChannelService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})

	mw := svc.proposalIDMiddleware()
	msg := message.NewMessage(watermill.NewUUID(), []byte("payload"))
	msg.Metadata[metadatapkg.KeyProposalID] = "existing"

	if _, err := mw(passthroughHandler(nil, nil))(msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := msg.Metadata[metadatapkg.KeyProposalID]; got != "existing" {
		t.Fatalf("proposal ID = %q, want existing", got)
	}
}

func TestRetryMiddlewareSkipsValidationErrors(t *testing.T) {
	svc := newChannelService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})

	mw := svc.retryMiddlewareWithConfig(RetryMiddlewareConfig{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	})

	calls := 0
	handler := mw(func(msg *message.Message) ([]*message.Message, error) {
		calls++
		return nil, &errspkg.StructuralDecodeError{Field: "budget"}
	})

	msg := message.NewMessage(watermill.NewUUID(), []byte("short"))
	if _, err := handler(msg); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("validation error was retried %d times", calls-1)
	}
}

func TestRetryMiddlewareRetriesTransientErrors(t *testing.T) {
	svc := newChannelService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})

	mw := svc.retryMiddlewareWithConfig(RetryMiddlewareConfig{
		MaxRetries:      2,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	})

	calls := 0
	handler := mw(func(msg *message.Message) ([]*message.Message, error) {
		calls++
		return nil, errors.New("transient")
	})

	msg := message.NewMessage(watermill.NewUUID(), []byte("payload"))
	if _, err := handler(msg); err == nil {
		t.Fatal("expected error after retries exhausted")
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestRetryMiddlewareHonoursCustomRetryIf(t *testing.T) {
	svc := newChannelService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})

	mw := svc.retryMiddlewareWithConfig(RetryMiddlewareConfig{
		MaxRetries:      3,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		RetryIf:         func(err error) bool { return false },
	})

	calls := 0
	handler := mw(func(msg *message.Message) ([]*message.Message, error) {
		calls++
		return nil, errors.New("transient")
	})

	msg := message.NewMessage(watermill.NewUUID(), []byte("payload"))
	if _, err := handler(msg); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("expected 1 attempt, got %d", calls)
	}
}

func TestPoisonQueueMiddlewareDisabledWithoutTopic(t *testing.T) {
	svc := newChannelService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})

	reg := PoisonQueueMiddleware(nil)
	mw, err := reg.Builder(svc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mw != nil {
		t.Fatal("expected nil middleware when no poison queue configured")
	}
}

func TestPoisonQueueMiddlewareDefaultFilter(t *testing.T) {
	pub := &testPublisher{}
	svc := newChannelService(t, &configpkg.Config{PoisonQueue: "bridge.poison"}, ServiceDependencies{
		DisableDefaultMiddlewares: true,
	})
	svc.publisher = pub

	reg := PoisonQueueMiddleware(nil)
	mw, err := reg.Builder(svc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mw == nil {
		t.Fatal("expected poison middleware")
	}

	handler := mw(passthroughHandler(nil, &errspkg.FieldWidthError{Field: "selector", Want: 4, Got: 3}))
	msg := message.NewMessage(watermill.NewUUID(), []byte("payload"))
	if _, err := handler(msg); err != nil {
		t.Fatalf("poisoned message should not fail the handler: %v", err)
	}
	if got := len(pub.published("bridge.poison")); got != 1 {
		t.Fatalf("expected 1 poison message, got %d", got)
	}

	// A transient failure is not poison.
	handler = mw(passthroughHandler(nil, errors.New("transient")))
	msg = message.NewMessage(watermill.NewUUID(), []byte("payload"))
	if _, err := handler(msg); err == nil {
		t.Fatal("transient failure should propagate")
	}
	if got := len(pub.published("bridge.poison")); got != 1 {
		t.Fatalf("transient failure must not be poisoned, got %d messages", got)
	}
}

func TestPoisonQueueMiddlewareRequiresPublisher(t *testing.T) {
	svc := newChannelService(t, &configpkg.Config{PoisonQueue: "bridge.poison"}, ServiceDependencies{
		DisableDefaultMiddlewares: true,
	})
	svc.publisher = nil

	if _, err := svc.poisonMiddlewareWithFilter(errspkg.IsValidation); !errors.Is(err, errspkg.ErrPublisherRequired) {
		t.Fatalf("expected ErrPublisherRequired, got %v", err)
	}
}

func TestLogMessagesMiddlewarePassesThrough(t *testing.T) {
	svc := newChannelService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})

	mw := svc.logMessagesMiddleware(newTestLogger())
	want := []*message.Message{message.NewMessage(watermill.NewUUID(), []byte("out"))}

	got, err := mw(passthroughHandler(want, nil))(message.NewMessage(watermill.NewUUID(), []byte("in")))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatal("expected handler output to pass through")
	}
}

func TestTracerMiddlewareSetsContext(t *testing.T) {
	svc := newChannelService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})

	mw := svc.tracerMiddleware()
	msg := message.NewMessage(watermill.NewUUID(), []byte("payload"))

	var seen *message.Message
	_, err := mw(func(m *message.Message) ([]*message.Message, error) {
		seen = m
		return nil, nil
	})(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen.Context() == nil {
		t.Fatal("expected span context on message")
	}
}

func TestMetricsMiddlewareDisabled(t *testing.T) {
	svc := newChannelService(t, &configpkg.Config{MetricsEnabled: false}, ServiceDependencies{
		DisableDefaultMiddlewares: true,
	})

	reg := MetricsMiddleware()
	mw, err := reg.Builder(svc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mw != nil {
		t.Fatal("expected nil middleware when metrics disabled")
	}
}

func TestRegisterMiddlewareValidations(t *testing.T) {
	svc := newChannelService(t, nil, ServiceDependencies{DisableDefaultMiddlewares: true})

	if err := svc.RegisterMiddleware(MiddlewareRegistration{Name: "empty"}); err == nil {
		t.Fatal("expected error for registration without Middleware or Builder")
	}

	builderErr := errors.New("builder failed")
	err := svc.RegisterMiddleware(MiddlewareRegistration{
		Name: "failing",
		Builder: func(*Service) (message.HandlerMiddleware, error) {
			return nil, builderErr
		},
	})
	if !errors.Is(err, builderErr) {
		t.Fatalf("expected builder error, got %v", err)
	}

	var noRouter Service
	if err := noRouter.RegisterMiddleware(RecovererMiddleware()); err == nil {
		t.Fatal("expected error without router")
	}
}

func TestDefaultMiddlewares(t *testing.T) {
	names := make([]string, 0)
	for _, reg := range DefaultMiddlewares() {
		names = append(names, reg.Name)
	}
	want := []string{"proposal_id", "log_messages", "tracer", "metrics", "retry", "poison_queue", "recoverer"}
	if len(names) != len(want) {
		t.Fatalf("middleware chain = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("middleware chain = %v, want %v", names, want)
		}
	}
}
