package runtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	errspkg "github.com/relayflow/relayflow/internal/runtime/errors"
	"github.com/relayflow/relayflow/internal/runtime/receipts"
)

func TestHandlerStatsCollectsMetrics(t *testing.T) {
	stats := newHandlerStats("handler", "in", "out")

	handler := wrapHandlerWithStats(func(msg *message.Message) ([]*message.Message, error) {
		time.Sleep(time.Millisecond)
		return nil, nil
	}, stats, nil)

	failing := wrapHandlerWithStats(func(msg *message.Message) ([]*message.Message, error) {
		return nil, &errspkg.StructuralDecodeError{Field: "budget"}
	}, stats, nil)

	msg := message.NewMessage(watermill.NewUUID(), []byte("payload"))
	for i := 0; i < 3; i++ {
		if _, err := handler(msg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := failing(msg); err == nil {
		t.Fatal("expected error")
	}

	if stats.MessagesProcessed != 4 {
		t.Fatalf("MessagesProcessed = %d, want 4", stats.MessagesProcessed)
	}
	if stats.MessagesFailed != 1 {
		t.Fatalf("MessagesFailed = %d, want 1", stats.MessagesFailed)
	}
	if stats.Errors.Validation != 1 {
		t.Fatalf("Errors.Validation = %d, want 1", stats.Errors.Validation)
	}
	if stats.Latency.SampleSize != 4 {
		t.Fatalf("Latency.SampleSize = %d, want 4", stats.Latency.SampleSize)
	}
	if stats.Latency.P50Ns <= 0 {
		t.Fatal("expected positive p50 latency")
	}
	if stats.Throughput.TotalMessages != 4 {
		t.Fatalf("Throughput.TotalMessages = %d, want 4", stats.Throughput.TotalMessages)
	}
	if stats.LastProcessedAt.IsZero() {
		t.Fatal("expected LastProcessedAt to be set")
	}
}

func TestHandlerStatsMarshalJSON(t *testing.T) {
	stats := newHandlerStats("handler", "in", "out")
	stats.onMessageFinish(time.Millisecond, nil, nil)

	raw, err := stats.MarshalJSON()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var decoded map[string]any
	if err := receipts.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if decoded["messages_processed"].(float64) != 1 {
		t.Fatalf("messages_processed = %v, want 1", decoded["messages_processed"])
	}
}

func TestErrorBreakdownRecord(t *testing.T) {
	var b ErrorBreakdown

	b.Record(ErrorCategoryNone, nil)
	b.Record(ErrorCategoryValidation, errors.New("bad payload"))
	b.Record(ErrorCategoryTransport, errors.New("broker gone"))
	b.Record(ErrorCategoryDownstream, errors.New("target slow"))
	b.Record(ErrorCategoryOther, errors.New("mystery"))
	b.Record(ErrorCategory("unmapped"), errors.New("also other"))

	if b.Validation != 1 || b.Transport != 1 || b.Downstream != 1 {
		t.Fatalf("unexpected breakdown: %+v", b)
	}
	if b.Other != 2 {
		t.Fatalf("Other = %d, want 2", b.Other)
	}
	if b.LastError != "also other" {
		t.Fatalf("LastError = %q", b.LastError)
	}
}

func TestDefaultErrorClassifier(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ErrorCategoryNone},
		{"structural", &errspkg.StructuralDecodeError{Field: "budget"}, ErrorCategoryValidation},
		{"width", &errspkg.FieldWidthError{Field: "selector", Want: 4, Got: 3}, ErrorCategoryValidation},
		{"metadata", &errspkg.MetadataError{Key: "relay_depositor", Err: errors.New("missing")}, ErrorCategoryValidation},
		{"deadline", context.DeadlineExceeded, ErrorCategoryDownstream},
		{"cancelled", context.Canceled, ErrorCategoryDownstream},
		{"plain", errors.New("boom"), ErrorCategoryOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := defaultErrorClassifier(tt.err); got != tt.want {
				t.Errorf("defaultErrorClassifier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLatencyWindowPercentiles(t *testing.T) {
	lw := newLatencyWindow(10)
	for i := 1; i <= 10; i++ {
		lw.Add(time.Duration(i) * time.Millisecond)
	}

	snapshot := lw.Snapshot()
	if snapshot.SampleSize != 10 {
		t.Fatalf("SampleSize = %d, want 10", snapshot.SampleSize)
	}
	if snapshot.P50Ns <= 0 || snapshot.P95Ns < snapshot.P50Ns || snapshot.P99Ns < snapshot.P95Ns {
		t.Fatalf("non-monotonic percentiles: %+v", snapshot)
	}
	if snapshot.LastNs != int64(10*time.Millisecond) {
		t.Fatalf("LastNs = %d, want %d", snapshot.LastNs, int64(10*time.Millisecond))
	}
}

func TestLatencyWindowWrapsAround(t *testing.T) {
	lw := newLatencyWindow(4)
	for i := 1; i <= 8; i++ {
		lw.Add(time.Duration(i) * time.Millisecond)
	}
	snapshot := lw.Snapshot()
	if snapshot.SampleSize != 4 {
		t.Fatalf("SampleSize = %d, want 4", snapshot.SampleSize)
	}
	// Only the last four samples (5ms..8ms) remain.
	if snapshot.P50Ns < int64(5*time.Millisecond) {
		t.Fatalf("p50 includes evicted samples: %d", snapshot.P50Ns)
	}
}

func TestThroughputWindowEvictsOldSamples(t *testing.T) {
	tw := newThroughputWindow(time.Minute)
	base := time.Now()

	tw.AddAndSnapshot(base.Add(-2 * time.Minute))
	snapshot := tw.AddAndSnapshot(base)
	if snapshot.Count != 1 {
		t.Fatalf("Count = %d, want 1 after eviction", snapshot.Count)
	}

	snapshot = tw.AddAndSnapshot(base.Add(time.Second))
	if snapshot.Count != 2 {
		t.Fatalf("Count = %d, want 2", snapshot.Count)
	}
	if snapshot.CurrentRPS <= 0 {
		t.Fatal("expected positive throughput")
	}
}
