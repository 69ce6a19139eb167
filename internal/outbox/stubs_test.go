package outbox

import (
	"context"
	"slices"
	"sync"

	"github.com/segmentio/kafka-go"
)

// stubProducer records each WriteMessages call as one batch. failTopic limits
// err to writes for that topic.
type stubProducer struct {
	mu        sync.Mutex
	err       error
	failTopic string
	writes    []producedBatch
}

type producedBatch struct {
	topic    string
	messages []kafka.Message
}

func (p *stubProducer) WriteMessages(_ context.Context, topic string, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil && (p.failTopic == "" || p.failTopic == topic) {
		return p.err
	}
	p.writes = append(p.writes, producedBatch{topic: topic, messages: slices.Clone(msgs)})
	return nil
}

// stubRegistry hands out one schema ID per subject, starting at id.
type stubRegistry struct {
	mu       sync.Mutex
	id       int
	err      error
	calls    []string
	subjects []string
}

func (r *stubRegistry) EnsureSchema(_ context.Context, subject, _ string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, subject)
	if r.err != nil {
		return 0, r.err
	}
	idx := slices.Index(r.subjects, subject)
	if idx < 0 {
		r.subjects = append(r.subjects, subject)
		idx = len(r.subjects) - 1
	}
	return max(r.id, 1) + idx, nil
}
