package queue

import (
	"context"
	"sync"

	"github.com/assessment-platform/enginer/ent/job"
)

// InProcessNotifier is the in-process transport fallback: a buffered
// channel per job kind. Used when QueueConfig.Mode is in_process, or as
// the notifier a single-replica deployment runs without standing up NATS.
type InProcessNotifier struct {
	mu       sync.Mutex
	channels map[job.Kind]chan struct{}
}

// NewInProcessNotifier constructs an InProcessNotifier.
func NewInProcessNotifier() *InProcessNotifier {
	return &InProcessNotifier{channels: make(map[job.Kind]chan struct{})}
}

func (n *InProcessNotifier) channel(kind job.Kind) chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch, ok := n.channels[kind]
	if !ok {
		ch = make(chan struct{}, 1)
		n.channels[kind] = ch
	}
	return ch
}

// Notify sends a non-blocking wake-up; a channel already holding a pending
// signal is left as-is, since one pending signal is as good as several.
func (n *InProcessNotifier) Notify(_ context.Context, kind job.Kind) error {
	select {
	case n.channel(kind) <- struct{}{}:
	default:
	}
	return nil
}

// Listen returns the wake-up channel for kind.
func (n *InProcessNotifier) Listen(kind job.Kind) <-chan struct{} {
	return n.channel(kind)
}

// Close is a no-op: there is no external resource to release.
func (n *InProcessNotifier) Close() error { return nil }
