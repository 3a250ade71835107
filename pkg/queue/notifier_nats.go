package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/assessment-platform/enginer/ent/job"
)

// NATSNotifier is the broker-backed wake-up transport: one memory-storage
// JetStream stream ("JOBS") carrying a subject per job kind. Messages on
// this stream are pure wake-up signals, never the job payload itself — the
// payload always lives in the Job table, so a lost or duplicated signal
// only costs an extra poll, never a lost job.
type NATSNotifier struct {
	nc *nats.Conn
	js nats.JetStreamContext

	mu       sync.Mutex
	channels map[job.Kind]chan struct{}
	subs     []*nats.Subscription
}

const jobsStreamName = "JOBS"

// NewNATSNotifier connects to addr, ensures the JOBS stream exists, and
// returns a ready-to-use NATSNotifier.
func NewNATSNotifier(addr string) (*NATSNotifier, error) {
	nc, err := nats.Connect(addr, nats.MaxReconnects(-1), nats.ReconnectWait(2*time.Second))
	if err != nil {
		return nil, fmt.Errorf("queue: connecting to nats at %s: %w", addr, err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("queue: obtaining jetstream context: %w", err)
	}

	if err := ensureJobsStream(js); err != nil {
		nc.Close()
		return nil, err
	}

	return &NATSNotifier{nc: nc, js: js, channels: make(map[job.Kind]chan struct{})}, nil
}

func ensureJobsStream(js nats.JetStreamContext) error {
	cfg := &nats.StreamConfig{
		Name:        jobsStreamName,
		Description: "Wake-up signals for the durable job pipeline; the Job table, not this stream, is authoritative",
		Subjects:    []string{"jobs.>"},
		Storage:     nats.MemoryStorage,
		MaxAge:      5 * time.Minute,
		Retention:   nats.LimitsPolicy,
	}

	if _, err := js.StreamInfo(jobsStreamName); err != nil {
		if err == nats.ErrStreamNotFound {
			_, err := js.AddStream(cfg)
			return err
		}
		return err
	}
	_, err := js.UpdateStream(cfg)
	return err
}

func subjectFor(kind job.Kind) string {
	return "jobs." + string(kind)
}

// Notify publishes a wake-up signal for kind.
func (n *NATSNotifier) Notify(_ context.Context, kind job.Kind) error {
	_, err := n.js.Publish(subjectFor(kind), nil)
	return err
}

// Listen returns a channel that fires once per received wake-up signal for
// kind, subscribing lazily on first call.
func (n *NATSNotifier) Listen(kind job.Kind) <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()

	if ch, ok := n.channels[kind]; ok {
		return ch
	}

	ch := make(chan struct{}, 1)
	n.channels[kind] = ch

	sub, err := n.js.Subscribe(subjectFor(kind), func(msg *nats.Msg) {
		select {
		case ch <- struct{}{}:
		default:
		}
		_ = msg.Ack()
	}, nats.AckNone(), nats.DeliverNew())
	if err == nil {
		n.subs = append(n.subs, sub)
	}

	return ch
}

// Close unsubscribes and closes the underlying connection.
func (n *NATSNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, sub := range n.subs {
		_ = sub.Unsubscribe()
	}
	n.nc.Close()
	return nil
}
