package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// flakyPublisher fails the first failures calls.
type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	calls     int
	delivered chan Notification
}

func (p *flakyPublisher) Publish(_ context.Context, n Notification) error {
	p.mu.Lock()
	p.calls++
	fail := p.calls <= p.failures
	p.mu.Unlock()
	if fail {
		return errors.New("transport down")
	}
	if p.delivered != nil {
		p.delivered <- n
	}
	return nil
}

type recordingOutbox struct {
	inserted []Notification
	err      error
}

func (o *recordingOutbox) Insert(_ context.Context, n Notification) error {
	if o.err != nil {
		return o.err
	}
	o.inserted = append(o.inserted, n)
	return nil
}

var fixedNow = func() time.Time { return time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC) }

func TestPublishWithRetry(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, RetryDelay: time.Millisecond}
	n := Notification{ID: uuid.New(), Type: EventClockIn}

	p := &flakyPublisher{failures: 2}
	if err := publishWithRetry(context.Background(), p, cfg, n); err != nil {
		t.Fatalf("publishWithRetry: %v", err)
	}
	if p.calls != 3 {
		t.Errorf("calls = %d, want 3", p.calls)
	}

	p = &flakyPublisher{failures: 10}
	if err := publishWithRetry(context.Background(), p, cfg, n); err == nil {
		t.Fatal("expected an error after exhausting retries")
	}
	if p.calls != cfg.MaxRetries+1 {
		t.Errorf("calls = %d, want %d", p.calls, cfg.MaxRetries+1)
	}
}

func TestPublishWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &flakyPublisher{failures: 10}

	err := publishWithRetry(ctx, p, RetryConfig{MaxRetries: 5, RetryDelay: time.Hour}, Notification{ID: uuid.New()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if p.calls != 1 {
		t.Errorf("calls = %d, want 1", p.calls)
	}
}

func TestAsyncDispatcher_DeliversInBackground(t *testing.T) {
	p := &flakyPublisher{failures: 1, delivered: make(chan Notification, 1)}
	d := NewAsyncDispatcher(p, RetryConfig{MaxRetries: 2, RetryDelay: time.Millisecond}, fixedNow)
	user := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	d.Notify(ctx, EventClockOut, User(user), Message{Title: "Clocked out", Body: "You worked 1h 00m 00s."})
	cancel()

	select {
	case n := <-p.delivered:
		if n.Type != EventClockOut || n.Recipient != User(user) || !n.CreatedAt.Equal(fixedNow()) {
			t.Errorf("delivered = %+v", n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notification was never delivered")
	}
}

func TestOutboxDispatcher(t *testing.T) {
	outbox := &recordingOutbox{}
	d := NewOutboxDispatcher(outbox, fixedNow)
	team := uuid.New()

	d.Notify(context.Background(), EventForceStopped, TeamAdmins(team), Message{Title: "Session limit reached"})
	if len(outbox.inserted) != 1 {
		t.Fatalf("inserted = %d, want 1", len(outbox.inserted))
	}
	n := outbox.inserted[0]
	if n.Recipient.Kind != RecipientTeamAdmins || n.Recipient.ID != team || n.ID == uuid.Nil {
		t.Errorf("queued = %+v", n)
	}

	// insert failures are logged, never returned to the caller
	outbox.err = errors.New("db down")
	d.Notify(context.Background(), EventClockIn, User(uuid.New()), Message{})
}
