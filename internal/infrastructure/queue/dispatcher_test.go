package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldline/crm-backoffice/internal/core/ports"
)

type recordingSender struct {
	mu   sync.Mutex
	got  []ports.VerificationNotice
	err  error
	done chan struct{}
}

func newRecordingSender(expect int) *recordingSender {
	return &recordingSender{done: make(chan struct{}, expect)}
}

func (s *recordingSender) Send(_ context.Context, n ports.VerificationNotice) error {
	s.mu.Lock()
	s.got = append(s.got, n)
	s.mu.Unlock()
	s.done <- struct{}{}
	return s.err
}

func (s *recordingSender) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %d deliveries, got %d", n, i)
		}
	}
}

func TestDispatcher_DeliversInOrderPerIdentity(t *testing.T) {
	sender := newRecordingSender(3)
	d := NewDispatcher(4, sender, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	for _, a := range []string{"a1", "a2", "a3"} {
		if err := d.Notify(ctx, ports.VerificationNotice{IdentityID: "id-1", Artifact: a}); err != nil {
			t.Fatalf("notify: %v", err)
		}
	}
	sender.wait(t, 3)

	sender.mu.Lock()
	defer sender.mu.Unlock()
	for i, want := range []string{"a1", "a2", "a3"} {
		if sender.got[i].Artifact != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, sender.got[i].Artifact)
		}
	}
}

func TestDispatcher_SendFailureKeepsWorkerAlive(t *testing.T) {
	sender := newRecordingSender(2)
	sender.err = errors.New("smtp down")
	d := NewDispatcher(1, sender, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	_ = d.Notify(ctx, ports.VerificationNotice{IdentityID: "id-1"})
	_ = d.Notify(ctx, ports.VerificationNotice{IdentityID: "id-2"})
	sender.wait(t, 2)
}

func TestDispatcher_FullQueueDoesNotBlock(t *testing.T) {
	d := NewDispatcher(1, newRecordingSender(0), zerolog.Nop())
	ctx := context.Background()

	// workers not started, so the channel fills up
	for i := 0; i < channelBuffer; i++ {
		if err := d.Notify(ctx, ports.VerificationNotice{IdentityID: "id-1"}); err != nil {
			t.Fatalf("notify %d: %v", i, err)
		}
	}
	if err := d.Notify(ctx, ports.VerificationNotice{IdentityID: "id-1"}); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestDispatcher_ShardIndexIsStable(t *testing.T) {
	d := NewDispatcher(8, newRecordingSender(0), zerolog.Nop())
	first := d.shardIndex("id-42")
	for i := 0; i < 10; i++ {
		if got := d.shardIndex("id-42"); got != first {
			t.Fatalf("expected %d, got %d", first, got)
		}
	}
	if first < 0 || first >= 8 {
		t.Fatalf("index out of range: %d", first)
	}
}
