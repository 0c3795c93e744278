package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/harvester/internal/domain/model"
)

type stubWaiter struct {
	calls chan model.JobType
	err   error
}

func (s *stubWaiter) WaitForNotification(ctx context.Context, jobType model.JobType) error {
	select {
	case s.calls <- jobType:
	default:
	}
	if s.err != nil {
		return s.err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}

func TestNewNotifierRequiresWaiter(t *testing.T) {
	n, err := NewNotifier(NotifierOptions{})
	require.ErrorIs(t, err, ErrWaiterRequired)
	assert.Nil(t, n)
}

func TestBroadcaster_DeliversSignals(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan model.JobType, 4)}
	n, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)

	unsub, ch := n.Subscribe()
	defer unsub()

	select {
	case jt := <-waiter.calls:
		assert.Equal(t, model.JobTypeIngest, jt)
	case <-time.After(time.Second):
		t.Fatal("expected waiter to be invoked")
	}

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected notification to be delivered")
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan model.JobType, 1)}
	n, err := NewNotifier(NotifierOptions{Waiter: waiter})
	require.NoError(t, err)

	unsub, ch := n.Subscribe()
	unsub()
	unsub()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected channel to close after unsubscribe")
	}
}

func TestBroadcaster_StopClosesAll(t *testing.T) {
	waiter := &stubWaiter{calls: make(chan model.JobType, 2), err: errors.New("listen failed")}
	n, err := NewNotifier(NotifierOptions{Waiter: waiter, Backoff: 10 * time.Millisecond})
	require.NoError(t, err)

	unsubA, chA := n.Subscribe()
	unsubB, chB := n.Subscribe()
	n.Stop()

	for _, ch := range []<-chan struct{}{chA, chB} {
		select {
		case _, ok := <-ch:
			if ok {
				// A signal may have been queued just before close; the next receive observes the close.
				_, ok = <-ch
			}
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("expected channel to close after Stop")
		}
	}

	unsubA()
	unsubB()
}
