package job

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/target/harvester/internal/domain/model"
)

// ErrWaiterRequired indicates a notifier cannot be constructed without a waiter.
var ErrWaiterRequired = errors.New("notifier waiter is required")

// Waiter blocks until a job of the given type is announced or ctx ends.
type Waiter interface {
	WaitForNotification(ctx context.Context, jobType model.JobType) error
}

// Notifier fans out job availability signals to subscribed workers.
type Notifier interface {
	Subscribe() (func(), <-chan struct{})
	Stop()
}

// NotifierOptions configure Broadcaster.
type NotifierOptions struct {
	Waiter     Waiter
	JobType    model.JobType
	WaitWindow time.Duration
	Backoff    time.Duration
}

// Broadcaster runs one listener for a job type while it has subscribers and
// wakes every subscriber on each notification or wait-window expiry.
type Broadcaster struct {
	waiter     Waiter
	jobType    model.JobType
	waitWindow time.Duration
	backoff    time.Duration

	mu     sync.Mutex
	subs   map[chan struct{}]struct{}
	cancel context.CancelFunc
}

// NewNotifier constructs a Broadcaster.
func NewNotifier(opts NotifierOptions) (*Broadcaster, error) {
	if opts.Waiter == nil {
		return nil, ErrWaiterRequired
	}
	jobType := opts.JobType
	if jobType == "" {
		jobType = model.JobTypeIngest
	}
	waitWindow := opts.WaitWindow
	if waitWindow <= 0 {
		waitWindow = time.Minute
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = 250 * time.Millisecond
	}
	return &Broadcaster{
		waiter:     opts.Waiter,
		jobType:    jobType,
		waitWindow: waitWindow,
		backoff:    backoff,
		subs:       make(map[chan struct{}]struct{}),
	}, nil
}

// Subscribe registers a wake-up channel. The returned func unsubscribes and closes it.
func (b *Broadcaster) Subscribe() (func(), <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		b.cancel = cancel
		go b.listen(ctx)
	}

	ch := make(chan struct{}, 1)
	b.subs[ch] = struct{}{}

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; !ok {
			return
		}
		delete(b.subs, ch)
		drainAndClose(ch)
		if len(b.subs) == 0 {
			b.stopListener()
		}
	}, ch
}

// Stop cancels the listener and closes all subscriber channels.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopListener()
	for ch := range b.subs {
		drainAndClose(ch)
		delete(b.subs, ch)
	}
}

func (b *Broadcaster) stopListener() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func (b *Broadcaster) listen(ctx context.Context) {
	for ctx.Err() == nil {
		waitCtx, cancel := context.WithTimeout(ctx, b.waitWindow)
		err := b.waiter.WaitForNotification(waitCtx, b.jobType)
		cancel()

		b.broadcast()

		if err != nil && ctx.Err() == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.backoff):
			}
		}
	}
}

func (b *Broadcaster) broadcast() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// drainAndClose empties any buffered signal so receivers observe the close immediately.
func drainAndClose(ch chan struct{}) {
	for {
		select {
		case <-ch:
		default:
			close(ch)
			return
		}
	}
}

var _ Notifier = (*Broadcaster)(nil)
