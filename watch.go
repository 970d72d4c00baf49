package smbc

import (
	"context"
	"sync"
	"time"
)

// watchQueueDepth is the event channel buffer of a Watcher.
const watchQueueDepth = 16

const defaultPollInterval = 500 * time.Millisecond

// WatchOptions configures a directory watch.
type WatchOptions struct {
	// Recursive extends the watch to the whole subtree.
	Recursive bool

	// Filter selects which kinds of changes are reported. Zero means
	// NotifyChangeAll.
	Filter NotifyFilter

	// PollInterval bounds how long a stop request can go unnoticed: the
	// engine wakes the watch at least this often even when idle. Zero
	// means 500ms.
	PollInterval time.Duration

	// IdleTimeout, when positive, takes effect after the watch has seen
	// no changes for this long. What happens then depends on
	// SendTimeouts.
	IdleTimeout time.Duration

	// SendTimeouts turns idle timeouts into Notification values with
	// Timeout set, keeping the watch alive. When false an idle timeout
	// ends the watch instead.
	SendTimeouts bool
}

func (o WatchOptions) withDefaults() WatchOptions {
	if o.Filter == 0 {
		o.Filter = NotifyChangeAll
	}
	if o.PollInterval <= 0 {
		o.PollInterval = defaultPollInterval
	}
	return o
}

// Notification is one delivery on a Watcher's event channel: either a
// batch of change actions, or an idle-timeout marker when the watch was
// started with SendTimeouts.
type Notification struct {
	Actions []NotifyAction
	Timeout bool
}

// Watcher adapts the engine's blocking, callback-driven change notify
// into a channel of Notifications. The blocking call runs on the
// context's dispatch worker, which the watch occupies until it ends.
type Watcher struct {
	events  chan Notification
	stopped chan struct{}
	stop    sync.Once
	fut     *Future[struct{}]
}

// Watch starts watching the directory for changes and returns the
// Watcher delivering them. The context must be in asynchronous mode:
// the underlying blocking notify call is dispatched to its worker, and
// no other dispatched operation will run until the watch ends.
func (d *Dir) Watch(opts WatchOptions) (*Watcher, error) {
	if err := d.check(); err != nil {
		return nil, wrapOpError("notify", "", err)
	}
	if d.ctx.table.Notify == nil {
		return nil, wrapOpError("notify", "", ErrNotSupported)
	}
	if !d.ctx.Async() {
		return nil, wrapOpError("notify", "", ErrAsyncNotEnabled)
	}
	opts = opts.withDefaults()

	w := &Watcher{
		events:  make(chan Notification, watchQueueDepth),
		stopped: make(chan struct{}),
	}
	w.fut = Dispatch(d.ctx, func() (struct{}, error) {
		return struct{}{}, d.Notify(opts, w.callback(opts))
	})
	go func() {
		<-w.fut.Done()
		close(w.events)
	}()
	return w, nil
}

// callback builds the engine-facing delivery function. The engine
// invokes it with each batch of actions and, at least every poll
// interval, with an empty batch; returning true ends the watch.
func (w *Watcher) callback(opts WatchOptions) func([]NotifyAction) bool {
	last := time.Now()
	return func(actions []NotifyAction) bool {
		select {
		case <-w.stopped:
			return true
		default:
		}

		if len(actions) > 0 {
			last = time.Now()
			return !w.send(Notification{Actions: actions})
		}

		if opts.IdleTimeout > 0 && time.Since(last) >= opts.IdleTimeout {
			if !opts.SendTimeouts {
				return true
			}
			last = time.Now()
			return !w.send(Notification{Timeout: true})
		}
		return false
	}
}

// send delivers n unless the watcher is stopped first. It reports
// whether the delivery happened.
func (w *Watcher) send(n Notification) bool {
	select {
	case w.events <- n:
		return true
	case <-w.stopped:
		return false
	}
}

// Events returns the delivery channel. It is closed when the watch
// ends, for any reason; check Err afterwards.
func (w *Watcher) Events() <-chan Notification {
	return w.events
}

// Stop requests the watch to end. The engine notices at its next
// callback, so the watch may take up to one poll interval to actually
// stop. Safe to call more than once, from any goroutine.
func (w *Watcher) Stop() {
	w.stop.Do(func() {
		close(w.stopped)
	})
}

// Err returns the terminal error of the watch, or nil while it is
// still running or if it ended cleanly. A watch ended by Stop or by an
// idle timeout reports nil.
func (w *Watcher) Err() error {
	select {
	case <-w.fut.Done():
	default:
		return nil
	}
	_, err := w.fut.Await(context.Background())
	return err
}
