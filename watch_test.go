package smbc

import (
	"errors"
	"testing"
	"time"
)

func startWatch(t *testing.T, opts WatchOptions) (*MockEngine, *Watcher) {
	t.Helper()
	eng, ctx := newTestContext(t)
	eng.AddDir("/share", 0755)
	ctx.EnableAsync()

	d, err := ctx.OpenDir("/share")
	if err != nil {
		t.Fatalf("OpenDir() error = %v", err)
	}
	w, err := d.Watch(opts)
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	t.Cleanup(w.Stop)
	return eng, w
}

func TestWatch_DeliversActions(t *testing.T) {
	eng, w := startWatch(t, WatchOptions{PollInterval: 10 * time.Millisecond})

	want := []NotifyAction{
		{Action: ActionAdded, Filename: "new.txt"},
		{Action: ActionModified, Filename: "log.txt"},
	}
	eng.QueueNotify(want)

	select {
	case n := <-w.Events():
		if n.Timeout {
			t.Fatal("got timeout notification, want actions")
		}
		if len(n.Actions) != 2 {
			t.Fatalf("got %d actions, want 2", len(n.Actions))
		}
		if n.Actions[0] != want[0] || n.Actions[1] != want[1] {
			t.Errorf("actions = %+v, want %+v", n.Actions, want)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification within 1s")
	}
}

func TestWatch_StopClosesEvents(t *testing.T) {
	_, w := startWatch(t, WatchOptions{PollInterval: 10 * time.Millisecond})

	w.Stop()

	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("got a notification after Stop, want closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("events channel not closed within 1s of Stop")
	}
	if err := w.Err(); err != nil {
		t.Errorf("Err() after Stop = %v, want nil", err)
	}
}

func TestWatch_IdleTimeoutEndsWatch(t *testing.T) {
	_, w := startWatch(t, WatchOptions{
		PollInterval: 5 * time.Millisecond,
		IdleTimeout:  20 * time.Millisecond,
	})

	select {
	case _, ok := <-w.Events():
		if ok {
			t.Error("idle watch delivered a notification")
		}
	case <-time.After(time.Second):
		t.Fatal("idle timeout did not end the watch")
	}
	if err := w.Err(); err != nil {
		t.Errorf("Err() after idle timeout = %v, want nil", err)
	}
}

func TestWatch_IdleTimeoutAsNotification(t *testing.T) {
	_, w := startWatch(t, WatchOptions{
		PollInterval: 5 * time.Millisecond,
		IdleTimeout:  20 * time.Millisecond,
		SendTimeouts: true,
	})

	// In SendTimeouts mode the watch stays alive and reports idleness
	// inline.
	for i := 0; i < 2; i++ {
		select {
		case n, ok := <-w.Events():
			if !ok {
				t.Fatal("watch ended in SendTimeouts mode")
			}
			if !n.Timeout {
				t.Fatalf("notification %d = %+v, want Timeout", i, n)
			}
		case <-time.After(time.Second):
			t.Fatal("no timeout notification within 1s")
		}
	}
	w.Stop()
}

func TestWatch_TimeoutThenActivity(t *testing.T) {
	eng, w := startWatch(t, WatchOptions{
		PollInterval: 5 * time.Millisecond,
		IdleTimeout:  30 * time.Millisecond,
		SendTimeouts: true,
	})

	eng.QueueNotify([]NotifyAction{{Action: ActionRemoved, Filename: "gone.txt"}})

	select {
	case n := <-w.Events():
		if n.Timeout || len(n.Actions) != 1 || n.Actions[0].Action != ActionRemoved {
			t.Errorf("notification = %+v, want the removal", n)
		}
	case <-time.After(time.Second):
		t.Fatal("no notification within 1s")
	}
}

func TestWatch_RequiresAsyncMode(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddDir("/share", 0755)

	d, err := ctx.OpenDir("/share")
	if err != nil {
		t.Fatalf("OpenDir() error = %v", err)
	}
	defer d.Close()

	if _, err := d.Watch(WatchOptions{}); !errors.Is(err, ErrAsyncNotEnabled) {
		t.Errorf("Watch() error = %v, want ErrAsyncNotEnabled", err)
	}
}

func TestWatch_DefaultsApplied(t *testing.T) {
	opts := WatchOptions{}.withDefaults()
	if opts.Filter != NotifyChangeAll {
		t.Errorf("Filter = %#x, want NotifyChangeAll", opts.Filter)
	}
	if opts.PollInterval != defaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", opts.PollInterval, defaultPollInterval)
	}
}
