package smbc

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestDispatch_RequiresAsyncMode(t *testing.T) {
	_, ctx := newTestContext(t)

	fut := Dispatch(ctx, func() (int, error) { return 1, nil })
	if _, err := fut.Await(context.Background()); !errors.Is(err, ErrAsyncNotEnabled) {
		t.Errorf("Await() error = %v, want ErrAsyncNotEnabled", err)
	}
}

func TestDispatch_AfterCloseResolvesClosed(t *testing.T) {
	_, ctx := newTestContext(t)
	ctx.EnableAsync()
	ctx.Close()

	fut := Dispatch(ctx, func() (int, error) { return 1, nil })
	if _, err := fut.Await(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Await() error = %v, want ErrClosed", err)
	}
}

func TestDispatch_RunsInOrder(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", []byte("x"), 0644)
	eng.OpDelay["stat"] = 20 * time.Millisecond
	ctx.EnableAsync()

	var mu sync.Mutex
	var order []int

	record := func(i int) func() (struct{}, error) {
		return func() (struct{}, error) {
			if i == 0 {
				// The first request is the slow one; later requests must
				// still run after it.
				_, err := ctx.Stat("/share/a.txt")
				if err != nil {
					return struct{}{}, err
				}
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return struct{}{}, nil
		}
	}

	futs := make([]*Future[struct{}], 0, 5)
	for i := 0; i < 5; i++ {
		futs = append(futs, Dispatch(ctx, record(i)))
	}
	for _, fut := range futs {
		if _, err := fut.Await(context.Background()); err != nil {
			t.Fatalf("Await() error = %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("order = %v, want ascending", order)
		}
	}
}

func TestDispatch_WorkerSurvivesFailure(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", []byte("x"), 0644)
	ctx.EnableAsync()

	bad := Dispatch(ctx, func() (Stat, error) {
		return ctx.Stat("/share/missing")
	})
	good := Dispatch(ctx, func() (Stat, error) {
		return ctx.Stat("/share/a.txt")
	})

	if _, err := bad.Await(context.Background()); err == nil {
		t.Error("failed operation resolved without error")
	}
	if _, err := good.Await(context.Background()); err != nil {
		t.Errorf("operation after a failure error = %v", err)
	}
}

func TestDispatch_FlushWaitsForQueue(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", []byte("x"), 0644)
	eng.OpDelay["stat"] = 10 * time.Millisecond
	ctx.EnableAsync()

	done := make(chan struct{})
	Dispatch(ctx, func() (struct{}, error) {
		_, err := ctx.Stat("/share/a.txt")
		close(done)
		return struct{}{}, err
	})

	if err := ctx.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	select {
	case <-done:
	default:
		t.Error("Flush() returned before the queued operation ran")
	}
}

func TestDispatch_AwaitHonorsContext(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", []byte("x"), 0644)
	eng.OpDelay["stat"] = 200 * time.Millisecond
	ctx.EnableAsync()

	fut := Dispatch(ctx, func() (Stat, error) {
		return ctx.Stat("/share/a.txt")
	})

	waitCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := fut.Await(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Await() error = %v, want DeadlineExceeded", err)
	}

	// The operation itself still completes.
	if _, err := fut.Await(context.Background()); err != nil {
		t.Errorf("second Await() error = %v", err)
	}
}

func TestContext_CloseDrainsWorker(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", []byte("x"), 0644)
	eng.OpDelay["stat"] = 10 * time.Millisecond
	ctx.EnableAsync()

	futs := make([]*Future[Stat], 0, 3)
	for i := 0; i < 3; i++ {
		futs = append(futs, Dispatch(ctx, func() (Stat, error) {
			return ctx.Stat("/share/a.txt")
		}))
	}

	if err := ctx.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Everything dispatched before Close ran against the still-open
	// context and completed successfully.
	for i, fut := range futs {
		select {
		case <-fut.Done():
		default:
			t.Fatalf("future %d unresolved after Close", i)
		}
		st, err := fut.Await(context.Background())
		if err != nil {
			t.Errorf("future %d error = %v, want nil", i, err)
			continue
		}
		if st.Size != 1 {
			t.Errorf("future %d Size = %d, want 1", i, st.Size)
		}
	}
}

func TestDispatch_EnableAsyncIdempotent(t *testing.T) {
	_, ctx := newTestContext(t)
	ctx.EnableAsync()
	disp := ctx.disp
	ctx.EnableAsync()
	if ctx.disp != disp {
		t.Error("EnableAsync() replaced a running worker")
	}
	if !ctx.Async() {
		t.Error("Async() = false after EnableAsync")
	}
}

func TestDispatch_ErrnoSurfaces(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.SetError("/share/locked.txt", syscall.EACCES)
	ctx.EnableAsync()

	fut := Dispatch(ctx, func() (Stat, error) {
		return ctx.Stat("/share/locked.txt")
	})
	_, err := fut.Await(context.Background())
	var oe *OpError
	if !errors.As(err, &oe) || oe.Errno() != syscall.EACCES {
		t.Errorf("error = %v, want OpError carrying EACCES", err)
	}
}
