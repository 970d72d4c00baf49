package smbc

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatAsync_ResolvesOnWorker(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", []byte("hello"), 0644)
	ctx.EnableAsync()
	defer ctx.Close()

	st, err := ctx.StatAsync("/share/a.txt").Await(context.Background())
	if err != nil {
		t.Fatalf("StatAsync() error = %v", err)
	}
	if st.Size != 5 {
		t.Errorf("Size = %d, want 5", st.Size)
	}
}

func TestStatAsync_BadNameFailsBeforeQueue(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", []byte("x"), 0644)
	eng.OpDelay["stat"] = 200 * time.Millisecond
	ctx.EnableAsync()
	defer ctx.Close()

	// Occupy the worker with a slow request.
	busy := ctx.StatAsync("/share/a.txt")

	// A name that cannot be valid must not wait behind it: the future
	// comes back already resolved.
	fut := ctx.StatAsync("/share/bad\x00name")
	select {
	case <-fut.Done():
	default:
		t.Fatal("invalid name queued behind a busy worker")
	}
	if _, err := fut.Await(context.Background()); !errors.Is(err, ErrNulByte) {
		t.Errorf("error = %v, want ErrNulByte", err)
	}

	if _, err := busy.Await(context.Background()); err != nil {
		t.Errorf("slow request error = %v", err)
	}
}

func TestAsyncWrappers_RequireAsyncMode(t *testing.T) {
	_, ctx := newTestContext(t)

	if _, err := ctx.StatAsync("/share/a.txt").Await(context.Background()); !errors.Is(err, ErrAsyncNotEnabled) {
		t.Errorf("StatAsync error = %v, want ErrAsyncNotEnabled", err)
	}
}

func TestRenameAsync_ValidatesBothNames(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", []byte("x"), 0644)
	ctx.EnableAsync()
	defer ctx.Close()

	fut := ctx.RenameAsync("/share/a.txt", nil, "/share/b\x00.txt")
	select {
	case <-fut.Done():
	default:
		t.Fatal("invalid new name reached the queue")
	}
	if _, err := fut.Await(context.Background()); !errors.Is(err, ErrNulByte) {
		t.Errorf("error = %v, want ErrNulByte", err)
	}

	if _, err := ctx.RenameAsync("/share/a.txt", nil, "/share/b.txt").Await(context.Background()); err != nil {
		t.Fatalf("RenameAsync() error = %v", err)
	}
	if _, err := ctx.Stat("/share/b.txt"); err != nil {
		t.Errorf("Stat(renamed) error = %v", err)
	}
}

func TestAsyncWrappers_ErrorCarriesOp(t *testing.T) {
	_, ctx := newTestContext(t)
	ctx.EnableAsync()
	defer ctx.Close()

	_, err := ctx.MkdirAsync("/share/d\x00ir", 0755).Await(context.Background())
	var oe *OpError
	if !errors.As(err, &oe) {
		t.Fatalf("error = %v, want *OpError", err)
	}
	if oe.Op != "mkdir" {
		t.Errorf("Op = %q, want %q", oe.Op, "mkdir")
	}
}

func TestGetXattrAsync_ReportsPresence(t *testing.T) {
	eng, ctx := newTestContext(t)
	eng.AddFile("/share/a.txt", []byte("x"), 0644)
	ctx.EnableAsync()
	defer ctx.Close()

	if _, err := ctx.SetXattrAsync("/share/a.txt", "user.note", []byte("v"), 0).Await(context.Background()); err != nil {
		t.Fatalf("SetXattrAsync() error = %v", err)
	}

	got, err := ctx.GetXattrAsync("/share/a.txt", "user.note").Await(context.Background())
	if err != nil {
		t.Fatalf("GetXattrAsync() error = %v", err)
	}
	if !got.Present || string(got.Value) != "v" {
		t.Errorf("GetXattrAsync() = %+v, want present %q", got, "v")
	}

	got, err = ctx.GetXattrAsync("/share/a.txt", "user.missing").Await(context.Background())
	if err != nil {
		t.Fatalf("GetXattrAsync(missing) error = %v", err)
	}
	if got.Present {
		t.Errorf("GetXattrAsync(missing) reported presence")
	}
}
